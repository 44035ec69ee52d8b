package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"social-chat/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var messageRowColumns = []string{"id", "chat_id", "sender_id", "receiver_id", "body", "is_read", "read_at", "created_at", "updated_at"}

func TestMessageRepository_Save(t *testing.T) {
	t.Run("returns_stored_message", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		now := time.Now()
		receiver := int64(9)

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages (chat_id, sender_id, receiver_id, body)`)).
			WithArgs(int64(7), int64(1), int64(9), "hi").
			WillReturnRows(sqlmock.NewRows(messageRowColumns).
				AddRow(int64(100), int64(7), int64(1), int64(9), "hi", false, nil, now, now))

		msg, err := repo.Save(context.Background(), 7, 1, &receiver, "hi")
		require.NoError(t, err)
		assert.Equal(t, int64(100), msg.ID)
		assert.Equal(t, int64(7), msg.ChatID)
		require.NotNil(t, msg.ReceiverID)
		assert.Equal(t, int64(9), *msg.ReceiverID)
		assert.Nil(t, msg.ReadAt)
		assert.False(t, msg.IsRead)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null_receiver", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages`)).
			WithArgs(int64(7), int64(1), nil, "hello room").
			WillReturnRows(sqlmock.NewRows(messageRowColumns).
				AddRow(int64(101), int64(7), int64(1), nil, "hello room", false, nil, now, now))

		msg, err := repo.Save(context.Background(), 7, 1, nil, "hello room")
		require.NoError(t, err)
		assert.Nil(t, msg.ReceiverID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign_key_violation_is_invalid_input", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages`)).
			WillReturnError(&pq.Error{Code: "23503", Constraint: "messages_receiver_id_fkey"})

		msg, err := repo.Save(context.Background(), 7, 1, nil, "hi")
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO messages`)).
			WillReturnError(errors.New("connection reset"))

		_, err = repo.Save(context.Background(), 7, 1, nil, "hi")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create message")
	})
}

func TestMessageRepository_Edit(t *testing.T) {
	t.Run("updates_own_message", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE messages`)).
			WithArgs("edited", int64(100), int64(7), int64(1)).
			WillReturnRows(sqlmock.NewRows(messageRowColumns).
				AddRow(int64(100), int64(7), int64(1), nil, "edited", false, nil, now, now.Add(time.Second)))

		msg, err := repo.Edit(context.Background(), 100, 7, 1, "edited")
		require.NoError(t, err)
		assert.Equal(t, "edited", msg.Body)
		assert.True(t, msg.UpdatedAt.After(msg.CreatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not_owner_or_missing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE messages`)).
			WithArgs("edited", int64(100), int64(7), int64(2)).
			WillReturnRows(sqlmock.NewRows(messageRowColumns))

		msg, err := repo.Edit(context.Background(), 100, 7, 2, "edited")
		assert.Nil(t, msg)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})
}

func TestMessageRepository_Delete(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"deleted", 1, true},
		{"nothing_deleted", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewMessageRepository(db)
			mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM messages WHERE id = $1 AND chat_id = $2 AND sender_id = $3`)).
				WithArgs(int64(100), int64(7), int64(1)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.Delete(context.Background(), 100, 7, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMessageRepository_MarkRead(t *testing.T) {
	t.Run("marks_message", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		mock.ExpectExec(regexp.QuoteMeta(`SET is_read = TRUE`)).
			WithArgs(int64(100), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.MarkRead(context.Background(), 100, 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("message_not_in_chat", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		mock.ExpectExec(regexp.QuoteMeta(`SET is_read = TRUE`)).
			WithArgs(int64(100), int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.MarkRead(context.Background(), 100, 8), domain.ErrMessageNotFound)
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewMessageRepository(db)
		mock.ExpectExec(regexp.QuoteMeta(`SET is_read = TRUE`)).
			WillReturnError(errors.New("timeout"))

		err = repo.MarkRead(context.Background(), 100, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to mark message read")
	})
}
