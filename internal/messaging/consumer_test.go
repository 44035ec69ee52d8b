package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"social-chat/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memNotificationRepo struct {
	mu    sync.Mutex
	items []*domain.Notification
	err   error
}

func (r *memNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	n.ID = int64(len(r.items) + 1)
	r.items = append(r.items, n)
	return nil
}

func (r *memNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func runConsumer(t *testing.T, ch *fakeChannel, repo domain.NotificationRepository) (context.CancelFunc, <-chan error) {
	t.Helper()
	consumer := NewNotificationConsumer(ch, "notifications", repo)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()
	return cancel, done
}

func delivery(t *testing.T, ack amqp.Acknowledger, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: ack, Body: body, DeliveryTag: 1}
}

func TestNotificationConsumer_StoresAndAcks(t *testing.T) {
	ch := newFakeChannel()
	repo := &memNotificationRepo{}
	ack := &fakeAcknowledger{}

	cancel, done := runConsumer(t, ch, repo)
	defer cancel()

	body, err := json.Marshal(testEvent())
	require.NoError(t, err)
	ch.deliveries <- delivery(t, ack, body)

	require.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { acks, _ := ack.counts(); return acks == 1 }, time.Second, 10*time.Millisecond)

	stored := repo.items[0]
	assert.Equal(t, int64(2), stored.RecipientID)
	assert.Equal(t, domain.ActionMentionComment, stored.Action)
	assert.Equal(t, 10, ch.prefetch)
	assert.Equal(t, []string{"notifications"}, ch.declared)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNotificationConsumer_MalformedIsDropped(t *testing.T) {
	ch := newFakeChannel()
	repo := &memNotificationRepo{}
	ack := &fakeAcknowledger{}

	cancel, _ := runConsumer(t, ch, repo)
	defer cancel()

	ch.deliveries <- delivery(t, ack, []byte("{not json"))

	require.Eventually(t, func() bool { _, nacks := ack.counts(); return nacks == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{false}, ack.requeue)
	assert.Equal(t, 0, repo.count())
}

func TestNotificationConsumer_StoreFailureRequeues(t *testing.T) {
	ch := newFakeChannel()
	repo := &memNotificationRepo{err: errors.New("db down")}
	ack := &fakeAcknowledger{}

	cancel, _ := runConsumer(t, ch, repo)
	defer cancel()

	body, err := json.Marshal(testEvent())
	require.NoError(t, err)
	ch.deliveries <- delivery(t, ack, body)

	require.Eventually(t, func() bool { _, nacks := ack.counts(); return nacks == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{true}, ack.requeue)
}

func TestNotificationConsumer_RejectedRowIsDropped(t *testing.T) {
	ch := newFakeChannel()
	repo := &memNotificationRepo{err: fmt.Errorf("failed to create notification: %w", domain.ErrInvalidInput)}
	ack := &fakeAcknowledger{}

	cancel, _ := runConsumer(t, ch, repo)
	defer cancel()

	body, err := json.Marshal(testEvent())
	require.NoError(t, err)
	ch.deliveries <- delivery(t, ack, body)

	require.Eventually(t, func() bool { _, nacks := ack.counts(); return nacks == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []bool{false}, ack.requeue)
}

func TestNotificationConsumer_DeliveriesClosed(t *testing.T) {
	ch := newFakeChannel()
	cancel, done := runConsumer(t, ch, &memNotificationRepo{})
	defer cancel()

	close(ch.deliveries)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDeliveriesClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
