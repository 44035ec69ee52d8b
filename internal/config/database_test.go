package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewPostgresConnection_InvalidURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("invalid_database_url", func(t *testing.T) {
		db, err := NewPostgresConnection(ctx, "invalid://malformed")
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("empty_database_url", func(t *testing.T) {
		db, err := NewPostgresConnection(ctx, "")
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}
