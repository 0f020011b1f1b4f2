package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	t.Run("Production", func(t *testing.T) {
		Init("production")
		assert.NotNil(t, log)
	})

	t.Run("Development", func(t *testing.T) {
		Init("development")
		assert.NotNil(t, log)
	})
}

func TestL(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	// Force nil to test lazy initialization
	log = nil
	t.Setenv("APP_ENV", "test")

	l := L()
	assert.NotNil(t, l)
	assert.NotNil(t, log)
}

func TestContextFunctions(t *testing.T) {
	ctx := context.Background()

	t.Run("WithAttemptID", func(t *testing.T) {
		tagged := WithAttemptID(ctx, "order-1700000000000-abcd1234")
		assert.Equal(t, "order-1700000000000-abcd1234", AttemptIDFrom(tagged))
	})

	t.Run("MissingAttemptID", func(t *testing.T) {
		assert.Empty(t, AttemptIDFrom(ctx))
		assert.NotNil(t, FromCtx(ctx))
	})

	t.Run("FromCtxWithID", func(t *testing.T) {
		tagged := WithAttemptID(ctx, "order-1")
		assert.NotNil(t, FromCtx(tagged))
	})
}
