package sdk

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKErrorFormatting(t *testing.T) {
	t.Run("with underlying error", func(t *testing.T) {
		err := &SDKError{Op: "Run", Kind: KindExecution, Err: errors.New("boom")}
		assert.Equal(t, "sdk: Run (execution): boom", err.Error())
	})

	t.Run("without underlying error", func(t *testing.T) {
		err := &SDKError{Op: "Run", Kind: KindInternal}
		assert.Equal(t, "sdk: Run: internal", err.Error())
	})

	t.Run("with context", func(t *testing.T) {
		err := &SDKError{
			Op:      "Run",
			Kind:    KindExecution,
			Err:     errors.New("boom"),
			Context: map[string]any{"worker": "license-scanner"},
		}
		assert.Contains(t, err.Error(), "worker:license-scanner")
	})
}

func TestSDKErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewNetworkError("Register", fmt.Errorf("%w: %v", ErrRegistryUnavailable, underlying))

	assert.ErrorIs(t, err, ErrRegistryUnavailable)
	assert.NotErrorIs(t, err, ErrQueueUnavailable)
}

func TestSDKErrorIsMatchesByKind(t *testing.T) {
	err := NewValidationError("NewWorker", errors.New("worker name is required"))

	assert.ErrorIs(t, err, &SDKError{Kind: KindValidation})
	assert.ErrorIs(t, err, &SDKError{Kind: KindValidation, Op: "NewWorker"})
	assert.NotErrorIs(t, err, &SDKError{Kind: KindValidation, Op: "Run"})
	assert.NotErrorIs(t, err, &SDKError{Kind: KindNetwork})
}

func TestSDKErrorAs(t *testing.T) {
	var sdkErr *SDKError
	err := fmt.Errorf("wrapped: %w", NewExecutionError("Run", ErrExecutionFailed))

	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, "Run", sdkErr.Op)
	assert.Equal(t, KindExecution, sdkErr.Kind)
}

func TestSDKErrorWithContext(t *testing.T) {
	base := NewExecutionError("Run", errors.New("boom"))
	enriched := base.WithContext(map[string]any{"item_id": "i-1"})

	assert.Nil(t, base.Context, "original error is not mutated")
	assert.Equal(t, "i-1", enriched.Context["item_id"])

	more := enriched.WithContext(map[string]any{"worker": "w"})
	assert.Equal(t, "i-1", more.Context["item_id"])
	assert.Equal(t, "w", more.Context["worker"])
}

func TestErrorConstructors(t *testing.T) {
	underlying := errors.New("boom")

	tests := []struct {
		name string
		err  *SDKError
		kind string
	}{
		{"validation", NewValidationError("op", underlying), KindValidation},
		{"execution", NewExecutionError("op", underlying), KindExecution},
		{"configuration", NewConfigurationError("op", underlying), KindConfiguration},
		{"network", NewNetworkError("op", underlying), KindNetwork},
		{"timeout", NewTimeoutError("op", underlying), KindTimeout},
		{"internal", NewInternalError("op", underlying), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "op", tt.err.Op)
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.ErrorIs(t, tt.err, underlying)
		})
	}
}
