package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to processing", StatusPending, StatusProcessing, true},
		{"pending to processed", StatusPending, StatusProcessed, false},
		{"processing to processed", StatusProcessing, StatusProcessed, true},
		{"processing to failed", StatusProcessing, StatusFailed, true},
		{"processing to pending", StatusProcessing, StatusPending, false},
		{"failed to pending", StatusFailed, StatusPending, true},
		{"failed to abandoned", StatusFailed, StatusAbandoned, true},
		{"failed to processed", StatusFailed, StatusProcessed, false},
		{"abandoned to pending", StatusAbandoned, StatusPending, true},
		{"processed is terminal", StatusProcessed, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusProcessed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal())
	assert.False(t, StatusAbandoned.IsTerminal())
}
