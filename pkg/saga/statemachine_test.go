package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachineTransition(t *testing.T) {
	sm := NewStateMachine("payment", map[string][]string{
		"CREATED": {"SUCCEEDED", "FAILED", "CANCELLED"},
		"FAILED":  {"SUCCEEDED", "CANCELLED"},
	})

	tests := []struct {
		from, to string
		ok       bool
	}{
		{"CREATED", "SUCCEEDED", true},
		{"FAILED", "SUCCEEDED", true},
		{"CANCELLED", "SUCCEEDED", false},
		{"SUCCEEDED", "SUCCEEDED", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			got, err := sm.Transition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, got)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, got)
		})
	}
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	ok, err := l.IsProcessed(ctx, "a")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, l.MarkProcessed(ctx, "a"))
	assert.ErrorIs(t, l.MarkProcessed(ctx, "a"), ErrAlreadyProcessed)
	assert.NoError(t, l.MarkProcessed(ctx, ""))
	assert.Equal(t, 1, l.Len())
}
