package log

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLogger_SetLevelSharedWithChildren(t *testing.T) {
	l := NewNop()
	child := l.With(String("component", "test"))

	l.SetLevel(LevelError)
	assert.Equal(t, LevelError, l.GetLevel())
	assert.Equal(t, LevelError, child.GetLevel())
}

func TestLogger_WithContext(t *testing.T) {
	l := NewNop()
	assert.Same(t, l, l.WithContext(context.Background()))

	ctx := ContextWithFields(context.Background(), String("session", "abc"))
	assert.NotSame(t, l, l.WithContext(ctx))
}

func TestToZapFields_NilError(t *testing.T) {
	fields := toZapFields(Error(nil), ErrorWithKey("cause", errors.New("boom")), Int("n", 3))
	assert.Len(t, fields, 3)
	assert.Equal(t, "cause", fields[1].Key)
}
