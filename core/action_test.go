package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionEncode(t *testing.T) {
	assert.Equal(t, "my:Send:42", Action{Kind: ActionSend, UserId: 42}.Encode())
	assert.Equal(t, "my:Clear:7", Action{Kind: ActionClear, UserId: 7}.Encode())
	assert.Equal(t, "my:See:-100123", Action{Kind: ActionSee, UserId: -100123}.Encode())
}

func TestDecodeAction(t *testing.T) {
	for _, kind := range []ActionKind{ActionSend, ActionClear, ActionSee} {
		a := Action{Kind: kind, UserId: 123456789}
		got, err := DecodeAction(a.Encode())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
}

func TestDecodeActionErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    error
	}{
		{"empty", "", ErrBadPayload},
		{"wrong prefix", "other:Send:1", ErrBadPayload},
		{"missing id", "my:Send", ErrBadPayload},
		{"extra part", "my:Send:1:2", ErrBadPayload},
		{"bad id", "my:Send:abc", ErrBadPayload},
		{"unknown action", "my:Delete:1", ErrUnknownAction},
		{"lowercase action", "my:send:1", ErrUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction(tt.payload)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestActionKindString(t *testing.T) {
	assert.Equal(t, "See", ActionSee.String())
	assert.Equal(t, "ActionKind(9)", ActionKind(9).String())
}
