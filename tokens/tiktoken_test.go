package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTiktoken(t *testing.T) *Tiktoken {
	t.Helper()
	tk, err := NewTiktoken("gpt-4")
	require.NoError(t, err)
	return tk
}

func TestNewTiktokenWorksOffline(t *testing.T) {
	t.Setenv("HTTPS_PROXY", "http://127.0.0.1:1")
	t.Setenv("TIKTOKEN_CACHE_DIR", t.TempDir())
	tk := newTiktoken(t)
	assert.Equal(t, 1, tk.Count("Hello"))
}

func TestCount(t *testing.T) {
	tk := newTiktoken(t)
	tests := []struct {
		name string
		text string
		min  int
		max  int
	}{
		{"empty", "", 0, 0},
		{"hello", "\n---\nHello", 2, 6},
		{"sentence", "The quick brown fox jumps over the lazy dog", 9, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tk.Count(tt.text)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestCountIsPure(t *testing.T) {
	tk := newTiktoken(t)
	a := strings.Repeat("context ", 100)
	b := strings.Repeat("context ", 100)
	assert.Equal(t, tk.Count(a), tk.Count(b))
	assert.Equal(t, tk.Count(a), tk.Count(a))
}

func TestUnknownModel(t *testing.T) {
	_, err := NewTiktoken("no-such-model")
	assert.Error(t, err)
}

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate{}.Count(""))
	assert.Equal(t, 1, Estimate{}.Count("abc"))
	assert.Equal(t, 2, Estimate{}.Count("привіт!"))
}
