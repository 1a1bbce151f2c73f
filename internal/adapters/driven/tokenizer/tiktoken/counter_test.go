package tiktoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApproximate(t *testing.T) {
	c := Approximate()
	assert.False(t, c.IsExact())
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("abc"))
	assert.Equal(t, 1, c.Count("abcd"))
	assert.Equal(t, 2, c.Count("abcde"))
	// Runes, not bytes.
	assert.Equal(t, 1, c.Count("éééé"))
}

func TestNew_Exact(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Skipf("encoding unavailable (offline?): %v", err)
	}
	assert.True(t, c.IsExact())
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 2, c.Count("hello world"))
	assert.Greater(t, c.Count("The capital of France is Paris."), 5)
}

func TestNew_UnknownEncoding(t *testing.T) {
	_, err := New("no_such_encoding")
	assert.Error(t, err)
}
