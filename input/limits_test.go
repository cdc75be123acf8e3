package input

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateUnderCap(t *testing.T) {
	value, truncated := Truncate("short", 256)
	assert.Equal(t, "short", value)
	assert.False(t, truncated)
}

func TestTruncateAtCapExactly(t *testing.T) {
	s := strings.Repeat("x", 256)
	value, truncated := Truncate(s, 256)
	assert.Equal(t, s, value)
	assert.False(t, truncated)
}

func TestTruncateOverCap(t *testing.T) {
	s := strings.Repeat("x", 300)
	value, truncated := Truncate(s, 256)
	assert.True(t, truncated)
	assert.Len(t, []rune(value), 256)
}

func TestTruncateCountsRunesNotBytes(t *testing.T) {
	s := strings.Repeat("é", 10)
	value, truncated := Truncate(s, 5)
	assert.True(t, truncated)
	assert.Equal(t, strings.Repeat("é", 5), value)
}

func TestTruncateEmpty(t *testing.T) {
	value, truncated := Truncate("", 10)
	assert.Empty(t, value)
	assert.False(t, truncated)
}

func TestCapsMatchSpec(t *testing.T) {
	assert.Equal(t, 4096, MaxProjectPathLen)
	assert.Equal(t, 256, MaxSessionNameLen)
	assert.Equal(t, 256, MaxBranchNameLen)
}
