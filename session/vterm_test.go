package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVT() *VirtualTerminal {
	return NewVirtualTerminal(80, 24, 100, nil)
}

func TestVTermFeedAndRender(t *testing.T) {
	vt := newTestVT()
	defer vt.Close()

	vt.Feed([]byte("hello world\r\n"))
	assert.Contains(t, vt.Render(), "hello world")
}

func TestVTermRowsBounded(t *testing.T) {
	vt := newTestVT()
	defer vt.Close()

	for i := 0; i < 50; i++ {
		vt.Feed([]byte("line\r\n"))
	}
	rows := vt.Rows()
	assert.LessOrEqual(t, len(rows), 24)
}

func TestVTermScrollback(t *testing.T) {
	vt := newTestVT()
	defer vt.Close()

	for i := 0; i < 40; i++ {
		vt.Feed([]byte("scroll line\r\n"))
	}
	assert.Equal(t, 40, vt.ScrollbackLen())

	// Scrolled-back view comes from the plain-text ring
	lines := vt.VisibleLines(10, 20)
	require.Len(t, lines, 10)
	for _, line := range lines {
		assert.Equal(t, "scroll line", strings.TrimRight(line, " "))
	}
}

func TestVTermScrollbackCapped(t *testing.T) {
	vt := NewVirtualTerminal(80, 24, 10, nil)
	defer vt.Close()

	for i := 0; i < 100; i++ {
		vt.Feed([]byte("x\r\n"))
	}
	assert.Equal(t, 10, vt.ScrollbackLen())
}

func TestVTermVisibleLinesLive(t *testing.T) {
	vt := newTestVT()
	defer vt.Close()

	vt.Feed([]byte("only line\r\n"))
	lines := vt.VisibleLines(24, 0)
	assert.NotEmpty(t, lines)

	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "only line")
}

func TestVTermBellListener(t *testing.T) {
	vt := newTestVT()
	defer vt.Close()

	bells := 0
	vt.SetBellListener(func() { bells++ })

	vt.Feed([]byte("\x07"))
	assert.Equal(t, 1, bells)

	// Cells are unaffected by the bell
	vt.Feed([]byte("after\r\n"))
	assert.Contains(t, vt.Render(), "after")
}

func TestVTermResize(t *testing.T) {
	vt := newTestVT()
	defer vt.Close()

	vt.Resize(120, 40)
	cols, rows := vt.Size()
	assert.Equal(t, 120, cols)
	assert.Equal(t, 40, rows)
}

func TestVTermToleratesGarbage(t *testing.T) {
	vt := newTestVT()
	defer vt.Close()

	vt.Feed([]byte{0x1b, 0xff, 0x00, 0x1b, '[', 0xff})
	vt.Feed([]byte("recovered\r\n"))
	assert.Contains(t, vt.Render(), "recovered")
}

func TestLineRingWindow(t *testing.T) {
	r := newLineRing(100)
	for i := 0; i < 10; i++ {
		r.push(string(rune('a' + i)))
	}

	// offset 0 ends at the tail
	window := r.window(0, 3)
	assert.Equal(t, []string{"h", "i", "j"}, window)

	// offset scrolls back
	window = r.window(5, 3)
	assert.Equal(t, []string{"c", "d", "e"}, window)

	// offset past the beginning clamps
	window = r.window(100, 3)
	assert.Equal(t, []string{"a"}, window)
}
