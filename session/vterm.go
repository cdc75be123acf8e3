package session

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/vt"
)

// DefaultScrollbackLines is the default scrollback capacity
const DefaultScrollbackLines = 10000

// VirtualTerminal is the sole authority on what a session looks like. It
// feeds raw PTY bytes into a terminal emulator for the live screen and keeps
// a capped plain-text scrollback of completed lines for scrolled-back views.
type VirtualTerminal struct {
	cols       int
	emu        *vt.SafeEmulator
	reply      io.Writer
	rows       int
	scanner    *lineScanner
	scrollback *lineRing
}

// NewVirtualTerminal creates a terminal of the given size. reply, when
// non-nil, receives emulator query responses destined for the child (DA,
// DSR and friends); pass the PTY handle's ReplyWriter.
func NewVirtualTerminal(cols, rows, scrollbackLines int, reply io.Writer) *VirtualTerminal {
	if scrollbackLines <= 0 {
		scrollbackLines = DefaultScrollbackLines
	}

	t := &VirtualTerminal{
		cols:       cols,
		emu:        vt.NewSafeEmulator(cols, rows),
		reply:      reply,
		rows:       rows,
		scrollback: newLineRing(scrollbackLines),
	}
	t.scanner = newLineScanner(rows, t.scrollback.push, nil)

	if reply != nil {
		go t.forwardResponses()
	}

	return t
}

// SetBellListener registers a callback invoked when the stream carries a
// BEL. The bell is transparent: it never alters cells.
func (t *VirtualTerminal) SetBellListener(fn func()) {
	t.scanner.onBell = fn
}

// Feed consumes raw bytes from the PTY. Malformed sequences are tolerated;
// the emulator and scanner both resynchronize on garbage.
func (t *VirtualTerminal) Feed(data []byte) {
	t.emu.Write(data)
	t.scanner.feed(data)
}

// forwardResponses pumps terminal query responses back toward the child
// process. Runs until the emulator is closed.
func (t *VirtualTerminal) forwardResponses() {
	buf := make([]byte, 1024)
	for {
		n, err := t.emu.Read(buf)
		if n > 0 {
			t.reply.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// Rows returns the live screen as one string per terminal row
func (t *VirtualTerminal) Rows() []string {
	screen := strings.ReplaceAll(t.emu.Render(), "\r\n", "\n")
	rows := strings.Split(strings.TrimRight(screen, "\n"), "\n")
	if len(rows) > t.rows {
		rows = rows[len(rows)-t.rows:]
	}
	return rows
}

// Render returns the styled live screen as a single string
func (t *VirtualTerminal) Render() string {
	return strings.ReplaceAll(t.emu.Render(), "\r\n", "\n")
}

// VisibleLines returns height lines for display. With scrollOffset 0 the
// live screen is shown; a positive offset scrolls that many lines back into
// the plain-text scrollback.
func (t *VirtualTerminal) VisibleLines(height, scrollOffset int) []string {
	if scrollOffset <= 0 {
		rows := t.Rows()
		if len(rows) > height {
			rows = rows[len(rows)-height:]
		}
		return rows
	}
	return t.scrollback.window(scrollOffset, height)
}

// Cursor returns the tracked cursor position as (row, col)
func (t *VirtualTerminal) Cursor() (row, col int) {
	return t.scanner.cursor()
}

// ScrollbackLen returns the number of lines held in scrollback
func (t *VirtualTerminal) ScrollbackLen() int {
	return t.scrollback.len()
}

// Size returns the terminal dimensions as (cols, rows)
func (t *VirtualTerminal) Size() (cols, rows int) {
	return t.cols, t.rows
}

// Resize changes the terminal dimensions
func (t *VirtualTerminal) Resize(cols, rows int) {
	t.cols = cols
	t.rows = rows
	t.emu.Resize(cols, rows)
	t.scanner.setRows(rows)
}

// Close releases the emulator
func (t *VirtualTerminal) Close() {
	t.emu.Close()
}

// lineRing is a capped ring of completed plain-text lines
type lineRing struct {
	lines []string
	max   int
}

func newLineRing(max int) *lineRing {
	return &lineRing{max: max}
}

func (r *lineRing) push(line string) {
	r.lines = append(r.lines, line)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
}

func (r *lineRing) len() int {
	return len(r.lines)
}

// window returns up to height lines ending offset lines before the tail
func (r *lineRing) window(offset, height int) []string {
	if len(r.lines) == 0 || height <= 0 {
		return nil
	}
	end := len(r.lines) - offset
	if end < 1 {
		end = 1
	}
	if end > len(r.lines) {
		end = len(r.lines)
	}
	start := end - height
	if start < 0 {
		start = 0
	}
	out := make([]string, end-start)
	copy(out, r.lines[start:end])
	return out
}
