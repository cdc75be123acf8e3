package session

import "bytes"

// bytesPerLineEquivalent bounds buffer memory for pathological streams that
// never emit a newline (line-equivalent accounting assumes ~256 bytes per line)
const bytesPerLineEquivalent = 256

// OutputBuffer is a bounded ring of raw PTY output feeding the virtual
// terminal. Appends never block; the oldest chunks are discarded to keep the
// buffer within its line-equivalent capacity. The VT consumes from a
// separate tail pointer, so a reader that falls behind loses data by design.
type OutputBuffer struct {
	chunks     [][]byte
	lineCounts []int
	maxLines   int
	totalBytes int
	totalLines int
	unreadIdx  int
}

// NewOutputBuffer creates a buffer capped at roughly maxLines of output
func NewOutputBuffer(maxLines int) *OutputBuffer {
	if maxLines <= 0 {
		maxLines = 10000
	}
	return &OutputBuffer{maxLines: maxLines}
}

// Append stores a raw chunk, evicting the oldest data when over capacity
func (b *OutputBuffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)

	lines := bytes.Count(chunk, []byte{'\n'})
	b.chunks = append(b.chunks, chunk)
	b.lineCounts = append(b.lineCounts, lines)
	b.totalLines += lines
	b.totalBytes += len(chunk)

	for len(b.chunks) > 1 &&
		(b.totalLines > b.maxLines || b.totalBytes > b.maxLines*bytesPerLineEquivalent) {
		b.totalLines -= b.lineCounts[0]
		b.totalBytes -= len(b.chunks[0])
		b.chunks = b.chunks[1:]
		b.lineCounts = b.lineCounts[1:]
		if b.unreadIdx > 0 {
			b.unreadIdx--
		}
	}
}

// TakeUnread returns chunks appended since the last take and advances the
// tail pointer. Data evicted before being taken is simply gone.
func (b *OutputBuffer) TakeUnread() [][]byte {
	if b.unreadIdx >= len(b.chunks) {
		return nil
	}
	unread := b.chunks[b.unreadIdx:]
	b.unreadIdx = len(b.chunks)
	return unread
}

// Lines returns the current line-equivalent count
func (b *OutputBuffer) Lines() int {
	return b.totalLines
}

// Len returns the number of buffered chunks
func (b *OutputBuffer) Len() int {
	return len(b.chunks)
}

// Bytes returns the total buffered byte count
func (b *OutputBuffer) Bytes() int {
	return b.totalBytes
}
