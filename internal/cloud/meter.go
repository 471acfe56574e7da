package cloud

import (
	"io"

	"github.com/mediasink/mediasink/internal/constants"
	"github.com/mediasink/mediasink/internal/util/buffers"
)

// MeteredReader wraps an upload body and reports byte progress through
// Hooks as the consumer drains it. Samples fire once per ChunkSize bytes
// and once more for any remainder at EOF, so small files still produce
// exactly one sample.
//
// Wrap the body that actually crosses the wire: SDK and HTTP clients read
// it on demand, which keeps the counters honest for slow links.
type MeteredReader struct {
	r        io.Reader
	hooks    Hooks
	total    int64
	index    int
	filename string
	path     string

	sent       int64
	lastReport int64
}

// NewMeteredReader builds a MeteredReader for one item of a batch.
func NewMeteredReader(r io.Reader, total int64, index int, filename, path string, hooks Hooks) *MeteredReader {
	return &MeteredReader{
		r:        r,
		hooks:    hooks,
		total:    total,
		index:    index,
		filename: filename,
		path:     path,
	}
}

func (m *MeteredReader) Read(p []byte) (int, error) {
	n, err := m.r.Read(p)
	if n > 0 {
		m.sent += int64(n)
		if m.sent-m.lastReport >= constants.ChunkSize {
			m.flush()
		}
	}
	if err == io.EOF && m.sent > m.lastReport {
		m.flush()
	}
	return n, err
}

func (m *MeteredReader) flush() {
	delta := m.sent - m.lastReport
	m.lastReport = m.sent
	m.hooks.Bytes(ByteProgress{
		Delta:    delta,
		Sent:     m.sent,
		Total:    m.total,
		Index:    m.index,
		Filename: m.filename,
		Path:     m.path,
	})
}

// Sent returns the bytes consumed so far.
func (m *MeteredReader) Sent() int64 { return m.sent }

// ReadAllMetered drains r into memory, reporting progress through hooks
// in ChunkSize steps. total may be 0 when the source size is unknown.
// Providers use it for download bodies.
func ReadAllMetered(r io.Reader, total int64, index int, filename, path string, hooks Hooks) ([]byte, error) {
	buf := make([]byte, 0, initialCap(total))
	chunk := buffers.GetChunkBuffer()
	defer buffers.PutChunkBuffer(chunk)
	var sent int64
	for {
		n, err := r.Read(*chunk)
		if n > 0 {
			buf = append(buf, (*chunk)[:n]...)
			sent += int64(n)
			hooks.Bytes(ByteProgress{
				Delta:    int64(n),
				Sent:     sent,
				Total:    total,
				Index:    index,
				Filename: filename,
				Path:     path,
			})
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return buf, err
		}
	}
}

func initialCap(total int64) int64 {
	if total <= 0 || total > constants.ChunkSize {
		return constants.ChunkSize
	}
	return total
}
