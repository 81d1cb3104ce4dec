package runner

// MaxStreamBytes is the number of bytes kept per output stream.
const MaxStreamBytes = 65536

// Collector accumulates the output of one stream up to MaxStreamBytes.
// Bytes past the cap are dropped and the collector is marked truncated.
// The cut happens on a byte boundary, so the last rune kept may be an
// incomplete UTF-8 sequence.
//
// A Collector is not safe for concurrent use; os/exec writes each stream
// from a single goroutine.
type Collector struct {
	chunks    [][]byte
	total     int
	truncated bool
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Append stores as much of chunk as fits and returns the accepted part.
// It returns nil when nothing was accepted. The returned slice is owned by
// the collector and must not be modified.
func (c *Collector) Append(chunk []byte) []byte {
	remaining := MaxStreamBytes - c.total
	if remaining <= 0 {
		c.truncated = true
		return nil
	}
	if len(chunk) <= remaining {
		accepted := append([]byte(nil), chunk...)
		c.chunks = append(c.chunks, accepted)
		c.total += len(accepted)
		return accepted
	}
	accepted := append([]byte(nil), chunk[:remaining]...)
	c.chunks = append(c.chunks, accepted)
	c.total = MaxStreamBytes
	c.truncated = true
	return accepted
}

// Len returns the number of bytes kept.
func (c *Collector) Len() int { return c.total }

// Truncated reports whether any bytes were dropped.
func (c *Collector) Truncated() bool { return c.truncated }

// Bytes returns the kept bytes concatenated in arrival order.
func (c *Collector) Bytes() []byte {
	out := make([]byte, 0, c.total)
	for _, chunk := range c.chunks {
		out = append(out, chunk...)
	}
	return out
}

// streamWriter feeds process output into a collector and forwards each
// accepted chunk to the sink.
type streamWriter struct {
	executionID string
	stream      Stream
	collector   *Collector
	sink        EventSink
}

// Write always reports the full chunk as consumed so the copy goroutine in
// os/exec keeps draining the pipe after the cap is reached.
func (w *streamWriter) Write(p []byte) (int, error) {
	accepted := w.collector.Append(p)
	if len(accepted) > 0 && w.sink != nil {
		w.sink.Emit(Event{
			ExecutionID: w.executionID,
			Stream:      w.stream,
			Delta:       string(accepted),
		})
	}
	return len(p), nil
}
