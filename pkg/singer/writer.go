package singer

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	json "github.com/goccy/go-json"
)

// Output receives serialized messages, one per call, without the
// trailing newline. Implementations: StdoutOutput below, and the
// broker publishers in pkg/sink.
type Output interface {
	WriteMessage(p []byte) error
	Close() error
}

// Writer serializes Singer messages and hands them to an Output. The
// lock makes writes safe for any future concurrent producer; the tap
// itself emits sequentially.
type Writer struct {
	mu  sync.Mutex
	out Output
}

// NewWriter creates a message writer on top of an output.
func NewWriter(out Output) *Writer {
	return &Writer{out: out}
}

// Write serializes one message and forwards it to the output.
func (w *Writer) Write(msg any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := w.out.WriteMessage(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close closes the underlying output.
func (w *Writer) Close() error {
	return w.out.Close()
}

// StdoutOutput writes newline-delimited messages to a buffered
// stream. Records are flushed per message so that downstream targets
// see state checkpoints promptly.
type StdoutOutput struct {
	w *bufio.Writer
}

// NewStdoutOutput wraps an io.Writer (normally os.Stdout).
func NewStdoutOutput(w io.Writer) *StdoutOutput {
	return &StdoutOutput{w: bufio.NewWriterSize(w, 64*1024)}
}

// WriteMessage writes one message line.
func (o *StdoutOutput) WriteMessage(p []byte) error {
	if _, err := o.w.Write(p); err != nil {
		return err
	}
	if err := o.w.WriteByte('\n'); err != nil {
		return err
	}
	return o.w.Flush()
}

// Close flushes buffered output.
func (o *StdoutOutput) Close() error {
	return o.w.Flush()
}
