package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer outputs JSONL records for scan results.
//
// Implementations must be safe for concurrent use. Each Write* method emits
// a complete record as a single line of JSON followed by a newline.
type Writer interface {
	WriteKey(ctx context.Context, rec *KeyRecord) error
	WriteEmptiness(ctx context.Context, rec *EmptinessRecord) error
	WriteCheck(ctx context.Context, rec *CheckRecord) error
	WriteError(ctx context.Context, rec *ErrorRecord) error
	WriteSummary(ctx context.Context, rec *SummaryRecord) error
	WritePreflight(ctx context.Context, rec *PreflightRecord) error

	// Close flushes any buffered output and releases resources.
	Close() error
}

// JSONLWriter writes records as newline-delimited JSON to an io.Writer.
//
// Writes are serialized with a mutex so lines never interleave.
type JSONLWriter struct {
	w        io.Writer
	runID    string
	provider string
	mu       sync.Mutex
	closed   bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewJSONLWriter creates a new JSONL writer.
func NewJSONLWriter(w io.Writer, runID, provider string) *JSONLWriter {
	return &JSONLWriter{
		w:        w,
		runID:    runID,
		provider: provider,
		now:      time.Now,
	}
}

func (jw *JSONLWriter) WriteKey(ctx context.Context, rec *KeyRecord) error {
	return jw.writeRecord(ctx, TypeKey, rec)
}

func (jw *JSONLWriter) WriteEmptiness(ctx context.Context, rec *EmptinessRecord) error {
	return jw.writeRecord(ctx, TypeEmptiness, rec)
}

func (jw *JSONLWriter) WriteCheck(ctx context.Context, rec *CheckRecord) error {
	return jw.writeRecord(ctx, TypeCheck, rec)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, rec *ErrorRecord) error {
	return jw.writeRecord(ctx, TypeError, rec)
}

func (jw *JSONLWriter) WriteSummary(ctx context.Context, rec *SummaryRecord) error {
	return jw.writeRecord(ctx, TypeSummary, rec)
}

func (jw *JSONLWriter) WritePreflight(ctx context.Context, rec *PreflightRecord) error {
	return jw.writeRecord(ctx, TypePreflight, rec)
}

// Close marks the writer as closed.
//
// The underlying io.Writer is NOT closed; that stays with the caller.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line.
func (jw *JSONLWriter) writeRecord(ctx context.Context, recordType string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:     recordType,
		TS:       jw.now().UTC(),
		RunID:    jw.runID,
		Provider: jw.provider,
		Data:     dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// writeAll writes all bytes to w, handling short writes.
//
// io.Writer.Write may return n < len(p) with a nil error; looping keeps
// JSONL lines whole.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

var _ Writer = (*JSONLWriter)(nil)
