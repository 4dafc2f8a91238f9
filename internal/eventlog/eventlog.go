// Package eventlog writes formation lifecycle events as zstd-compressed
// JSONL, one file per run. Cheap enough to leave on for every headless run
// and replayable with any zstd-aware tool.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/mcjdh/galactic-ring-cannon-sub004/internal/arena"
)

// Writer appends JSON lines to a zstd stream.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// New creates (or truncates) the log file at path.
func New(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("event log: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("event log: %w", err)
	}
	return &Writer{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Write marshals v and appends it as one line.
func (w *Writer) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes and closes the stream and file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	var err error
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	return err
}

// entry is the on-disk shape of one lifecycle event.
type entry struct {
	Kind  string `json:"kind"`
	Event any    `json:"event"`
}

// Sink adapts the writer to arena.EventSink. Write errors are remembered,
// not raised mid-tick.
type Sink struct {
	w   *Writer
	err error
}

// NewSink wraps a writer.
func NewSink(w *Writer) *Sink { return &Sink{w: w} }

// Err returns the first write error, if any.
func (s *Sink) Err() error { return s.err }

func (s *Sink) FormationFormed(ev arena.FormationFormedEvent) {
	if err := s.w.Write(entry{Kind: "formed", Event: ev}); err != nil && s.err == nil {
		s.err = err
	}
}

func (s *Sink) FormationBroken(ev arena.FormationBrokenEvent) {
	if err := s.w.Write(entry{Kind: "broken", Event: ev}); err != nil && s.err == nil {
		s.err = err
	}
}
