package wal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrClosed is returned when attempting to write to a closed log.
	ErrClosed = errors.New("log is closed")
)

const (
	// DefaultBufferSize is the default size of the write buffer.
	DefaultBufferSize = 4 * 1024 // 4KB
	// DefaultSegmentSize is the default size of each segment file.
	DefaultSegmentSize = 64 << 20 // 64MB
	// DefaultFlushInterval is how often buffered records are written out in the background.
	DefaultFlushInterval = time.Second

	segmentExt = ".wal"
)

// segmentFile is the part of *os.File the writer uses.
type segmentFile interface {
	io.Writer
	Sync() error
	Close() error
}

// LogWriter appends records to the newest segment.
type LogWriter struct {
	mu          sync.Mutex
	dir         string         // Directory where segments are stored
	file        segmentFile    // Current segment file
	segmentID   uint64         // Current segment ID
	offset      int64          // Bytes written to the current segment
	segmentSize int64          // Maximum size of each segment file
	buf         *bytes.Buffer  // Records not yet written to the file
	sync        bool           // Whether to fsync after each flush
	closed      bool           // Whether the writer is closed
	flushTicker *time.Ticker   // Ticker for periodic flushes
	stopCh      chan struct{}  // Channel to stop background flusher
	wg          sync.WaitGroup // Wait group for background flusher
}

// NewLogWriter creates a LogWriter in dir. It appends to the newest segment if
// that segment ends on a record boundary and has room, otherwise to a new one.
func NewLogWriter(dir string, config *Config) (*LogWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	segmentSize := config.SegmentSize
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}

	flushInterval := config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}

	w := &LogWriter{
		dir:         dir,
		sync:        config.Sync,
		segmentSize: segmentSize,
		buf:         bytes.NewBuffer(make([]byte, 0, bufferSize)),
		stopCh:      make(chan struct{}),
		flushTicker: time.NewTicker(flushInterval),
	}

	if err := w.openSegment(); err != nil {
		w.flushTicker.Stop()
		return nil, err
	}

	w.wg.Add(1)
	go w.backgroundFlusher()

	return w, nil
}

// Write buffers a record, rotating to a new segment when the current one is full.
func (w *LogWriter) Write(record *Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	data, err := record.Encode()
	if err != nil {
		return 0, err
	}

	pending := w.offset + int64(w.buf.Len())
	if pending > 0 && pending+int64(len(data)) > w.segmentSize {
		if err := w.rotateSegment(); err != nil {
			return 0, fmt.Errorf("failed to rotate segment: %w", err)
		}
	}

	if _, err := w.buf.Write(data); err != nil {
		return 0, fmt.Errorf("failed to write to buffer: %w", err)
	}

	return record.LSN, nil
}

// Flush writes any buffered records to the segment file.
func (w *LogWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.flushBuffer(); err != nil {
		return fmt.Errorf("flush failed: %w", err)
	}
	return nil
}

// Rotate flushes and starts a new segment, returning its ID.
func (w *LogWriter) Rotate() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if err := w.rotateSegment(); err != nil {
		return 0, err
	}
	return w.segmentID, nil
}

// SegmentID returns the ID of the segment currently being written.
func (w *LogWriter) SegmentID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.segmentID
}

// flushBuffer writes the buffered data to disk.
// Caller must hold w.mu
func (w *LogWriter) flushBuffer() error {
	if w.buf.Len() == 0 {
		return nil
	}

	n, err := w.file.Write(w.buf.Bytes())
	w.offset += int64(n)
	w.buf.Next(n)
	if err != nil {
		return err
	}

	if w.sync {
		return w.file.Sync()
	}
	return nil
}

// backgroundFlusher periodically flushes the buffer to disk.
func (w *LogWriter) backgroundFlusher() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case <-w.flushTicker.C:
			if w.mu.TryLock() {
				if !w.closed {
					_ = w.flushBuffer()
				}
				w.mu.Unlock()
			}
		}
	}
}

// Close flushes remaining records and closes the current segment.
func (w *LogWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.flushTicker.Stop()
	close(w.stopCh)
	w.mu.Unlock()

	// Wait outside the lock so the flusher can finish a pending TryLock
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushBuffer(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to flush buffer during close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close segment file: %w", err)
	}
	return nil
}

// openSegment reopens the highest segment in dir when it is intact and below
// the size limit. A torn tail is never appended to, since records after it
// would be unreachable.
func (w *LogWriter) openSegment() error {
	segments, err := listSegments(w.dir)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return w.createSegment(1)
	}

	last := segments[len(segments)-1]
	info, err := os.Stat(last.path)
	if err != nil {
		return err
	}
	if info.Size() < w.segmentSize {
		complete, err := segmentComplete(last)
		if err != nil {
			return err
		}
		if complete {
			return w.createSegment(last.id)
		}
	}
	return w.createSegment(last.id + 1)
}

func (w *LogWriter) createSegment(id uint64) error {
	file, err := os.OpenFile(segmentPath(w.dir, id), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		_ = file.Close()
		return err
	}

	w.file = file
	w.segmentID = id
	w.offset = offset
	return nil
}

// rotateSegment flushes and closes the current segment and opens the next one.
// Caller must hold w.mu
func (w *LogWriter) rotateSegment() error {
	if err := w.flushBuffer(); err != nil {
		return err
	}
	if w.file != nil {
		if err := w.file.Sync(); err != nil {
			return err
		}
		if err := w.file.Close(); err != nil {
			return err
		}
	}
	return w.createSegment(w.segmentID + 1)
}

func segmentPath(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%020d%s", id, segmentExt))
}
