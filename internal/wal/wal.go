package wal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Config holds configuration options for the log.
type Config struct {
	Dir           string        // Directory to store segments
	SegmentSize   int64         // Maximum size of each segment file in bytes
	Sync          bool          // Whether to fsync on every flush
	BufferSize    int           // Size of the write buffer in bytes
	FlushInterval time.Duration // Interval for background flushes
}

// Log is an append-only, segmented log of word records.
type Log struct {
	mu      sync.Mutex
	config  *Config
	writer  *LogWriter
	lastLSN uint64
	closed  bool
}

// Open opens or creates a log in config.Dir. Existing segments are scanned to
// recover the last LSN; new records continue the newest intact segment.
func Open(config *Config) (*Log, error) {
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Log{config: config}
	if err := l.recover(); err != nil {
		return nil, fmt.Errorf("recovery failed: %w", err)
	}

	writer, err := NewLogWriter(config.Dir, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}
	l.writer = writer

	return l, nil
}

// recover finds the highest LSN on disk.
func (l *Log) recover() error {
	return l.scan(func(r *Record) error {
		if r.LSN > l.lastLSN {
			l.lastLSN = r.LSN
		}
		return nil
	})
}

func (l *Log) scan(fn func(*Record) error) error {
	reader, err := NewLogReader(l.config.Dir)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		record, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}

// Append buffers a record and returns its LSN. Call Sync to make it durable.
func (l *Log) Append(t RecordType, word []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	lsn := l.lastLSN + 1
	if _, err := l.writer.Write(NewRecord(lsn, t, word)); err != nil {
		return 0, err
	}
	l.lastLSN = lsn
	return lsn, nil
}

// Sync writes buffered records to disk.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	return l.writer.Flush()
}

// Replay calls fn for every record on disk in LSN order, after flushing
// anything still buffered.
func (l *Log) Replay(fn func(*Record) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.scan(fn)
}

// Compact replaces the whole log with one add record per word. The new
// segment is written and synced before older segments are removed, so a
// crash part way through leaves a log that still replays to the same set.
func (l *Log) Compact(words [][]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	newID, err := l.writer.Rotate()
	if err != nil {
		return fmt.Errorf("failed to start compacted segment: %w", err)
	}

	for _, w := range words {
		l.lastLSN++
		if _, err := l.writer.Write(NewRecord(l.lastLSN, RecordAdd, w)); err != nil {
			return fmt.Errorf("failed to write compacted record: %w", err)
		}
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}

	segments, err := listSegments(l.config.Dir)
	if err != nil {
		return err
	}
	for _, s := range segments {
		if s.id >= newID {
			break
		}
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove segment %s: %w", s.path, err)
		}
	}
	return nil
}

// Segments returns the number of segment files on disk.
func (l *Log) Segments() (int, error) {
	segments, err := listSegments(l.config.Dir)
	if err != nil {
		return 0, err
	}
	return len(segments), nil
}

// LastLSN returns the LSN of the most recent record.
func (l *Log) LastLSN() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastLSN
}

// Close flushes and closes the log.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.writer.Close()
}
