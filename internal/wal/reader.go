package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrCorruptLog is returned when a complete record fails validation.
var ErrCorruptLog = errors.New("log is corrupted")

type segment struct {
	id   uint64
	path string
}

// listSegments returns the segment files in dir ordered by ID.
func listSegments(dir string) ([]segment, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+segmentExt))
	if err != nil {
		return nil, fmt.Errorf("failed to list segment files: %w", err)
	}

	segments := make([]segment, 0, len(files))
	for _, f := range files {
		id, err := strconv.ParseUint(strings.TrimSuffix(filepath.Base(f), segmentExt), 10, 64)
		if err != nil {
			continue
		}
		segments = append(segments, segment{id: id, path: f})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].id < segments[j].id })
	return segments, nil
}

// LogReader reads records from every segment in order.
type LogReader struct {
	segments []segment
	current  int      // Index of the segment being read
	file     *os.File // Current segment file
}

// NewLogReader creates a LogReader over the segments present in dir.
func NewLogReader(dir string) (*LogReader, error) {
	segments, err := listSegments(dir)
	if err != nil {
		return nil, err
	}
	return &LogReader{segments: segments}, nil
}

// Next returns the next record, or io.EOF after the last segment.
// A truncated record at the end of a segment (a torn write) ends that segment.
func (r *LogReader) Next() (*Record, error) {
	for {
		if r.file == nil {
			if r.current >= len(r.segments) {
				return nil, io.EOF
			}
			file, err := os.Open(r.segments[r.current].path)
			if err != nil {
				return nil, fmt.Errorf("failed to open segment %s: %w", r.segments[r.current].path, err)
			}
			r.file = file
		}

		record, err := r.readRecord()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			_ = r.file.Close()
			r.file = nil
			r.current++
			continue
		}
		return record, err
	}
}

func (r *LogReader) readRecord() (*Record, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r.file, header); err != nil {
		return nil, err
	}

	wordLen := binary.BigEndian.Uint16(header[9:11])
	buf := make([]byte, HeaderSize+int(wordLen))
	copy(buf, header)
	if _, err := io.ReadFull(r.file, buf[HeaderSize:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}

	record := &Record{}
	if err := record.Decode(buf); err != nil {
		return nil, fmt.Errorf("%w: segment %s: %v", ErrCorruptLog, r.segments[r.current].path, err)
	}
	return record, nil
}

// segmentComplete reports whether seg ends exactly on a record boundary.
func segmentComplete(seg segment) (bool, error) {
	file, err := os.Open(seg.path)
	if err != nil {
		return false, fmt.Errorf("failed to open segment %s: %w", seg.path, err)
	}
	r := &LogReader{segments: []segment{seg}, file: file}
	defer r.Close()

	for {
		_, err := r.readRecord()
		switch {
		case err == io.EOF:
			return true, nil
		case err == io.ErrUnexpectedEOF:
			return false, nil
		case err != nil:
			return false, err
		}
	}
}

// Close closes any open segment file.
func (r *LogReader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
