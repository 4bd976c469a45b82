package wal

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"math"
)

// RecordType represents the type of a log record.
type RecordType byte

const (
	// RecordAdd records that a word was added.
	RecordAdd RecordType = iota + 1
	// RecordDelete records that a word was deleted.
	RecordDelete
)

func (t RecordType) String() string {
	switch t {
	case RecordAdd:
		return "add"
	case RecordDelete:
		return "delete"
	default:
		return "unknown"
	}
}

const (
	// HeaderSize is the size of the record header in bytes.
	// LSN (8) + Type (1) + WordLen (2) + Checksum (4) = 15 bytes
	HeaderSize = 15
	// MaxWordSize is the largest payload a record can carry.
	MaxWordSize = math.MaxUint16
)

var (
	// ErrChecksum is returned when a record's payload does not match its checksum.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrRecordTooLarge is returned when a word does not fit in a record.
	ErrRecordTooLarge = errors.New("record too large")
)

// Header represents the header of a log record.
type Header struct {
	LSN      uint64     // Log Sequence Number (8 bytes)
	Type     RecordType // Record type (1 byte)
	WordLen  uint16     // Length of the word (2 bytes)
	Checksum uint32     // CRC32 of the word (4 bytes)
}

// Record is a single log entry.
type Record struct {
	Header
	Word []byte
}

// NewRecord creates a record of type t for word.
func NewRecord(lsn uint64, t RecordType, word []byte) *Record {
	return &Record{
		Header: Header{
			LSN:     lsn,
			Type:    t,
			WordLen: uint16(len(word)),
		},
		Word: word,
	}
}

// Encode encodes the record into a byte slice.
func (r *Record) Encode() ([]byte, error) {
	if len(r.Word) > MaxWordSize {
		return nil, ErrRecordTooLarge
	}

	buf := make([]byte, HeaderSize+len(r.Word))

	binary.BigEndian.PutUint64(buf[0:], r.LSN)
	buf[8] = byte(r.Type)
	binary.BigEndian.PutUint16(buf[9:], uint16(len(r.Word)))
	copy(buf[HeaderSize:], r.Word)

	r.WordLen = uint16(len(r.Word))
	r.Checksum = crc32.ChecksumIEEE(buf[HeaderSize:])
	binary.BigEndian.PutUint32(buf[11:], r.Checksum)

	return buf, nil
}

// Decode decodes a byte slice into the record.
func (r *Record) Decode(data []byte) error {
	if len(data) < HeaderSize {
		return io.ErrShortBuffer
	}

	r.LSN = binary.BigEndian.Uint64(data[0:])
	r.Type = RecordType(data[8])
	r.WordLen = binary.BigEndian.Uint16(data[9:])
	r.Checksum = binary.BigEndian.Uint32(data[11:])

	end := HeaderSize + int(r.WordLen)
	if len(data) < end {
		return io.ErrUnexpectedEOF
	}
	if crc32.ChecksumIEEE(data[HeaderSize:end]) != r.Checksum {
		return ErrChecksum
	}

	r.Word = make([]byte, r.WordLen)
	copy(r.Word, data[HeaderSize:end])
	return nil
}
