// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"encoding/binary"
	"io"
	"math"
	"os"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
)

// Stream reads and writes fixed-width little-endian values over a seekable
// byte sink. All multi-byte values are little-endian; strings are UTF-16LE
// with a two-byte zero terminator, matching the game engine's layout.
type Stream struct {
	rws io.ReadWriteSeeker
}

// NewStream wraps an existing seekable sink.
func NewStream(rws io.ReadWriteSeeker) *Stream {
	return &Stream{rws: rws}
}

// OpenStream opens the file at path for reading.
func OpenStream(path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open stream")
	}
	return &Stream{rws: f}, nil
}

// CreateStream creates (or truncates) the file at path for writing.
func CreateStream(path string) (*Stream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create stream")
	}
	return &Stream{rws: f}, nil
}

// Close releases the underlying sink if it holds a file handle.
func (s *Stream) Close() error {
	if c, ok := s.rws.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Pos returns the current cursor position.
func (s *Stream) Pos() (int64, error) {
	return s.rws.Seek(0, io.SeekCurrent)
}

// Size returns the total size of the sink. The cursor is preserved.
func (s *Stream) Size() (int64, error) {
	pos, err := s.rws.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	size, err := s.rws.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.rws.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}

// Seek repositions the cursor.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	return s.rws.Seek(offset, whence)
}

// Read reads exactly n bytes, failing with ErrTruncated if fewer remain.
func (s *Stream) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.rws, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(ErrTruncated, "read %d bytes", n)
		}
		return nil, err
	}
	return buf, nil
}

// Write writes b at the current position.
func (s *Stream) Write(b []byte) error {
	_, err := s.rws.Write(b)
	return err
}

// ReadBool reads a single byte as a boolean (nonzero is true).
func (s *Stream) ReadBool() (bool, error) {
	b, err := s.Read(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// ReadByte reads one unsigned byte.
func (s *Stream) ReadByte() (byte, error) {
	b, err := s.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadWord reads a uint16.
func (s *Stream) ReadWord() (uint16, error) {
	b, err := s.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadInt reads an int32.
func (s *Stream) ReadInt() (int32, error) {
	v, err := s.ReadUint()
	return int32(v), err
}

// ReadUint reads a uint32.
func (s *Stream) ReadUint() (uint32, error) {
	b, err := s.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadSingle reads an IEEE-754 float32.
func (s *Stream) ReadSingle() (float32, error) {
	v, err := s.ReadUint()
	return math.Float32frombits(v), err
}

// ReadDouble reads an IEEE-754 float64.
func (s *Stream) ReadDouble() (float64, error) {
	b, err := s.Read(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadWideStr reads a zero-terminated UTF-16LE string. It scans forward two
// bytes at a time until the 0x0000 unit, re-reads the span, and leaves the
// cursor past the terminator. Content cannot contain an embedded zero unit;
// that is a limitation of the format, not a guarded condition.
func (s *Stream) ReadWideStr() (string, error) {
	start, err := s.Pos()
	if err != nil {
		return "", err
	}
	var n int64
	for {
		b, err := s.Read(2)
		if err != nil {
			return "", errors.Wrapf(err, "widestr at offset %d", start)
		}
		if b[0] == 0 && b[1] == 0 {
			break
		}
		n++
	}
	if _, err := s.Seek(start, io.SeekStart); err != nil {
		return "", err
	}
	raw, err := s.Read(int(2 * n))
	if err != nil {
		return "", err
	}
	if _, err := s.Seek(2, io.SeekCurrent); err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return string(utf16.Decode(units)), nil
}

// WriteBool writes a boolean as one byte (0 or 1).
func (s *Stream) WriteBool(v bool) error {
	if v {
		return s.Write([]byte{1})
	}
	return s.Write([]byte{0})
}

// WriteByte writes one unsigned byte.
func (s *Stream) WriteByte(v byte) error {
	return s.Write([]byte{v})
}

// WriteWord writes a uint16.
func (s *Stream) WriteWord(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return s.Write(b[:])
}

// WriteInt writes an int32.
func (s *Stream) WriteInt(v int32) error {
	return s.WriteUint(uint32(v))
}

// WriteUint writes a uint32.
func (s *Stream) WriteUint(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return s.Write(b[:])
}

// WriteSingle writes an IEEE-754 float32.
func (s *Stream) WriteSingle(v float32) error {
	return s.WriteUint(math.Float32bits(v))
}

// WriteDouble writes an IEEE-754 float64.
func (s *Stream) WriteDouble(v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return s.Write(b[:])
}

// WriteWideStr writes a UTF-16LE string followed by a zero terminator.
func (s *Stream) WriteWideStr(v string) error {
	units := utf16.Encode([]rune(v))
	buf := make([]byte, 2*len(units)+2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2*i:], u)
	}
	return s.Write(buf)
}

// Buffer is an in-memory byte sink implementing io.ReadWriteSeeker. Writes
// past the end grow the buffer; the container codec additionally needs the
// direct byte access Bytes provides for in-place ciphering and hashing.
type Buffer struct {
	data []byte
	pos  int64
}

// NewBuffer wraps data in a Buffer positioned at offset zero. The buffer
// takes ownership of the slice.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffer contents. The slice is shared, not copied.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the buffer size in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Read implements io.Reader.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n, nil
}

// Write implements io.Writer, growing the buffer as needed. Growth is
// amortized so sequential small writes stay linear.
func (b *Buffer) Write(p []byte) (int, error) {
	if end := b.pos + int64(len(p)); end > int64(len(b.data)) {
		b.data = append(b.data, make([]byte, end-int64(len(b.data)))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += int64(n)
	return n, nil
}

// Seek implements io.Seeker.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = b.pos + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, errors.Newf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = pos
	return pos, nil
}
