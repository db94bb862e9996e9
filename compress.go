// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"
)

// Compression frame tags, selected by the first four payload bytes.
const (
	// ZL01 is a single deflate block preceded by the decompressed size.
	ZL01 = "ZL01"

	// ZL02 is recognized but not supported in either direction.
	ZL02 = "ZL02"

	// ZL03 is a sequence of independently deflated chunks, each
	// decompressing to at most zl03ChunkCap bytes.
	ZL03 = "ZL03"
)

// zl03ChunkCap is the fixed per-chunk capacity of the ZL03 frame. The
// engine's decoder inflates every chunk into a buffer of this size, so the
// encoder must never produce a chunk that decompresses to more.
const zl03ChunkCap = 65000

// Decompress decodes a tagged compression frame and returns the raw
// payload. ZL02 frames fail with ErrUnsupportedFormat; an unknown tag
// fails with ErrBadMagic.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.Wrap(ErrTruncated, "compression frame magic")
	}
	switch magic := string(data[:4]); magic {
	case ZL01:
		if len(data) < 8 {
			return nil, errors.Wrap(ErrTruncated, "ZL01 frame header")
		}
		size := binary.LittleEndian.Uint32(data[4:8])
		return inflate(data[8:], int(size))

	case ZL02:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s frame", magic)

	case ZL03:
		if len(data) < 8 {
			return nil, errors.Wrap(ErrTruncated, "ZL03 frame header")
		}
		count := int32(binary.LittleEndian.Uint32(data[4:8]))
		var result []byte
		off := 8
		for i := int32(0); i < count; i++ {
			if off+4 > len(data) {
				return nil, errors.Wrapf(ErrTruncated, "chunk %d length", i)
			}
			n := int(binary.LittleEndian.Uint32(data[off:]))
			off += 4
			if off+n > len(data) {
				return nil, errors.Wrapf(ErrTruncated, "chunk %d data", i)
			}
			chunk, err := inflate(data[off:off+n], zl03ChunkCap)
			if err != nil {
				return nil, errors.Wrapf(err, "chunk %d", i)
			}
			result = append(result, chunk...)
			off += n
		}
		return result, nil

	default:
		return nil, errors.Wrapf(ErrBadMagic, "compression magic %q", data[:4])
	}
}

// Compress encodes data into the named frame format. ZL01 and ZL03 are
// supported; ZL02 fails with ErrUnsupportedFormat.
func Compress(data []byte, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case ZL01:
		buf.WriteString(ZL01)
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], uint32(len(data)))
		buf.Write(word[:])
		if err := deflate(&buf, data); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case ZL02:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s frame", format)

	case ZL03:
		count := (len(data) + zl03ChunkCap - 1) / zl03ChunkCap
		buf.WriteString(ZL03)
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], uint32(count))
		buf.Write(word[:])
		for i := 0; i < count; i++ {
			chunk := data[i*zl03ChunkCap:]
			if len(chunk) > zl03ChunkCap {
				chunk = chunk[:zl03ChunkCap]
			}
			var packed bytes.Buffer
			if err := deflate(&packed, chunk); err != nil {
				return nil, err
			}
			binary.LittleEndian.PutUint32(word[:], uint32(packed.Len()))
			buf.Write(word[:])
			buf.Write(packed.Bytes())
		}
		return buf.Bytes(), nil

	default:
		return nil, errors.Wrapf(ErrBadMagic, "compression magic %q", format)
	}
}

// inflate decompresses one zlib block of at most max output bytes. A
// stream holding more than max is a malformed frame, not extra payload.
func inflate(data []byte, max int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "create zlib reader")
	}
	defer r.Close()

	result := make([]byte, max+1)
	n, err := io.ReadFull(r, result)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, errors.Wrap(err, "zlib decompress")
	}
	if n > max {
		return nil, errors.Wrapf(ErrIntegrity, "zlib stream exceeds %d bytes", max)
	}
	return result[:n], nil
}

// deflate compresses data as one zlib block at best compression.
func deflate(w io.Writer, data []byte) error {
	zw, err := zlib.NewWriterLevel(w, zlib.BestCompression)
	if err != nil {
		return errors.Wrap(err, "create zlib writer")
	}
	if _, err := zw.Write(data); err != nil {
		return errors.Wrap(err, "zlib write")
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "zlib close")
	}
	return nil
}
