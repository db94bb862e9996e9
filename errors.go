// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import "github.com/cockroachdb/errors"

// Decode and lookup failures are reported as wrapped sentinel errors;
// match them with errors.Is.
var (
	// ErrTruncated means the input ended in the middle of a field.
	ErrTruncated = errors.New("blockpar: truncated input")

	// ErrBadMagic means a frame started with an unknown tag.
	ErrBadMagic = errors.New("blockpar: bad magic")

	// ErrUnsupportedFormat means a recognized but unimplemented frame tag
	// (ZL02) or format version was requested.
	ErrUnsupportedFormat = errors.New("blockpar: unsupported format")

	// ErrIntegrity means decoded content contradicts its own framing: the
	// container CRC-32 did not match its payload, or a zlib stream held
	// more bytes than its frame declared.
	ErrIntegrity = errors.New("blockpar: content hash mismatch")

	// ErrUnterminatedHeredoc means a <<< value reached EOF before >>>.
	ErrUnterminatedHeredoc = errors.New("blockpar: heredoc end marker not found")

	// ErrPathNotFound means a dotted-path segment did not resolve.
	ErrPathNotFound = errors.New("blockpar: path not found")

	// ErrKindMismatch means a path segment resolved to a parameter where a
	// block was required, or vice versa.
	ErrKindMismatch = errors.New("blockpar: element kind mismatch")

	// ErrIndexOutOfRange means a :N path selector exceeded the number of
	// entries sharing the final key.
	ErrIndexOutOfRange = errors.New("blockpar: duplicate index out of range")
)
