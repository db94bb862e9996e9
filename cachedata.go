// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// CacheData is the reduced variant of the tree used by the engine's cache
// files: every level is key-sorted with no insertion-order tracking, the
// binary frame omits the sorted flag and grouping metadata, and the text
// form has no sort markers or heredocs. It shares the BlockPar model and
// path lookup, constrained to sorted-only trees.
type CacheData struct {
	root *BlockPar
}

// NewCacheData returns an empty CacheData.
func NewCacheData() *CacheData {
	return &CacheData{root: New()}
}

// Tree exposes the underlying sorted tree.
func (cd *CacheData) Tree() *BlockPar { return cd.root }

// Len returns the number of top-level elements.
func (cd *CacheData) Len() int { return cd.root.Len() }

// Add appends a parameter. Duplicate names are allowed.
func (cd *CacheData) Add(name, value string) { cd.root.Add(name, value) }

// AddBlock appends a fresh child block.
func (cd *CacheData) AddBlock(name string) *BlockPar { return cd.root.AddBlock(name) }

// Set replaces every element named name with a single parameter.
func (cd *CacheData) Set(name, value string) { cd.root.Set(name, value) }

// GetParPath resolves a dotted path to a parameter value.
func (cd *CacheData) GetParPath(path string) (string, error) {
	return cd.root.GetParPath(path)
}

// GetBlockPath resolves a dotted path to a child block.
func (cd *CacheData) GetBlockPath(path string) (*BlockPar, error) {
	return cd.root.GetBlockPath(path)
}

// SaveBinary writes the cache frame: uint32 count, then entries; nested
// blocks carry only their own count. Same explicit-stack walk as BlockPar.
func (cd *CacheData) SaveBinary(s *Stream) error {
	type frame struct {
		elems []*Element
		next  int
	}

	open := func(b *BlockPar) (frame, error) {
		if err := s.WriteUint(uint32(b.Len())); err != nil {
			return frame{}, err
		}
		return frame{elems: b.Elements()}, nil
	}

	root, err := open(cd.root)
	if err != nil {
		return err
	}
	stack := []frame{root}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.next >= len(f.elems) {
			stack = stack[:len(stack)-1]
			continue
		}
		el := f.elems[f.next]
		f.next++

		if err := s.WriteByte(byte(el.Kind)); err != nil {
			return err
		}
		if err := s.WriteWideStr(el.Name); err != nil {
			return err
		}
		switch el.Kind {
		case KindParam:
			if err := s.WriteWideStr(el.Value); err != nil {
				return err
			}
		case KindBlock:
			child, err := open(el.Block)
			if err != nil {
				return err
			}
			stack = append(stack, child)
		default:
			return errors.Newf("cachedata: element %q has undefined kind", el.Name)
		}
	}
	return nil
}

// LoadCacheBinary reads a cache frame, mirroring SaveBinary.
func LoadCacheBinary(s *Stream) (*CacheData, error) {
	cd := NewCacheData()

	count, err := s.ReadUint()
	if err != nil {
		return nil, err
	}

	type frame struct {
		bp   *BlockPar
		left uint32
	}
	stack := []frame{{cd.root, count}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.left == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		f.left--

		kind, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		name, err := s.ReadWideStr()
		if err != nil {
			return nil, err
		}
		switch Kind(kind) {
		case KindParam:
			value, err := s.ReadWideStr()
			if err != nil {
				return nil, err
			}
			f.bp.Add(name, value)
		case KindBlock:
			child := f.bp.AddBlock(name)
			count, err := s.ReadUint()
			if err != nil {
				return nil, err
			}
			stack = append(stack, frame{child, count})
		default:
			return nil, errors.Newf("cachedata: unknown element kind %d", kind)
		}
	}
	return cd, nil
}

// LoadCacheContainer decodes an encrypted, compressed cache container.
func LoadCacheContainer(data []byte) (*CacheData, error) {
	payload, err := decodeContainer(data, cacheDataSeedKey)
	if err != nil {
		return nil, err
	}
	s := NewStream(NewBuffer(payload))
	defer s.Close()
	return LoadCacheBinary(s)
}

// SaveCacheContainer encodes the cache tree as a container.
func SaveCacheContainer(cd *CacheData) ([]byte, error) {
	buf := NewBuffer(nil)
	s := NewStream(buf)
	if err := cd.SaveBinary(s); err != nil {
		return nil, err
	}
	return encodeContainer(buf.Bytes(), cacheDataSeedKey, 0)
}

// OpenCacheContainer reads and decodes a cache container file.
func OpenCacheContainer(path string) (*CacheData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open cache container")
	}
	cd, err := LoadCacheContainer(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return cd, nil
}

// WriteCacheContainer encodes the cache tree and writes it to a file.
func WriteCacheContainer(path string, cd *CacheData) error {
	data, err := SaveCacheContainer(cd)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCacheText parses the reduced text form: comments, name=value lines
// and unmarked blocks only.
func LoadCacheText(r io.Reader) (*CacheData, error) {
	br := bufio.NewReader(r)
	cd := NewCacheData()
	cur := cd.root
	var stack []*BlockPar

	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		eof := err == io.EOF
		if raw == "" && eof {
			break
		}

		line := strings.Trim(raw, "\t\r\n ")
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimRight(line[:i], "\t ")
		}

		switch {
		case strings.ContainsRune(line, '{'):
			head := strings.TrimRight(line[:strings.IndexByte(line, '{')], "\t ")
			stack = append(stack, cur)
			cur = cur.AddBlock(head)

		case strings.ContainsRune(line, '}'):
			if n := len(stack); n > 0 {
				cur = stack[n-1]
				stack = stack[:n-1]
			}

		case strings.ContainsRune(line, '='):
			i := strings.IndexByte(line, '=')
			name := strings.TrimRight(line[:i], "\t ")
			value := strings.TrimLeft(line[i+1:], "\t ")
			cur.Add(name, value)
		}

		if eof {
			break
		}
	}
	return cd, nil
}

// SaveText writes the reduced text form to w.
func (cd *CacheData) SaveText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	type frame struct {
		elems []*Element
		next  int
	}
	stack := []frame{{elems: cd.root.Elements()}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		level := len(stack) - 1
		if f.next >= len(f.elems) {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				writeIndent(bw, len(stack)-1)
				bw.WriteString("}\r\n")
			}
			continue
		}
		el := f.elems[f.next]
		f.next++

		writeIndent(bw, level)
		switch el.Kind {
		case KindParam:
			bw.WriteString(el.Name)
			bw.WriteByte('=')
			bw.WriteString(el.Value)
			bw.WriteString("\r\n")
		case KindBlock:
			bw.WriteString(el.Name)
			bw.WriteString(" {\r\n")
			stack = append(stack, frame{elems: el.Block.Elements()})
		default:
			bw.WriteString("\r\n")
		}
	}
	return bw.Flush()
}
