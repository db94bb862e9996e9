// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import "github.com/cockroachdb/errors"

// FormatVersion selects the binary tree frame variant.
type FormatVersion int

const (
	// FormatV1 is the legacy frame without duplicate-key grouping
	// metadata.
	FormatV1 FormatVersion = 0

	// FormatV2 prefixes every entry of a sorted block with a
	// (index, count) grouping pair. Containers use this frame.
	FormatV2 FormatVersion = 1
)

// Binary tree frame, per block: bool sorted, uint32 count, then count
// entries. In a sorted FormatV2 block each entry starts with uint32 index
// (position among entries sharing its name) and uint32 count (group size
// on the first entry of a group, zero on the rest). Then byte kind and the
// name; parameters carry a value string, blocks recurse.
//
// Real files nest arbitrarily deep, so both directions run on an explicit
// frame stack rather than the call stack.

// SaveBinary writes the tree to s in depth-first pre-order.
func (bp *BlockPar) SaveBinary(s *Stream, version FormatVersion) error {
	type frame struct {
		sorted bool
		elems  []*Element
		meta   []groupMeta
		next   int
	}

	open := func(b *BlockPar) (frame, error) {
		if err := s.WriteBool(b.Sorted); err != nil {
			return frame{}, err
		}
		if err := s.WriteUint(uint32(b.Len())); err != nil {
			return frame{}, err
		}
		f := frame{sorted: b.Sorted, elems: b.Elements()}
		if version == FormatV2 && b.Sorted {
			f.meta = groupElements(f.elems)
		}
		return f, nil
	}

	root, err := open(bp)
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
		if f.meta != nil {
			m := f.meta[f.next]
			if err := s.WriteUint(m.index); err != nil {
				return err
			}
			if err := s.WriteUint(m.count); err != nil {
				return err
			}
		}
		f.next++

		switch el.Kind {
		case KindParam:
			if err := s.WriteByte(byte(KindParam)); err != nil {
				return err
			}
			if err := s.WriteWideStr(el.Name); err != nil {
				return err
			}
			if err := s.WriteWideStr(el.Value); err != nil {
				return err
			}

		case KindBlock:
			if err := s.WriteByte(byte(KindBlock)); err != nil {
				return err
			}
			if err := s.WriteWideStr(el.Name); err != nil {
				return err
			}
			child, err := open(el.Block)
			if err != nil {
				return err
			}
			stack = append(stack, child)

		default:
			return errors.Newf("blockpar: element %q has undefined kind", el.Name)
		}
	}
	return nil
}

// LoadBinary reads a tree from s, mirroring SaveBinary. The grouping pair
// of sorted FormatV2 entries is consumed but not trusted; ordering is
// reconstructed from the entries themselves.
func LoadBinary(s *Stream, version FormatVersion) (*BlockPar, error) {
	root := New()

	sorted, err := s.ReadBool()
	if err != nil {
		return nil, err
	}
	root.Sorted = sorted
	count, err := s.ReadUint()
	if err != nil {
		return nil, err
	}

	type frame struct {
		bp   *BlockPar
		left uint32
	}
	stack := []frame{{root, count}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.left == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		f.left--

		if version == FormatV2 && f.bp.Sorted {
			if _, err := s.Read(8); err != nil {
				return nil, errors.Wrap(err, "grouping metadata")
			}
		}

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
			sorted, err := s.ReadBool()
			if err != nil {
				return nil, err
			}
			child.Sorted = sorted
			count, err := s.ReadUint()
			if err != nil {
				return nil, err
			}
			stack = append(stack, frame{child, count})

		default:
			return nil, errors.Newf("blockpar: unknown element kind %d", kind)
		}
	}
	return root, nil
}
