// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Dotted-path lookup. A path like "Weapons.Laser.Damage" descends through
// block elements; the final segment may carry a ":N" selector choosing the
// N-th (0-based) entry among duplicates of that key, e.g. "root.child:1".

// GetParPath resolves path to a parameter value.
func (bp *BlockPar) GetParPath(path string) (string, error) {
	el, err := bp.resolvePath(path)
	if err != nil {
		return "", err
	}
	if el.Kind != KindParam {
		return "", errors.Wrapf(ErrKindMismatch, "%s: not a parameter", path)
	}
	return el.Value, nil
}

// GetBlockPath resolves path to a child block.
func (bp *BlockPar) GetBlockPath(path string) (*BlockPar, error) {
	el, err := bp.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if el.Kind != KindBlock {
		return nil, errors.Wrapf(ErrKindMismatch, "%s: not a block", path)
	}
	return el.Block, nil
}

func (bp *BlockPar) resolvePath(path string) (*Element, error) {
	segments := strings.Split(strings.TrimSpace(path), ".")
	cur := bp
	for i, seg := range segments {
		last := i == len(segments)-1
		if !last {
			el, ok := cur.Get(seg)
			if !ok {
				return nil, errors.Wrapf(ErrPathNotFound, "segment %q of %q", seg, path)
			}
			if el.Kind != KindBlock {
				return nil, errors.Wrapf(ErrKindMismatch, "segment %q of %q is not a block", seg, path)
			}
			cur = el.Block
			continue
		}

		name, index, err := splitSelector(seg, path)
		if err != nil {
			return nil, err
		}
		dups := cur.GetAll(name)
		if len(dups) == 0 {
			return nil, errors.Wrapf(ErrPathNotFound, "segment %q of %q", name, path)
		}
		if index >= len(dups) {
			return nil, errors.Wrapf(ErrIndexOutOfRange, "%q has %d entries, want index %d", name, len(dups), index)
		}
		return dups[index], nil
	}
	return nil, errors.Wrapf(ErrPathNotFound, "empty path %q", path)
}

// splitSelector splits a final segment into its name and optional :N index.
func splitSelector(seg, path string) (string, int, error) {
	colon := strings.LastIndexByte(seg, ':')
	if colon < 0 {
		return seg, 0, nil
	}
	index, err := strconv.Atoi(seg[colon+1:])
	if err != nil || index < 0 {
		return "", 0, errors.Wrapf(ErrPathNotFound, "bad selector %q in %q", seg, path)
	}
	return seg[:colon], index, nil
}
