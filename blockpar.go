// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import "sort"

// Kind discriminates what an element holds.
type Kind byte

const (
	// KindUndef marks an element with no content. It never appears in
	// serialized data.
	KindUndef Kind = iota

	// KindParam is a string value.
	KindParam

	// KindBlock is a nested BlockPar.
	KindBlock
)

// Element is one named entry inside a BlockPar. A block element
// exclusively owns its child tree.
type Element struct {
	Name    string
	Kind    Kind
	Value   string    // parameter content when Kind is KindParam
	Block   *BlockPar // child tree when Kind is KindBlock
	Comment string    // trailing // comment from the text form, if any
}

// BlockPar is a hierarchical ordered multimap: keys may repeat, and
// entries sharing a key keep their relative insertion order. The Sorted
// flag selects the canonical iteration order for this level only: when
// set, elements are visited in lexicographic key order (stable, so
// duplicates stay in insertion order); when clear, in pure insertion
// order. New trees are sorted by default.
type BlockPar struct {
	Sorted bool

	elems  []*Element
	parent *BlockPar
}

// New returns an empty sorted BlockPar.
func New() *BlockPar {
	return &BlockPar{Sorted: true}
}

// Len returns the number of elements at this level.
func (bp *BlockPar) Len() int { return len(bp.elems) }

// Parent returns the enclosing tree, or nil at the root. The reference is
// non-owning and is never serialized; it only serves path queries.
func (bp *BlockPar) Parent() *BlockPar { return bp.parent }

// Add appends a parameter. Duplicate names are allowed.
func (bp *BlockPar) Add(name, value string) *Element {
	el := &Element{Name: name, Kind: KindParam, Value: value}
	bp.elems = append(bp.elems, el)
	return el
}

// AddBlock appends a fresh empty child block and returns it.
func (bp *BlockPar) AddBlock(name string) *BlockPar {
	child := &BlockPar{Sorted: true, parent: bp}
	bp.elems = append(bp.elems, &Element{Name: name, Kind: KindBlock, Block: child})
	return child
}

// AddChild appends an existing tree as a child block, adopting it.
func (bp *BlockPar) AddChild(name string, child *BlockPar) {
	child.parent = bp
	bp.elems = append(bp.elems, &Element{Name: name, Kind: KindBlock, Block: child})
}

// Set replaces every element named name with a single parameter.
func (bp *BlockPar) Set(name, value string) *Element {
	bp.removeAll(name)
	return bp.Add(name, value)
}

// SetBlock replaces every element named name with a fresh child block.
func (bp *BlockPar) SetBlock(name string) *BlockPar {
	bp.removeAll(name)
	return bp.AddBlock(name)
}

// SetChild replaces every element named name with an existing tree.
func (bp *BlockPar) SetChild(name string, child *BlockPar) {
	bp.removeAll(name)
	bp.AddChild(name, child)
}

func (bp *BlockPar) removeAll(name string) {
	kept := bp.elems[:0]
	for _, el := range bp.elems {
		if el.Name != name {
			kept = append(kept, el)
		}
	}
	bp.elems = kept
}

// Contains reports whether any element is named name.
func (bp *BlockPar) Contains(name string) bool {
	_, ok := bp.Get(name)
	return ok
}

// Get returns the first element named name in insertion order.
func (bp *BlockPar) Get(name string) (*Element, bool) {
	for _, el := range bp.elems {
		if el.Name == name {
			return el, true
		}
	}
	return nil, false
}

// GetAll returns every element named name in insertion order.
func (bp *BlockPar) GetAll(name string) []*Element {
	var result []*Element
	for _, el := range bp.elems {
		if el.Name == name {
			result = append(result, el)
		}
	}
	return result
}

// Elements returns the elements in canonical order: a stable sort by name
// when Sorted is set, insertion order otherwise. The returned slice is
// freshly allocated; the elements are shared.
func (bp *BlockPar) Elements() []*Element {
	result := make([]*Element, len(bp.elems))
	copy(result, bp.elems)
	if bp.Sorted {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Name < result[j].Name
		})
	}
	return result
}

// groupMeta is the duplicate-key grouping metadata serialized for sorted
// blocks: index is the element's 0-based position among entries sharing
// its name; count is the group size on the group's first entry and zero on
// the rest, matching the wire layout of shipped game files.
type groupMeta struct {
	index uint32
	count uint32
}

// groupElements computes grouping metadata for elements already in
// canonical sorted order, where entries sharing a name are contiguous.
func groupElements(elems []*Element) []groupMeta {
	meta := make([]groupMeta, len(elems))
	for i := 0; i < len(elems); {
		j := i + 1
		for j < len(elems) && elems[j].Name == elems[i].Name {
			j++
		}
		meta[i].count = uint32(j - i)
		for k := i; k < j; k++ {
			meta[k].index = uint32(k - i)
		}
		i = j
	}
	return meta
}

// Equal reports structural equality: same Sorted flags, and the same
// names, kinds and contents in canonical order at every level. Canonical
// order is what the codecs preserve: a sorted level keeps only its per-key
// duplicate order, not the overall insertion order. Parent references and
// comments are ignored. Traversal is iterative; input trees may be
// arbitrarily deep.
func (bp *BlockPar) Equal(other *BlockPar) bool {
	type pair struct{ a, b *BlockPar }
	stack := []pair{{bp, other}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if p.a.Sorted != p.b.Sorted || len(p.a.elems) != len(p.b.elems) {
			return false
		}
		bes := p.b.Elements()
		for i, ae := range p.a.Elements() {
			be := bes[i]
			if ae.Name != be.Name || ae.Kind != be.Kind || ae.Value != be.Value {
				return false
			}
			if ae.Kind == KindBlock {
				stack = append(stack, pair{ae.Block, be.Block})
			}
		}
	}
	return true
}
