// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
)

// Storage is the engine's "STRG" bulk data file: named records of named,
// typed columns, each column a flat offset-table array of fixed-size
// elements. Only reading is supported; the engine never consumes
// third-party storage files.

// storageMagic opens every storage file.
const storageMagic = "STRG"

// StorageKind is a column element type.
type StorageKind uint32

const (
	StorageInt32 StorageKind = iota
	StorageDword
	StorageByte
	StorageFloat
	StorageDouble
	StorageWChar
)

// elementSize returns the on-disk size of one element of this kind.
func (k StorageKind) elementSize() int {
	switch k {
	case StorageDouble:
		return 8
	case StorageByte:
		return 1
	case StorageWChar:
		return 2
	default:
		return 4
	}
}

// storageCompressed flags a column whose body is wrapped in a compression
// frame.
const storageCompressed = uint32(1) << 31

// DataTable holds one column's entries as raw little-endian bytes.
type DataTable struct {
	elSize  int
	entries [][]byte
}

// Len returns the number of entries.
func (dt *DataTable) Len() int { return len(dt.entries) }

// Entry returns the raw bytes of entry i.
func (dt *DataTable) Entry(i int) []byte { return dt.entries[i] }

// WideStr decodes entry i as UTF-16LE text (no terminator).
func (dt *DataTable) WideStr(i int) string {
	raw := dt.entries[i]
	units := make([]uint16, len(raw)/2)
	for j := range units {
		units[j] = binary.LittleEndian.Uint16(raw[2*j:])
	}
	return string(utf16.Decode(units))
}

// load reads the offset-table layout occupying size bytes from the current
// position: a header pointing at an allocation table whose entries locate
// each array inside the region. The cursor ends just past the region.
func (dt *DataTable) load(s *Stream, size int64) error {
	initPos, err := s.Pos()
	if err != nil {
		return err
	}
	tableOffset, err := s.ReadUint()
	if err != nil {
		return err
	}
	arrays, err := s.ReadInt()
	if err != nil {
		return err
	}
	elSize, err := s.ReadInt()
	if err != nil {
		return err
	}
	dt.elSize = int(elSize)

	const entrySize = 12 // uint32 offset, int32 number, int32 allocated
	for i := int32(0); i < arrays; i++ {
		if _, err := s.Seek(initPos+int64(tableOffset)+int64(i)*entrySize, io.SeekStart); err != nil {
			return err
		}
		offset, err := s.ReadUint()
		if err != nil {
			return err
		}
		number, err := s.ReadInt()
		if err != nil {
			return err
		}
		if _, err := s.ReadInt(); err != nil { // allocated count, unused
			return err
		}
		if _, err := s.Seek(initPos+int64(offset), io.SeekStart); err != nil {
			return err
		}
		entry, err := s.Read(int(elSize) * int(number))
		if err != nil {
			return err
		}
		dt.entries = append(dt.entries, entry)
	}
	_, err = s.Seek(initPos+size, io.SeekStart)
	return err
}

// StorageItem is one named, typed column.
type StorageItem struct {
	Name       string
	Kind       StorageKind
	Compressed bool
	Table      *DataTable
}

func (it *StorageItem) load(s *Stream) error {
	var err error
	if it.Name, err = s.ReadWideStr(); err != nil {
		return err
	}
	kindRaw, err := s.ReadUint()
	if err != nil {
		return err
	}
	it.Kind = StorageKind(kindRaw &^ storageCompressed)
	it.Compressed = kindRaw&storageCompressed != 0
	size, err := s.ReadUint()
	if err != nil {
		return err
	}

	it.Table = &DataTable{elSize: it.Kind.elementSize()}
	if it.Compressed {
		packed, err := s.Read(int(size))
		if err != nil {
			return err
		}
		plain, err := Decompress(packed)
		if err != nil {
			return errors.Wrapf(err, "column %q", it.Name)
		}
		ts := NewStream(NewBuffer(plain))
		defer ts.Close()
		return it.Table.load(ts, int64(len(plain)))
	}
	return it.Table.load(s, int64(size))
}

// StorageRecord is one named table of columns.
type StorageRecord struct {
	Name  string
	Items []*StorageItem
}

// Get returns the named column, or nil.
func (r *StorageRecord) Get(column string) *DataTable {
	for _, it := range r.Items {
		if it.Name == column {
			return it.Table
		}
	}
	return nil
}

func (r *StorageRecord) load(s *Stream) error {
	var err error
	if r.Name, err = s.ReadWideStr(); err != nil {
		return err
	}
	count, err := s.ReadUint()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		item := &StorageItem{}
		if err := item.load(s); err != nil {
			return err
		}
		r.Items = append(r.Items, item)
	}
	return nil
}

// Storage is a loaded STRG file.
type Storage struct {
	Records []*StorageRecord
}

// Get returns the named column of the named record, or nil.
func (st *Storage) Get(table, column string) *DataTable {
	for _, r := range st.Records {
		if r.Name == table {
			return r.Get(column)
		}
	}
	return nil
}

// LoadStorage reads a storage file from s. Version 1 files wrap the whole
// record section in a compression frame.
func LoadStorage(s *Stream) (*Storage, error) {
	magic, err := s.Read(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != storageMagic {
		return nil, errors.Wrapf(ErrBadMagic, "storage magic %q", magic)
	}
	version, err := s.ReadUint()
	if err != nil {
		return nil, err
	}
	if version > 1 {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "storage version %d", version)
	}

	if version == 1 {
		size, err := s.Size()
		if err != nil {
			return nil, err
		}
		pos, err := s.Pos()
		if err != nil {
			return nil, err
		}
		packed, err := s.Read(int(size - pos))
		if err != nil {
			return nil, err
		}
		plain, err := Decompress(packed)
		if err != nil {
			return nil, err
		}
		s = NewStream(NewBuffer(plain))
		defer s.Close()
	}

	st := &Storage{}
	count, err := s.ReadUint()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		record := &StorageRecord{}
		if err := record.load(s); err != nil {
			return nil, err
		}
		st.Records = append(st.Records, record)
	}
	return st, nil
}

// OpenStorage reads a storage file from disk.
func OpenStorage(path string) (*Storage, error) {
	s, err := OpenStream(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	st, err := LoadStorage(s)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return st, nil
}

// RestoreBlockPar rebuilds a tree from the record naming convention the
// engine uses to flatten one: columns "0"/"1" hold parameter names and
// values, "2"/"3" hold child block names and the records they live in.
func (st *Storage) RestoreBlockPar(root string) (*BlockPar, error) {
	return st.restore(root, map[string]bool{})
}

func (st *Storage) restore(root string, seen map[string]bool) (*BlockPar, error) {
	if seen[root] {
		return nil, errors.Newf("storage: record %q references itself", root)
	}
	seen[root] = true
	defer delete(seen, root)

	bp := New()

	keys, values := st.Get(root, "0"), st.Get(root, "1")
	if keys == nil || values == nil {
		return nil, errors.Wrapf(ErrPathNotFound, "storage record %q", root)
	}
	for i := 0; i < keys.Len(); i++ {
		bp.Add(keys.WideStr(i), values.WideStr(i))
	}

	keys, values = st.Get(root, "2"), st.Get(root, "3")
	if keys == nil || values == nil {
		return bp, nil
	}
	for i := 0; i < keys.Len(); i++ {
		child, err := st.restore(values.WideStr(i), seen)
		if err != nil {
			return nil, err
		}
		bp.AddChild(keys.WideStr(i), child)
	}
	return bp, nil
}
