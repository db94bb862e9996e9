// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func wch(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

// columnRegion lays out an offset-table region: 12-byte header, the entry
// arrays, then the allocation table.
func columnRegion(elSize int, entries ...[]byte) []byte {
	var data []byte
	offsets := make([]uint32, len(entries))
	pos := uint32(12)
	for i, e := range entries {
		offsets[i] = pos
		data = append(data, e...)
		pos += uint32(len(e))
	}

	region := make([]byte, 12)
	binary.LittleEndian.PutUint32(region[0:], pos)
	binary.LittleEndian.PutUint32(region[4:], uint32(len(entries)))
	binary.LittleEndian.PutUint32(region[8:], uint32(elSize))
	region = append(region, data...)
	for i, e := range entries {
		var ent [12]byte
		binary.LittleEndian.PutUint32(ent[0:], offsets[i])
		binary.LittleEndian.PutUint32(ent[4:], uint32(len(e)/elSize))
		binary.LittleEndian.PutUint32(ent[8:], uint32(len(e)/elSize))
		region = append(region, ent[:]...)
	}
	return region
}

func writeItem(t *testing.T, s *Stream, name string, kind uint32, body []byte) {
	t.Helper()
	require.NoError(t, s.WriteWideStr(name))
	require.NoError(t, s.WriteUint(kind))
	require.NoError(t, s.WriteUint(uint32(len(body))))
	require.NoError(t, s.Write(body))
}

func writeRecordHeader(t *testing.T, s *Stream, name string, items uint32) {
	t.Helper()
	require.NoError(t, s.WriteWideStr(name))
	require.NoError(t, s.WriteUint(items))
}

func TestStorageLoad(t *testing.T) {
	buf := NewBuffer(nil)
	s := NewStream(buf)
	require.NoError(t, s.Write([]byte(storageMagic)))
	require.NoError(t, s.WriteUint(0)) // version

	require.NoError(t, s.WriteUint(1)) // record count
	writeRecordHeader(t, s, "Ships", 2)
	writeItem(t, s, "Name", uint32(StorageWChar),
		columnRegion(2, wch("Kling"), wch("Fei")))

	hull := make([]byte, 8)
	binary.LittleEndian.PutUint32(hull[0:], 120)
	binary.LittleEndian.PutUint32(hull[4:], 95)
	writeItem(t, s, "Hull", uint32(StorageInt32), columnRegion(4, hull))

	st, err := LoadStorage(NewStream(NewBuffer(buf.Bytes())))
	require.NoError(t, err)
	require.Len(t, st.Records, 1)

	names := st.Get("Ships", "Name")
	require.NotNil(t, names)
	require.Equal(t, 2, names.Len())
	require.Equal(t, "Kling", names.WideStr(0))
	require.Equal(t, "Fei", names.WideStr(1))

	hulls := st.Get("Ships", "Hull")
	require.NotNil(t, hulls)
	require.Equal(t, 1, hulls.Len())
	require.Equal(t, hull, hulls.Entry(0))

	require.Nil(t, st.Get("Ships", "Speed"))
	require.Nil(t, st.Get("Weapons", "Name"))
}

func TestStorageCompressedColumn(t *testing.T) {
	region := columnRegion(2, wch("packed text"))
	packed, err := Compress(region, ZL01)
	require.NoError(t, err)

	buf := NewBuffer(nil)
	s := NewStream(buf)
	require.NoError(t, s.Write([]byte(storageMagic)))
	require.NoError(t, s.WriteUint(0))
	require.NoError(t, s.WriteUint(1))
	writeRecordHeader(t, s, "Text", 1)
	writeItem(t, s, "Lines", uint32(StorageWChar)|storageCompressed, packed)

	st, err := LoadStorage(NewStream(NewBuffer(buf.Bytes())))
	require.NoError(t, err)

	require.True(t, st.Records[0].Items[0].Compressed)
	require.Equal(t, StorageWChar, st.Records[0].Items[0].Kind)
	require.Equal(t, "packed text", st.Get("Text", "Lines").WideStr(0))
}

func TestStorageVersion1(t *testing.T) {
	body := NewBuffer(nil)
	bs := NewStream(body)
	require.NoError(t, bs.WriteUint(1))
	writeRecordHeader(t, bs, "R", 1)
	writeItem(t, bs, "C", uint32(StorageWChar), columnRegion(2, wch("v1")))

	packed, err := Compress(body.Bytes(), ZL01)
	require.NoError(t, err)

	buf := NewBuffer(nil)
	s := NewStream(buf)
	require.NoError(t, s.Write([]byte(storageMagic)))
	require.NoError(t, s.WriteUint(1))
	require.NoError(t, s.Write(packed))

	st, err := LoadStorage(NewStream(NewBuffer(buf.Bytes())))
	require.NoError(t, err)
	require.Equal(t, "v1", st.Get("R", "C").WideStr(0))
}

func TestStorageBadHeader(t *testing.T) {
	_, err := LoadStorage(NewStream(NewBuffer([]byte("GRTS\x00\x00\x00\x00"))))
	require.True(t, errors.Is(err, ErrBadMagic))

	buf := NewBuffer(nil)
	s := NewStream(buf)
	require.NoError(t, s.Write([]byte(storageMagic)))
	require.NoError(t, s.WriteUint(2))
	_, err = LoadStorage(NewStream(NewBuffer(buf.Bytes())))
	require.True(t, errors.Is(err, ErrUnsupportedFormat))
}

// flatRecord writes a record in the tree flattening convention: columns
// "0"/"1" for parameters, "2"/"3" for child block names and their records.
func flatRecord(t *testing.T, s *Stream, name string, params, values, blocks, records [][]byte) {
	t.Helper()
	items := uint32(2)
	if blocks != nil {
		items = 4
	}
	writeRecordHeader(t, s, name, items)
	writeItem(t, s, "0", uint32(StorageWChar), columnRegion(2, params...))
	writeItem(t, s, "1", uint32(StorageWChar), columnRegion(2, values...))
	if blocks != nil {
		writeItem(t, s, "2", uint32(StorageWChar), columnRegion(2, blocks...))
		writeItem(t, s, "3", uint32(StorageWChar), columnRegion(2, records...))
	}
}

func TestStorageRestoreBlockPar(t *testing.T) {
	buf := NewBuffer(nil)
	s := NewStream(buf)
	require.NoError(t, s.Write([]byte(storageMagic)))
	require.NoError(t, s.WriteUint(0))
	require.NoError(t, s.WriteUint(2))
	flatRecord(t, s, "root",
		[][]byte{wch("speed")}, [][]byte{wch("300")},
		[][]byte{wch("engine")}, [][]byte{wch("root.engine")})
	flatRecord(t, s, "root.engine",
		[][]byte{wch("thrust")}, [][]byte{wch("9")}, nil, nil)

	st, err := LoadStorage(NewStream(NewBuffer(buf.Bytes())))
	require.NoError(t, err)

	bp, err := st.RestoreBlockPar("root")
	require.NoError(t, err)

	v, err := bp.GetParPath("speed")
	require.NoError(t, err)
	require.Equal(t, "300", v)

	v, err = bp.GetParPath("engine.thrust")
	require.NoError(t, err)
	require.Equal(t, "9", v)

	_, err = st.RestoreBlockPar("nothere")
	require.True(t, errors.Is(err, ErrPathNotFound))
}

func TestStorageRestoreCycle(t *testing.T) {
	buf := NewBuffer(nil)
	s := NewStream(buf)
	require.NoError(t, s.Write([]byte(storageMagic)))
	require.NoError(t, s.WriteUint(0))
	require.NoError(t, s.WriteUint(1))
	flatRecord(t, s, "loop",
		[][]byte{wch("a")}, [][]byte{wch("1")},
		[][]byte{wch("self")}, [][]byte{wch("loop")})

	st, err := LoadStorage(NewStream(NewBuffer(buf.Bytes())))
	require.NoError(t, err)

	_, err = st.RestoreBlockPar("loop")
	require.Error(t, err)
}
