// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"encoding/binary"
	"hash/crc32"
	"os"

	"github.com/cockroachdb/errors"
)

// Container layout, little-endian:
//
//	uint32   content_hash    CRC-32 (IEEE) of the deciphered payload
//	byte[4]  xored_seed      cipher seed XOR a per-family constant
//	byte[]   ciphertext      keystream-ciphered compression frame
//
// BlockPar containers and CacheData containers differ only in the seed
// constant and the binary tree frame inside.

// blockParSeedKey masks the cipher seed in BlockPar .dat containers.
var blockParSeedKey = [4]byte{0x89, 0xc6, 0xe8, 0xb1}

// cacheDataSeedKey masks the cipher seed in CacheData containers.
var cacheDataSeedKey = [4]byte{0x37, 0x3f, 0x8f, 0xea}

// LoadContainer decodes an encrypted, compressed container into a tree.
// The input slice is not modified.
func LoadContainer(data []byte) (*BlockPar, error) {
	payload, err := decodeContainer(data, blockParSeedKey)
	if err != nil {
		return nil, err
	}
	s := NewStream(NewBuffer(payload))
	defer s.Close()
	return LoadBinary(s, FormatV2)
}

// SaveContainer encodes the tree as an encrypted, compressed container.
// The cipher seed is derived from the payload hash, so output is
// deterministic for a given tree.
func SaveContainer(bp *BlockPar) ([]byte, error) {
	buf := NewBuffer(nil)
	s := NewStream(buf)
	if err := bp.SaveBinary(s, FormatV2); err != nil {
		return nil, err
	}
	return encodeContainer(buf.Bytes(), blockParSeedKey, 0)
}

// SaveContainerSeed is SaveContainer with an explicit cipher seed.
func SaveContainerSeed(bp *BlockPar, seed int32) ([]byte, error) {
	buf := NewBuffer(nil)
	s := NewStream(buf)
	if err := bp.SaveBinary(s, FormatV2); err != nil {
		return nil, err
	}
	return encodeContainer(buf.Bytes(), blockParSeedKey, seed)
}

// OpenContainer reads and decodes a container file.
func OpenContainer(path string) (*BlockPar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open container")
	}
	bp, err := LoadContainer(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return bp, nil
}

// WriteContainer encodes the tree and writes it to a container file.
func WriteContainer(path string, bp *BlockPar) error {
	data, err := SaveContainer(bp)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// decodeContainer unwraps hash, seed and ciphertext, deciphers in place on
// a private copy, verifies the CRC and decompresses.
func decodeContainer(data []byte, seedKey [4]byte) ([]byte, error) {
	b := NewBuffer(append([]byte(nil), data...))
	s := NewStream(b)

	contentHash, err := s.ReadUint()
	if err != nil {
		return nil, errors.Wrap(err, "container hash")
	}
	xored, err := s.Read(4)
	if err != nil {
		return nil, errors.Wrap(err, "container seed")
	}
	seed := int32(binary.LittleEndian.Uint32(xored) ^ binary.LittleEndian.Uint32(seedKey[:]))

	payload := b.Bytes()[8:]
	cipherBytes(payload, seed)
	if crc32.ChecksumIEEE(payload) != contentHash {
		return nil, errors.Wrap(ErrIntegrity, "container payload")
	}
	return Decompress(payload)
}

// encodeContainer is the exact inverse: compress, hash, cipher, frame.
// A zero seed means derive one from the payload hash.
func encodeContainer(plain []byte, seedKey [4]byte, seed int32) ([]byte, error) {
	packed, err := Compress(plain, ZL03)
	if err != nil {
		return nil, err
	}
	contentHash := crc32.ChecksumIEEE(packed)
	if seed == 0 {
		seed = int32(contentHash & 0x7fffffff)
		if seed == 0 {
			seed = 1
		}
	}
	cipherBytes(packed, seed)

	out := make([]byte, 8+len(packed))
	binary.LittleEndian.PutUint32(out[0:], contentHash)
	binary.LittleEndian.PutUint32(out[4:], uint32(seed)^binary.LittleEndian.Uint32(seedKey[:]))
	copy(out[8:], packed)
	return out, nil
}
