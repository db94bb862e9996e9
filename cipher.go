// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

// The container cipher is a 31-bit Lehmer-style generator XORed over the
// payload byte by byte. The transform is its own inverse: ciphering twice
// with the same seed restores the input.

// rand31pm is the keystream generator. State updates are sequential; a
// range must be processed in ascending offset order from the seed.
type rand31pm struct {
	seed int64
}

// next advances the generator and returns the next keystream byte.
// Division and modulus are floored, not truncated: seeds recovered from a
// container header are signed and may be negative, and the reference
// arithmetic floors.
func (r *rand31pm) next() byte {
	hi := r.seed / 0x1f31d
	lo := r.seed % 0x1f31d
	if lo < 0 {
		hi--
		lo += 0x1f31d
	}
	seed := lo*0x41a7 - hi*0xb14
	if seed < 1 {
		seed += 0x7fffffff
	}
	r.seed = seed
	return byte((seed - 1) & 0xff)
}

// cipherBytes XORs the keystream for seed over data in place, in ascending
// offset order. Encrypt and decrypt are the same operation.
func cipherBytes(data []byte, seed int32) {
	gen := rand31pm{seed: int64(seed)}
	for i := range data {
		data[i] ^= gen.next()
	}
}
