// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

/*
Package blockpar reads and writes BlockPar, the hierarchical key/value
configuration format used by the Space Rangers games, both as editable
text and as the encrypted, compressed .dat containers the engine ships.

A BlockPar is an ordered multimap tree: keys may repeat, blocks nest, and
each level is either key-sorted or kept in insertion order. The package
round-trips both encodings losslessly, including duplicate-key ordering.

# Basic Usage

Reading a container:

	bp, err := blockpar.OpenContainer("CacheData.dat")
	if err != nil {
		log.Fatal(err)
	}
	name, err := bp.GetParPath("Ship.Name")

Converting to the editable text form:

	err = bp.SaveTextFile("CacheData.txt", nil)

Building and saving a tree:

	bp := blockpar.New()
	bp.Add("Version", "2")
	w := bp.AddBlock("Weapons")
	w.Add("Laser", "120")
	data, err := blockpar.SaveContainer(bp)

# Formats

Containers are a CRC-32 checked, keystream-ciphered wrapper around a
ZL01/ZL03 deflate frame holding the binary tree encoding. The text form
is line oriented with // comments, ^/~ sort markers, <<<...>>> multi-line
values and cross-file block inclusion; game files use the windows-1251
code page.

Also included: the reduced CacheData tree variant, the STRG bulk storage
table reader, and a registry for named fixed-layout binary records.

# Limitations

  - ZL02 compression frames are recognized but not supported
  - STRG storage files are read-only
  - Text comments are parsed but not written back
*/
package blockpar
