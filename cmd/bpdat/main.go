// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Command bpdat converts Space Rangers .dat containers to and from the
// editable BlockPar text form and queries values by dotted path.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	blockpar "github.com/suprsokr/go-blockpar"
)

var cli struct {
	Encoding string `help:"Code page of text files." default:"windows-1251" enum:"windows-1251,windows-1252,utf-8"`

	Unpack UnpackCmd `cmd:"" help:"Decode a .dat container into text form."`
	Pack   PackCmd   `cmd:"" help:"Encode a text file into a .dat container."`
	Get    GetCmd    `cmd:"" help:"Print a parameter from a .dat container by dotted path."`
	Cache  CacheGrp  `cmd:"" help:"CacheData container operations."`
}

func textEncoding() encoding.Encoding {
	switch cli.Encoding {
	case "windows-1252":
		return charmap.Windows1252
	case "utf-8":
		return encoding.Nop
	default:
		return charmap.Windows1251
	}
}

// UnpackCmd decodes a container to text.
type UnpackCmd struct {
	Dat string `arg:"" help:"Container file." type:"existingfile"`
	Txt string `arg:"" help:"Output text file."`
}

func (c *UnpackCmd) Run() error {
	bp, err := blockpar.OpenContainer(c.Dat)
	if err != nil {
		return err
	}
	return bp.SaveTextFile(c.Txt, textEncoding())
}

// PackCmd encodes a text file to a container.
type PackCmd struct {
	Txt string `arg:"" help:"Input text file." type:"existingfile"`
	Dat string `arg:"" help:"Output container file."`
}

func (c *PackCmd) Run() error {
	bp, err := blockpar.LoadTextFile(c.Txt, textEncoding())
	if err != nil {
		return err
	}
	return blockpar.WriteContainer(c.Dat, bp)
}

// GetCmd prints one parameter.
type GetCmd struct {
	Dat  string `arg:"" help:"Container file." type:"existingfile"`
	Path string `arg:"" help:"Dotted path, e.g. Ship.Name or root.child:1"`
}

func (c *GetCmd) Run() error {
	bp, err := blockpar.OpenContainer(c.Dat)
	if err != nil {
		return err
	}
	value, err := bp.GetParPath(c.Path)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

// CacheGrp groups CacheData operations.
type CacheGrp struct {
	Unpack CacheUnpackCmd `cmd:"" help:"Decode a CacheData container into text form."`
	Pack   CachePackCmd   `cmd:"" help:"Encode a text file into a CacheData container."`
}

// CacheUnpackCmd decodes a CacheData container to text.
type CacheUnpackCmd struct {
	Dat string `arg:"" help:"CacheData container file." type:"existingfile"`
	Txt string `arg:"" help:"Output text file."`
}

func (c *CacheUnpackCmd) Run() error {
	cd, err := blockpar.OpenCacheContainer(c.Dat)
	if err != nil {
		return err
	}
	f, err := os.Create(c.Txt)
	if err != nil {
		return err
	}
	if err := cd.SaveText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CachePackCmd encodes a text file to a CacheData container.
type CachePackCmd struct {
	Txt string `arg:"" help:"Input text file." type:"existingfile"`
	Dat string `arg:"" help:"Output CacheData container file."`
}

func (c *CachePackCmd) Run() error {
	f, err := os.Open(c.Txt)
	if err != nil {
		return err
	}
	cd, err := blockpar.LoadCacheText(f)
	f.Close()
	if err != nil {
		return err
	}
	return blockpar.WriteCacheContainer(c.Dat, cd)
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("bpdat"),
		kong.Description("BlockPar container and text format converter"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
