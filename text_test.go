// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func saveTextString(t *testing.T, bp *BlockPar) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bp.SaveText(&buf))
	return buf.String()
}

func TestTextLoadBasic(t *testing.T) {
	input := "root ^{\r\n" +
		"    a=1\r\n" +
		"    a=2\r\n" +
		"    sub ~{\r\n" +
		"        x = spaced value \r\n" +
		"    }\r\n" +
		"}\r\n"

	bp, err := LoadText(strings.NewReader(input))
	require.NoError(t, err)

	root, err := bp.GetBlockPath("root")
	require.NoError(t, err)
	require.True(t, root.Sorted)
	require.Equal(t, 3, root.Len())

	v, err := bp.GetParPath("root.a:1")
	require.NoError(t, err)
	require.Equal(t, "2", v)

	sub, err := bp.GetBlockPath("root.sub")
	require.NoError(t, err)
	require.False(t, sub.Sorted)

	// Values are trimmed of surrounding tabs and spaces.
	v, err = bp.GetParPath("root.sub.x")
	require.NoError(t, err)
	require.Equal(t, "spaced value", v)
}

func TestTextSaveAfterLoadIsIdempotent(t *testing.T) {
	input := "root^{\r\n  a=1\r\n  a=2\r\n}\r\n"

	bp, err := LoadText(strings.NewReader(input))
	require.NoError(t, err)
	first := saveTextString(t, bp)

	again, err := LoadText(strings.NewReader(first))
	require.NoError(t, err)
	require.Equal(t, first, saveTextString(t, again))
}

func TestTextSortMarkerAppliesToOpenedBlock(t *testing.T) {
	bp, err := LoadText(strings.NewReader("outer ~{\r\n    inner ^{\r\n    }\r\n}\r\n"))
	require.NoError(t, err)

	outer, err := bp.GetBlockPath("outer")
	require.NoError(t, err)
	require.False(t, outer.Sorted)

	inner, err := bp.GetBlockPath("outer.inner")
	require.NoError(t, err)
	require.True(t, inner.Sorted)

	// Missing marker defaults to sorted.
	bp, err = LoadText(strings.NewReader("plain {\r\n}\r\n"))
	require.NoError(t, err)
	plain, err := bp.GetBlockPath("plain")
	require.NoError(t, err)
	require.True(t, plain.Sorted)
}

func TestTextComments(t *testing.T) {
	input := "a=1 // trailing note\r\n" +
		"// standalone comment\r\n" +
		"b ^{ // block note\r\n" +
		"}\r\n"

	bp, err := LoadText(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, bp.Len())

	el, ok := bp.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", el.Value)
	require.Equal(t, "trailing note", el.Comment)

	el, ok = bp.Get("b")
	require.True(t, ok)
	require.Equal(t, "block note", el.Comment)
}

func TestHeredocRoundTrip(t *testing.T) {
	bp := New()
	block := bp.AddBlock("Dialog")
	block.Add("Text", "line one\r\n\r\nline three\r\nend")

	text := saveTextString(t, bp)
	require.Contains(t, text, "<<<")
	require.Contains(t, text, ">>>")

	got, err := LoadText(strings.NewReader(text))
	require.NoError(t, err)

	v, err := got.GetParPath("Dialog.Text")
	require.NoError(t, err)
	require.Equal(t, "line one\r\n\r\nline three\r\nend", v)
}

func TestHeredocTrailingNewlineValue(t *testing.T) {
	bp := New()
	bp.AddBlock("b").Add("t", "tail\r\n")

	got, err := LoadText(strings.NewReader(saveTextString(t, bp)))
	require.NoError(t, err)
	v, err := got.GetParPath("b.t")
	require.NoError(t, err)
	require.Equal(t, "tail\r\n", v)
}

func TestHeredocIndentStripping(t *testing.T) {
	input := "b ^{\r\n" +
		"    t=<<<\r\n" +
		"    first\r\n" +
		"      indented\r\n" +
		"    >>>\r\n" +
		"}\r\n"

	bp, err := LoadText(strings.NewReader(input))
	require.NoError(t, err)
	v, err := bp.GetParPath("b.t")
	require.NoError(t, err)
	require.Equal(t, "first\r\n  indented", v)
}

func TestHeredocUnterminated(t *testing.T) {
	input := "t=<<<\r\nno end in sight\r\n"
	_, err := LoadText(strings.NewReader(input))
	require.True(t, errors.Is(err, ErrUnterminatedHeredoc))
}

func TestTextBinaryAgreement(t *testing.T) {
	// Both codecs describe the same model: text -> tree -> binary ->
	// tree must preserve the structure.
	input := "cfg ~{\r\n" +
		"    name=Rachehansa\r\n" +
		"    name=Varharld\r\n" +
		"    hull ^{\r\n" +
		"        armor=12\r\n" +
		"    }\r\n" +
		"}\r\n"
	bp, err := LoadText(strings.NewReader(input))
	require.NoError(t, err)

	buf := NewBuffer(nil)
	require.NoError(t, bp.SaveBinary(NewStream(buf), FormatV2))
	got, err := LoadBinary(NewStream(NewBuffer(buf.Bytes())), FormatV2)
	require.NoError(t, err)
	require.True(t, bp.Equal(got))
}

func TestTextFileEncoding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quest.txt")

	bp := New()
	bp.Add("Имя", "Пекхо и Дварфы")
	require.NoError(t, bp.SaveTextFile(path, nil))

	// The default code page is windows-1251: one byte per Cyrillic rune.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, len([]rune("Имя=Пекхо и Дварфы\r\n")), len(raw))
	require.NotContains(t, string(raw), "Имя")

	got, err := LoadTextFile(path, nil)
	require.NoError(t, err)
	v, err := got.GetParPath("Имя")
	require.NoError(t, err)
	require.Equal(t, "Пекхо и Дварфы", v)
}

func TestTextInclude(t *testing.T) {
	dir := t.TempDir()

	shared := "speed=300\r\nturn=45\r\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "engine.txt"), []byte(shared), 0644))

	main := "Ship ^{\r\n" +
		"    Engine = engine.txt {\r\n" +
		"    hull=9\r\n" +
		"}\r\n"
	mainPath := filepath.Join(dir, "ship.txt")
	require.NoError(t, os.WriteFile(mainPath, []byte(main), 0644))

	bp, err := LoadTextFile(mainPath, charmap.Windows1251)
	require.NoError(t, err)

	v, err := bp.GetParPath("Ship.Engine.speed")
	require.NoError(t, err)
	require.Equal(t, "300", v)

	v, err = bp.GetParPath("Ship.hull")
	require.NoError(t, err)
	require.Equal(t, "9", v)
}

func TestTextIncludeMissingFile(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "broken.txt")
	require.NoError(t, os.WriteFile(mainPath, []byte("b = nope.txt {\r\n"), 0644))

	_, err := LoadTextFile(mainPath, nil)
	require.Error(t, err)
}
