// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package blockpar

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Text grammar, line oriented:
//
//	// comment            stripped to end of line
//	name=value            parameter
//	name=<<<              multi-line parameter until a >>> line
//	name ^{ ... }         sorted block (~ for unsorted, default sorted)
//	name = path {         block included from another file
//
// Lines are trimmed of tabs and spaces; saved output indents four spaces
// per nesting level and uses \r\n line endings.

// LoadText parses the text form from r. Included files are resolved
// relative to the current directory with the default encoding; use
// LoadTextFile to resolve them relative to the including file.
func LoadText(r io.Reader) (*BlockPar, error) {
	return loadText(r, func(path string) (*BlockPar, error) {
		return LoadTextFile(path, nil)
	})
}

// LoadTextFile reads and parses a text-format file. A nil enc means
// windows-1251, the code page the game's own files use. Includes are
// resolved relative to the file's directory with the same encoding.
func LoadTextFile(path string, enc encoding.Encoding) (*BlockPar, error) {
	if enc == nil {
		enc = charmap.Windows1251
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open text file")
	}
	defer f.Close()

	dir := filepath.Dir(path)
	include := func(p string) (*BlockPar, error) {
		return LoadTextFile(filepath.Join(dir, p), enc)
	}
	bp, err := loadText(transform.NewReader(f, enc.NewDecoder()), include)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return bp, nil
}

// SaveTextFile writes the text form to a file. A nil enc means
// windows-1251.
func (bp *BlockPar) SaveTextFile(path string, enc encoding.Encoding) error {
	if enc == nil {
		enc = charmap.Windows1251
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create text file")
	}
	w := transform.NewWriter(f, enc.NewEncoder())
	if err := bp.SaveText(w); err != nil {
		w.Close()
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadText(r io.Reader, include func(string) (*BlockPar, error)) (*BlockPar, error) {
	br := bufio.NewReader(r)
	root := New()
	cur := root
	var stack []*BlockPar

	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		eof := err == io.EOF
		if raw == "" && eof {
			break
		}

		line := strings.Trim(raw, "\t\r\n ")
		comment := ""
		if i := strings.Index(line, "//"); i >= 0 {
			comment = strings.TrimSpace(line[i+2:])
			line = strings.TrimRight(line[:i], "\t ")
		}

		switch {
		case strings.ContainsRune(line, '{'):
			head := strings.TrimRight(line[:strings.IndexByte(line, '{')], "\t ")
			sorted := true
			if strings.HasSuffix(head, "^") {
				head = strings.TrimRight(head[:len(head)-1], "\t ")
			} else if strings.HasSuffix(head, "~") {
				sorted = false
				head = strings.TrimRight(head[:len(head)-1], "\t ")
			}
			name := head
			includePath := ""
			if i := strings.IndexByte(head, '='); i >= 0 {
				name = strings.TrimRight(head[:i], "\t ")
				includePath = strings.TrimLeft(head[i+1:], "\t ")
			}
			if includePath != "" {
				child, err := include(includePath)
				if err != nil {
					return nil, errors.Wrapf(err, "include %q", includePath)
				}
				cur.SetChild(name, child)
				break
			}
			stack = append(stack, cur)
			child := cur.AddBlock(name)
			child.Sorted = sorted
			cur.elems[len(cur.elems)-1].Comment = comment
			cur = child

		case strings.ContainsRune(line, '}'):
			if n := len(stack); n > 0 {
				cur = stack[n-1]
				stack = stack[:n-1]
			}

		case strings.ContainsRune(line, '='):
			i := strings.IndexByte(line, '=')
			name := strings.TrimRight(line[:i], "\t ")
			value := strings.TrimLeft(line[i+1:], "\t ")
			if strings.HasPrefix(value, "<<<") {
				value, err = readHeredoc(br, len(stack))
				if err != nil {
					return nil, err
				}
			}
			el := cur.Add(name, value)
			el.Comment = comment
		}

		if eof {
			break
		}
	}
	return root, nil
}

// readHeredoc consumes raw lines up to a >>> terminator. The first
// non-blank line fixes the indent to strip from every line, capped at four
// spaces per nesting level; the terminator and one trailing line break are
// excluded from the value. Blank lines before the first content line carry
// no indent signal and are skipped; later ones are part of the value.
func readHeredoc(br *bufio.Reader, level int) (string, error) {
	var value strings.Builder
	indent := -1
	for {
		raw, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		eof := err == io.EOF
		if raw == "" && eof {
			return "", ErrUnterminatedHeredoc
		}

		if strings.HasPrefix(strings.TrimLeft(raw, "\t "), ">>>") {
			return trimOneLineBreak(value.String()), nil
		}
		if value.Len() == 0 && strings.Trim(raw, "\t\r\n ") == "" {
			if eof {
				return "", ErrUnterminatedHeredoc
			}
			continue
		}
		if indent < 0 {
			indent = 0
			for indent < len(raw) && raw[indent] == ' ' {
				indent++
			}
			if max := 4 * level; indent > max {
				indent = max
			}
		}
		i := 0
		for i < indent && i < len(raw) && raw[i] == ' ' {
			i++
		}
		value.WriteString(raw[i:])

		if eof {
			return "", ErrUnterminatedHeredoc
		}
	}
}

func trimOneLineBreak(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\r") {
		return s[:len(s)-1]
	}
	return s
}

// SaveText writes the text form of the tree to w, using the same explicit
// stack pre-order walk as the binary codec. The sort marker is always
// written explicitly.
func (bp *BlockPar) SaveText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	type frame struct {
		elems []*Element
		next  int
	}
	stack := []frame{{elems: bp.Elements()}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		level := len(stack) - 1
		if f.next >= len(f.elems) {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				writeIndent(bw, len(stack)-1)
				bw.WriteString("}\r\n")
			}
			continue
		}
		el := f.elems[f.next]
		f.next++

		writeIndent(bw, level)
		switch el.Kind {
		case KindParam:
			bw.WriteString(el.Name)
			bw.WriteByte('=')
			if strings.ContainsAny(el.Value, "\r\n") {
				bw.WriteString("<<<\r\n")
				for _, ln := range splitAfterNewlines(el.Value) {
					writeIndent(bw, level)
					bw.WriteString(ln)
				}
				bw.WriteString("\r\n")
				writeIndent(bw, level)
				bw.WriteString(">>>")
			} else {
				bw.WriteString(el.Value)
			}
			bw.WriteString("\r\n")

		case KindBlock:
			bw.WriteString(el.Name)
			bw.WriteByte(' ')
			if el.Block.Sorted {
				bw.WriteByte('^')
			} else {
				bw.WriteByte('~')
			}
			bw.WriteString("{\r\n")
			stack = append(stack, frame{elems: el.Block.Elements()})

		default:
			bw.WriteString("\r\n")
		}
	}
	return bw.Flush()
}

func writeIndent(bw *bufio.Writer, level int) {
	for i := 0; i < level; i++ {
		bw.WriteString("    ")
	}
}

// splitAfterNewlines splits s after every \n, keeping the line breaks.
func splitAfterNewlines(s string) []string {
	var result []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			result = append(result, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		result = append(result, s[start:])
	}
	return result
}
