// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package odis

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/pdiddy/odis2vcp/pkg/types"
)

// Load reads and parses the ODIS document at path. A missing file yields
// types.ErrInputNotFound; any other read or syntax failure yields
// types.ErrParse.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("%w: opening %s: %w", types.ErrParse, path, err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// utf8BOM is the byte order mark some Windows tools put before the XML
// declaration.
const utf8BOM = "\xEF\xBB\xBF"

// Parse builds a Document from r. A leading UTF-8 byte order mark is
// skipped. Comments, processing instructions and directives are dropped;
// adjacent character data is merged into one text node.
func Parse(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	dec := xml.NewDecoder(br)
	dec.CharsetReader = charsetReader

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Attrs: t.Copy().Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: multiple root elements", types.ErrParse)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, fmt.Errorf("%w: text outside the document element", types.ErrParse)
				}
				continue
			}
			stack[len(stack)-1].appendText(string(t))
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no document element", types.ErrParse)
	}
	return &Document{Root: root}, nil
}

// charsetReader lets the decoder read exports declared as ISO-8859-1,
// windows-1252 and the other WHATWG encodings.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}
