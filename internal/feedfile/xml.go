package feedfile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// xmlNode captures an element with its text and children.
type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// innerText returns the trimmed text of n and its descendants.
func (n xmlNode) innerText() string {
	if len(n.Children) == 0 {
		return strings.TrimSpace(n.Text)
	}
	parts := make([]string, 0, len(n.Children)+1)
	if t := strings.TrimSpace(n.Text); t != "" {
		parts = append(parts, t)
	}
	for _, c := range n.Children {
		if t := c.innerText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// decodeXML turns every product element into one row. Headers are the child
// element names in first-seen order across all products; a product missing a
// child gets "" in that column. Repeated children keep the first value.
func (d *Decoder) decodeXML(r io.Reader) (core.RawFeedData, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var (
		headers []string
		columns = make(map[string]int)
		records []map[string]string
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.RawFeedData{}, fmt.Errorf("parse xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, d.opts.XMLProductNode) {
			continue
		}

		var node xmlNode
		if err := dec.DecodeElement(&node, &start); err != nil {
			return core.RawFeedData{}, fmt.Errorf("parse xml: %w", err)
		}

		record := make(map[string]string, len(node.Children))
		for _, child := range node.Children {
			name := child.XMLName.Local
			if _, seen := record[name]; seen {
				continue
			}
			record[name] = child.innerText()
			if _, ok := columns[name]; !ok {
				columns[name] = len(headers)
				headers = append(headers, name)
			}
		}
		records = append(records, record)
	}

	data := core.RawFeedData{Headers: headers}
	for _, rec := range records {
		row := make([]string, len(headers))
		for name, v := range rec {
			row[columns[name]] = v
		}
		if blankRow(row) {
			continue
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

// charsetReader decodes feeds that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}
