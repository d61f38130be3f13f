// Package feedfile decodes uploaded feed files into core.RawFeedData.
//
// The format is chosen from the file extension: .csv and .txt are read as
// delimited text, .xml as a list of product elements and .xlsx as a workbook
// whose first sheet holds the feed.
package feedfile

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// ErrUnsupportedFormat is returned for extensions no reader handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Defaults applied when Options leaves a field empty.
const (
	DefaultCSVSeparator   = ','
	DefaultEncoding       = "utf-8"
	DefaultXMLProductNode = "product"
)

// Options configures a Decoder.
type Options struct {
	CSVSeparator   rune   // field separator for .csv/.txt
	Encoding       string // charset of .csv/.txt files (WHATWG name, e.g. "windows-1250")
	XMLProductNode string // element name of one product in .xml feeds
}

// Decoder reads feed files. It satisfies core.FeedDecoder.
type Decoder struct {
	opts Options
}

// NewDecoder creates a Decoder, filling unset options with defaults.
func NewDecoder(opts Options) *Decoder {
	if opts.CSVSeparator == 0 {
		opts.CSVSeparator = DefaultCSVSeparator
	}
	if opts.Encoding == "" {
		opts.Encoding = DefaultEncoding
	}
	if opts.XMLProductNode == "" {
		opts.XMLProductNode = DefaultXMLProductNode
	}
	return &Decoder{opts: opts}
}

// Decode reads r according to the extension of name.
func (d *Decoder) Decode(name string, r io.Reader) (core.RawFeedData, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv", ".txt":
		return d.decodeCSV(r)
	case ".xml":
		return d.decodeXML(r)
	case ".xlsx":
		return d.decodeXLSX(r)
	default:
		return core.RawFeedData{}, fmt.Errorf("%w: %q (use %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions(), ", "))
	}
}

// SupportedExtensions lists the extensions Decode accepts.
func SupportedExtensions() []string {
	return []string{".csv", ".txt", ".xml", ".xlsx"}
}

func cleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = core.CleanCell(h)
	}
	return out
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
