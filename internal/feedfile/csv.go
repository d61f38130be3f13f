package feedfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// decodeCSV reads a delimited feed. The first non-blank record is the header.
// Rows may have fewer or more fields than the header.
func (d *Decoder) decodeCSV(r io.Reader) (core.RawFeedData, error) {
	enc, err := htmlindex.Get(d.opts.Encoding)
	if err != nil {
		return core.RawFeedData{}, fmt.Errorf("unknown encoding %q: %w", d.opts.Encoding, err)
	}

	// A BOM, when present, overrides the configured charset.
	text := transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder()))

	cr := csv.NewReader(text)
	cr.Comma = d.opts.CSVSeparator
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var data core.RawFeedData
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.RawFeedData{}, fmt.Errorf("parse csv: %w", err)
		}
		if blankRow(record) {
			continue
		}
		if data.Headers == nil {
			data.Headers = cleanHeaders(record)
			continue
		}
		data.Rows = append(data.Rows, record)
	}
	return data, nil
}
