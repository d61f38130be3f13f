package feedfile

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// decodeXLSX reads the first sheet of a workbook. Row 1 is the header.
func (d *Decoder) decodeXLSX(r io.Reader) (core.RawFeedData, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return core.RawFeedData{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return core.RawFeedData{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return core.RawFeedData{}, fmt.Errorf("open xlsx: read sheet %q: %w", sheets[0], err)
	}

	var data core.RawFeedData
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		if data.Headers == nil {
			data.Headers = cleanHeaders(row)
			continue
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}
