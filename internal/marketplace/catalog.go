// Package marketplace reads the eMAG attribute template and writes product
// exports in the marketplace's upload layout.
package marketplace

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// Sheet names in the eMAG category template.
const (
	RulesSheet  = "Reguli"
	ValuesSheet = "Valori caracteristici"
)

// yes marks required and restricted attributes in the rules sheet.
const yes = "DA"

// LoadCatalog reads attribute definitions from an eMAG template workbook.
//
// The rules sheet lists one attribute per row from row 2: name, code,
// required, restricted, unit. The values sheet lists allowed values as
// (attribute name, value) pairs. Both sheets end at the first row with an
// empty name.
func LoadCatalog(r io.Reader) ([]core.Attribute, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return readCatalog(f)
}

// LoadCatalogFile is LoadCatalog for a workbook on disk.
func LoadCatalogFile(path string) ([]core.Attribute, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}
	defer f.Close()
	return readCatalog(f)
}

func readCatalog(f *excelize.File) ([]core.Attribute, error) {
	rules, err := sheetRows(f, RulesSheet)
	if err != nil {
		return nil, err
	}
	values, err := sheetRows(f, ValuesSheet)
	if err != nil {
		return nil, err
	}

	var attrs []core.Attribute
	byName := make(map[string]int)
	for _, row := range rules {
		name := strings.TrimSpace(core.SafeGet(row, 0))
		if name == "" {
			break
		}
		attrs = append(attrs, core.Attribute{
			Name:         name,
			Code:         strings.TrimSpace(core.SafeGet(row, 1)),
			IsRequired:   strings.TrimSpace(core.SafeGet(row, 2)) == yes,
			IsRestricted: strings.TrimSpace(core.SafeGet(row, 3)) == yes,
			Unit:         strings.TrimSpace(core.SafeGet(row, 4)),
		})
		if _, ok := byName[name]; !ok {
			byName[name] = len(attrs) - 1
		}
	}

	for _, row := range values {
		name := strings.TrimSpace(core.SafeGet(row, 0))
		if name == "" {
			break
		}
		i, ok := byName[name]
		if !ok {
			continue
		}
		attrs[i].AllowedValues = append(attrs[i].AllowedValues, strings.TrimSpace(core.SafeGet(row, 1)))
	}

	return attrs, nil
}

// sheetRows returns the rows of sheet after the header row.
func sheetRows(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, fmt.Errorf("catalog sheet %q not found", sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("catalog sheet %q: %w", sheet, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}
