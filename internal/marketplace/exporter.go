package marketplace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// Exporter renders products into an XLSX workbook. It satisfies core.Exporter.
type Exporter struct {
	tmpl Template
}

// NewExporter creates an Exporter for tmpl.
func NewExporter(tmpl Template) (*Exporter, error) {
	if tmpl.Sheet == "" {
		tmpl.Sheet = "Template"
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &Exporter{tmpl: tmpl}, nil
}

// Export writes one header row and one row per product.
func (e *Exporter) Export(products []core.Product) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := e.tmpl.Sheet
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(e.tmpl.Columns))
	for i, c := range e.tmpl.Columns {
		header[i] = c.Header
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, p := range products {
		row := make([]any, len(e.tmpl.Columns))
		for j, c := range e.tmpl.Columns {
			row[j] = cellValue(p, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write product %d: %w", p.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(p core.Product, c Column) string {
	if c.Field != "" {
		return fieldValue(p, c.Field)
	}
	if v, ok := attributeValue(p, c.Attribute); ok {
		return v
	}
	return c.Default
}

// attributeValue finds an attribute by code or name. Codes may be stored
// bracketed, as in "[5704]".
func attributeValue(p core.Product, key string) (string, bool) {
	key = strings.Trim(strings.TrimSpace(key), "[]")
	for _, pa := range p.Attributes {
		code := strings.Trim(strings.TrimSpace(pa.Attribute.Code), "[]")
		if strings.EqualFold(code, key) || strings.EqualFold(pa.Attribute.Name, key) {
			return pa.Value, true
		}
	}
	return "", false
}

func fieldValue(p core.Product, field string) string {
	key := strings.NewReplacer("_", "", " ", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(field)))
	switch key {
	case "id":
		return strconv.FormatInt(p.ID, 10)
	case "name":
		return p.Name
	case "description":
		return p.Description
	case "model":
		return p.Model
	case "manufacturer":
		return p.Manufacturer
	case "category":
		return p.Category
	case "price":
		return p.Price.String()
	case "saleprice":
		return p.SalePrice.String()
	case "currency":
		return p.Currency
	case "quantity":
		return strconv.Itoa(p.Quantity)
	case "warranty":
		return strconv.Itoa(p.Warranty)
	case "mainimage":
		return p.MainImage
	case "additionalimage1":
		return p.AdditionalImage1
	case "additionalimage2":
		return p.AdditionalImage2
	case "additionalimage3":
		return p.AdditionalImage3
	case "additionalimage4":
		return p.AdditionalImage4
	case "type":
		return p.Type
	default:
		return ""
	}
}
