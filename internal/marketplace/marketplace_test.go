package marketplace

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]any) {
	t.Helper()
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow %s: %v", sheet, err)
		}
	}
}

func catalogWorkbook(t *testing.T, withValues bool) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), RulesSheet); err != nil {
		t.Fatalf("SetSheetName: %v", err)
	}
	writeRows(t, f, RulesSheet, [][]any{
		{"Nume", "Cod", "Obligatoriu", "Restrictionat", "Unitate"},
		{"Culoare", "5401", "DA", "DA", ""},
		{" Greutate ", "1200", "NU", "NU", "kg"},
		{"Tip produs", "5704", "DA", "DA", ""},
		{"", "", "", "", ""},
		{"Dupa gol", "9999", "DA", "DA", ""},
	})

	if withValues {
		if _, err := f.NewSheet(ValuesSheet); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		writeRows(t, f, ValuesSheet, [][]any{
			{"Caracteristica", "Valoare"},
			{"Culoare", "Negru"},
			{"Culoare", "Rosu"},
			{"Tip produs", "Disc"},
			{"Necunoscut", "x"},
		})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func TestLoadCatalog(t *testing.T) {
	attrs, err := LoadCatalog(catalogWorkbook(t, true))
	if err != nil {
		t.Fatalf("LoadCatalog error: %v", err)
	}
	if len(attrs) != 3 {
		t.Fatalf("got %d attributes, want 3 (stop at first empty name): %+v", len(attrs), attrs)
	}

	culoare := attrs[0]
	if culoare.Name != "Culoare" || culoare.Code != "5401" || !culoare.IsRequired || !culoare.IsRestricted {
		t.Errorf("Culoare = %+v", culoare)
	}
	if !slices.Equal(culoare.AllowedValues, []string{"Negru", "Rosu"}) {
		t.Errorf("Culoare allowed = %v", culoare.AllowedValues)
	}

	greutate := attrs[1]
	if greutate.Name != "Greutate" || greutate.Unit != "kg" || greutate.IsRequired || greutate.IsRestricted {
		t.Errorf("Greutate = %+v", greutate)
	}
	if greutate.AllowedValues != nil {
		t.Errorf("Greutate allowed = %v, want nil", greutate.AllowedValues)
	}

	if !slices.Equal(attrs[2].AllowedValues, []string{"Disc"}) {
		t.Errorf("Tip produs allowed = %v", attrs[2].AllowedValues)
	}
}

func TestLoadCatalog_MissingSheet(t *testing.T) {
	_, err := LoadCatalog(catalogWorkbook(t, false))
	if err == nil || !strings.Contains(err.Error(), "catalog sheet") {
		t.Fatalf("error = %v, want missing catalog sheet", err)
	}
}

func TestLoadTemplate(t *testing.T) {
	input := `
sheet: Oferta
columns:
  - header: part_number
    field: model
  - header: pret
    field: sale_price
  - header: "Culoare: [5401]"
    attribute: "5401"
    default: Multicolor
`
	tmpl, err := LoadTemplate(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadTemplate error: %v", err)
	}
	if tmpl.Sheet != "Oferta" || len(tmpl.Columns) != 3 {
		t.Fatalf("template = %+v", tmpl)
	}
	if tmpl.Columns[2].Default != "Multicolor" || tmpl.Columns[2].Attribute != "5401" {
		t.Errorf("column 3 = %+v", tmpl.Columns[2])
	}
}

func TestLoadTemplate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "unknown field",
			input:   "columns:\n  - header: x\n    field: colour\n",
			wantErr: `unknown product field "colour"`,
		},
		{
			name:    "both field and attribute",
			input:   "columns:\n  - header: x\n    field: name\n    attribute: \"1\"\n",
			wantErr: "exclusive",
		},
		{
			name:    "no columns",
			input:   "sheet: x\n",
			wantErr: "no columns",
		},
		{
			name:    "unknown key",
			input:   "colums: []\n",
			wantErr: "decode export template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTemplate(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestExporter_Export(t *testing.T) {
	exp, err := NewExporter(DefaultTemplate())
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}

	products := []core.Product{
		{
			ID:        1,
			Model:     "ABC123",
			Name:      "Disc taiere",
			MainImage: "https://img/1.jpg",
			Price:     decimal.RequireFromString("19.99"),
			Attributes: []core.ProductAttribute{
				{Attribute: core.Attribute{Name: "Culoare", Code: "5401"}, Value: "Negru"},
				{Attribute: core.Attribute{Name: "Suprafata lucru", Code: "[8541]"}, Value: "Lemn"},
			},
		},
		{ID: 2, Model: "XYZ", Name: "Perie"},
	}

	data, err := exp.Export(products)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Template")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	want := [][]string{
		{"part_number", "name", "main_image_url", "Tip produs: [5704]", "Suprafata lucru: [8541]", "Unealta compatibila: [8624]", "Culoare: [5401]"},
		{"ABC123", "Disc taiere", "https://img/1.jpg", "Disc", "Lemn", "Polizor unghiular", "Negru"},
		{"XYZ", "Perie", "", "Disc", "Metal", "Polizor unghiular", "Multicolor"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if !slices.Equal(rows[i], want[i]) {
			t.Errorf("row %d = %q, want %q", i, rows[i], want[i])
		}
	}
}

func TestFieldValue(t *testing.T) {
	p := core.Product{ID: 9, Price: decimal.RequireFromString("12.5"), Quantity: 3, AdditionalImage2: "img"}
	tests := map[string]string{
		"id":                "9",
		"price":             "12.5",
		"Quantity":          "3",
		"additional_image2": "img",
		"unknown":           "",
	}
	for field, want := range tests {
		if got := fieldValue(p, field); got != want {
			t.Errorf("fieldValue(%q) = %q, want %q", field, got, want)
		}
	}
}
