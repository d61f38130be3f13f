package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

var contaktHeaders = []string{
	"Cod produs", "Brand", "Denumire produs", "Imagine", "Descriere",
	"Categorie1", "Categorie2", "Imagine2", "Specificatii", "Stoc", "x", "Pret",
}

func contaktRow() []string {
	return []string{
		"ABC123", "Bosch", "Polizor GWS 750", "https://img/1.jpg", "Polizor compact",
		"Scule electrice", "Polizoare", "https://img/2.jpg",
		"Culoare: Negru;Greutate: 2kg", "5", "ignored", "199,90",
	}
}

func TestContaktStrategy_Parse(t *testing.T) {
	p, err := NewContaktStrategy().Parse(contaktRow())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	checks := []struct {
		field string
		got   string
		want  string
	}{
		{"Model", p.Model, "ABC123"},
		{"Manufacturer", p.Manufacturer, "Bosch"},
		{"Name", p.Name, "Polizor GWS 750"},
		{"MainImage", p.MainImage, "https://img/1.jpg"},
		{"Description", p.Description, "Polizor compact"},
		{"Category", p.Category, "Scule electrice > Polizoare"},
		{"AdditionalImage1", p.AdditionalImage1, "https://img/2.jpg"},
		{"Currency", p.Currency, "LEI"},
		{"Type", p.Type, "new"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}

	if p.Quantity != 5 {
		t.Errorf("Quantity = %d, want 5", p.Quantity)
	}
	if !p.Price.Equal(decimal.RequireFromString("199.90")) {
		t.Errorf("Price = %s, want 199.90", p.Price)
	}

	assertAttributes(t, p.Attributes, []ProductAttribute{
		{Attribute: Attribute{Name: "Culoare", Code: "culoare"}, Value: "Negru"},
		{Attribute: Attribute{Name: "Greutate", Code: "greutate"}, Value: "2kg"},
	})
}

func TestContaktStrategy_ShortRow(t *testing.T) {
	p, err := NewContaktStrategy().Parse([]string{"ABC123", "Bosch"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if p.Model != "ABC123" || p.Name != "" {
		t.Errorf("got Model=%q Name=%q", p.Model, p.Name)
	}
	if !p.Price.IsZero() || p.Quantity != 0 {
		t.Errorf("numeric fields not zero: price=%s qty=%d", p.Price, p.Quantity)
	}
	if p.Category != " > " {
		t.Errorf("Category = %q, want %q", p.Category, " > ")
	}
	if len(p.Attributes) != 0 {
		t.Errorf("got %d attributes, want 0", len(p.Attributes))
	}
}

func TestContaktStrategy_GarbagePrice(t *testing.T) {
	row := contaktRow()
	row[11] = "abc"
	row[9] = "multe"

	p, err := NewContaktStrategy().Parse(row)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !p.Price.IsZero() {
		t.Errorf("Price = %s, want 0", p.Price)
	}
	if p.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0", p.Quantity)
	}
}

func TestInterlinkStrategy_Parse(t *testing.T) {
	row := []string{
		"99", "Disc taiere", "Disc pentru metal\nDiametru: 125 mm\nGrosime: 1,0 mm", "DT-125",
		"Interlink", "Consumabile", "12.50", "10,99", "RON", "40", "24",
		"https://img/main.jpg", "https://img/a1.jpg", "", "", "", "refurbished",
	}

	p, err := NewInterlinkStrategy().Parse(row)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if p.Name != "Disc taiere" || p.Model != "DT-125" || p.Manufacturer != "Interlink" {
		t.Errorf("unexpected identity fields: %+v", p)
	}
	if p.Category != "Consumabile" {
		t.Errorf("Category = %q", p.Category)
	}
	if !p.Price.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Price = %s, want 12.50", p.Price)
	}
	if !p.SalePrice.Equal(decimal.RequireFromString("10.99")) {
		t.Errorf("SalePrice = %s, want 10.99", p.SalePrice)
	}
	if p.Currency != "RON" {
		t.Errorf("Currency = %q, want RON", p.Currency)
	}
	if p.Quantity != 40 || p.Warranty != 24 {
		t.Errorf("Quantity=%d Warranty=%d, want 40 24", p.Quantity, p.Warranty)
	}
	if p.MainImage != "https://img/main.jpg" || p.AdditionalImage1 != "https://img/a1.jpg" {
		t.Errorf("images = %q %q", p.MainImage, p.AdditionalImage1)
	}
	if p.Type != "refurbished" {
		t.Errorf("Type = %q, want refurbished", p.Type)
	}

	assertAttributes(t, p.Attributes, []ProductAttribute{
		{Attribute: Attribute{Name: "Diametru", Code: "diametru"}, Value: "125 mm"},
		{Attribute: Attribute{Name: "Grosime", Code: "grosime"}, Value: "1,0 mm"},
	})
}

func TestInterlinkStrategy_TwelveColumns(t *testing.T) {
	row := []string{
		"1", "Disc", "fara specificatii", "M", "Brand", "Cat", "1", "1", "LEI", "1", "1", "https://img/main.jpg",
	}

	p, err := NewInterlinkStrategy().Parse(row)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	for i, img := range []string{p.AdditionalImage1, p.AdditionalImage2, p.AdditionalImage3, p.AdditionalImage4} {
		if img != "" {
			t.Errorf("AdditionalImage%d = %q, want empty", i+1, img)
		}
	}
	if p.Type != "new" {
		t.Errorf("Type = %q, want new", p.Type)
	}
	if len(p.Attributes) != 0 {
		t.Errorf("got %d attributes, want 0", len(p.Attributes))
	}
}

func TestMappedStrategy_Parse(t *testing.T) {
	headers := []string{"SKU", "Titlu", "Pret redus", "Culoare", "Stoc"}
	group := []MapModel{
		{SourceField: "sku", DestinationField: "id", Market: "Altex"},
		{SourceField: "Titlu", DestinationField: "name", Market: "Altex"},
		{SourceField: "Pret redus", DestinationField: "sale_price", Market: "Altex"},
		{SourceField: "Culoare", DestinationField: "Culoare", Market: "Altex"},
		{SourceField: "Stoc", DestinationField: "Quantity", Market: "Altex"},
	}
	s := NewMappedStrategy(headers, group)

	if s.Kind() != StrategyMapped {
		t.Fatalf("Kind = %v, want mapped", s.Kind())
	}

	p, err := s.Parse([]string{"15", "Disc flex", "12,5", "Rosu", "n/a"})
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if p.ID != 15 {
		t.Errorf("ID = %d, want 15", p.ID)
	}
	if p.Name != "Disc flex" {
		t.Errorf("Name = %q", p.Name)
	}
	if !p.SalePrice.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("SalePrice = %s, want 12.5", p.SalePrice)
	}
	if p.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0", p.Quantity)
	}
	if p.Currency != DefaultCurrency || p.Type != DefaultProductType {
		t.Errorf("defaults not applied: currency=%q type=%q", p.Currency, p.Type)
	}
	assertAttributes(t, p.Attributes, []ProductAttribute{
		{Attribute: Attribute{Name: "Culoare", Code: "culoare"}, Value: "Rosu"},
	})
}

func TestMappedStrategy_InvalidID(t *testing.T) {
	s := NewMappedStrategy(
		[]string{"SKU", "Titlu"},
		[]MapModel{
			{SourceField: "SKU", DestinationField: "id"},
			{SourceField: "Titlu", DestinationField: "name"},
		},
	)

	_, err := s.Parse([]string{"ABC", "Disc"})
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("error = %v, want ErrInvalidID", err)
	}
}

func TestMappedStrategy_SpecificationColumn(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		row     []string
		want    []ProductAttribute
	}{
		{
			name:    "unknown feed reads one pair per line",
			headers: []string{"SKU", "Titlu", "Detalii"},
			row:     []string{"41", "Disc", "Culoare: Rosu\nPutere: 900W"},
			want: []ProductAttribute{
				{ProductID: 41, Attribute: Attribute{Name: "Culoare", Code: "culoare"}, Value: "Rosu"},
				{ProductID: 41, Attribute: Attribute{Name: "Putere", Code: "putere"}, Value: "900W"},
			},
		},
		{
			name:    "contakt signature splits on semicolons",
			headers: []string{"Cod produs", "Brand", "Denumire produs", "Detalii"},
			row:     []string{"42", "Bosch", "Disc", "Culoare: Rosu;Material: Otel"},
			want: []ProductAttribute{
				{ProductID: 42, Attribute: Attribute{Name: "Culoare", Code: "culoare"}, Value: "Rosu"},
				{ProductID: 42, Attribute: Attribute{Name: "Material", Code: "material"}, Value: "Otel"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group := []MapModel{
				{SourceField: tt.headers[0], DestinationField: "id"},
				{SourceField: tt.headers[len(tt.headers)-1], DestinationField: "Specifications"},
			}
			p, err := NewMappedStrategy(tt.headers, group).Parse(tt.row)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			assertAttributes(t, p.Attributes, tt.want)
		})
	}
}

func TestIsCanonicalField(t *testing.T) {
	for _, name := range []string{"id", "Name", "salePrice", "main_image", "additionalImage4", "TYPE"} {
		if !IsCanonicalField(name) {
			t.Errorf("IsCanonicalField(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"Culoare", "additionalImage5", ""} {
		if IsCanonicalField(name) {
			t.Errorf("IsCanonicalField(%q) = true, want false", name)
		}
	}
}

func TestStrategyKind_String(t *testing.T) {
	tests := map[StrategyKind]string{
		StrategyContakt:   "contakt",
		StrategyInterlink: "interlink",
		StrategyMapped:    "mapped",
		StrategyKind(9):   "strategy(9)",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(k), got, want)
		}
	}
}
