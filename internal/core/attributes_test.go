package core

import (
	"errors"
	"testing"
)

func TestExtractFromDelimited(t *testing.T) {
	tests := []struct {
		name  string
		blob  string
		delim string
		want  []ProductAttribute
	}{
		{
			name:  "two segments",
			blob:  "Culoare: Negru;Greutate: 2kg",
			delim: ";",
			want: []ProductAttribute{
				{ProductID: 7, Attribute: Attribute{Name: "Culoare", Code: "culoare"}, Value: "Negru"},
				{ProductID: 7, Attribute: Attribute{Name: "Greutate", Code: "greutate"}, Value: "2kg"},
			},
		},
		{
			name:  "segment without colon is dropped",
			blob:  "Fara colon aici",
			delim: ";",
			want:  nil,
		},
		{
			name:  "only first colon splits",
			blob:  "Dimensiune: 10:20:30",
			delim: ";",
			want: []ProductAttribute{
				{ProductID: 7, Attribute: Attribute{Name: "Dimensiune", Code: "dimensiune"}, Value: "10:20:30"},
			},
		},
		{
			name:  "multi word name",
			blob:  "Tip Produs : Disc abraziv",
			delim: ";",
			want: []ProductAttribute{
				{ProductID: 7, Attribute: Attribute{Name: "Tip Produs", Code: "tip_produs"}, Value: "Disc abraziv"},
			},
		},
		{
			name:  "empty name and empty value kept",
			blob:  ": fara nume\nGarantie:",
			delim: "\n",
			want: []ProductAttribute{
				{ProductID: 7, Attribute: Attribute{Name: "", Code: ""}, Value: "fara nume"},
				{ProductID: 7, Attribute: Attribute{Name: "Garantie", Code: "garantie"}, Value: ""},
			},
		},
		{
			name:  "blank blob",
			blob:  "   ",
			delim: ";",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFromDelimited(tt.blob, tt.delim, 7)
			assertAttributes(t, got, tt.want)
		})
	}
}

func TestExtractFromDescription(t *testing.T) {
	desc := "Polizor unghiular puternic\nPutere: 900W\nDiametru disc: 125 mm"
	got := ExtractFromDescription(desc, 3)
	want := []ProductAttribute{
		{ProductID: 3, Attribute: Attribute{Name: "Putere", Code: "putere"}, Value: "900W"},
		{ProductID: 3, Attribute: Attribute{Name: "Diametru disc", Code: "diametru_disc"}, Value: "125 mm"},
	}
	assertAttributes(t, got, want)
}

func TestAttributeParserFor(t *testing.T) {
	p, err := AttributeParserFor("contakt")
	if err != nil {
		t.Fatalf("AttributeParserFor(contakt) error: %v", err)
	}
	if got := p.Parse("Culoare: Rosu;Material: Otel", 0); len(got) != 2 {
		t.Errorf("contakt parser returned %d attributes, want 2", len(got))
	}

	p, err = AttributeParserFor("Interlink")
	if err != nil {
		t.Fatalf("AttributeParserFor(Interlink) error: %v", err)
	}
	if got := p.Parse("Culoare: Rosu\nMaterial: Otel", 0); len(got) != 2 {
		t.Errorf("interlink parser returned %d attributes, want 2", len(got))
	}

	_, err = AttributeParserFor("Altex")
	if !errors.Is(err, ErrUnsupportedSupplier) {
		t.Errorf("AttributeParserFor(Altex) error = %v, want ErrUnsupportedSupplier", err)
	}
}

func TestInterlinkAttributeParser(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []ProductAttribute
	}{
		{
			name: "free text without pairs",
			raw:  "Polizor unghiular\nFoarte puternic",
			want: nil,
		},
		{
			name: "pairs mixed with prose",
			raw:  "Polizor unghiular\nPutere: 900W",
			want: []ProductAttribute{
				{ProductID: 5, Attribute: Attribute{Name: "Putere", Code: "putere"}, Value: "900W"},
			},
		},
		{
			name: "single line pair",
			raw:  "Culoare: Rosu",
			want: []ProductAttribute{
				{ProductID: 5, Attribute: Attribute{Name: "Culoare", Code: "culoare"}, Value: "Rosu"},
			},
		},
		{
			name: "semicolons are not separators",
			raw:  "Culoare: Rosu;Material: Otel",
			want: []ProductAttribute{
				{ProductID: 5, Attribute: Attribute{Name: "Culoare", Code: "culoare"}, Value: "Rosu;Material: Otel"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertAttributes(t, interlinkAttributeParser{}.Parse(tt.raw, 5), tt.want)
		})
	}
}

func TestBuiltinStrategiesUseSupplierParsers(t *testing.T) {
	if _, ok := NewContaktStrategy().(contaktStrategy).attrs.(contaktAttributeParser); !ok {
		t.Error("contakt strategy does not use the contakt attribute parser")
	}
	if _, ok := NewInterlinkStrategy().(interlinkStrategy).attrs.(interlinkAttributeParser); !ok {
		t.Error("interlink strategy does not use the interlink attribute parser")
	}
}

func TestMustAttributeParser_PanicsForUnknownSupplier(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("mustAttributeParser(Altex) did not panic")
		}
	}()
	mustAttributeParser("Altex")
}

func TestAttributeParserForHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		blob    string
		want    int
		wantErr bool
	}{
		{
			name:    "contakt signature",
			headers: []string{"Cod produs", "Brand", "Denumire produs", "Pret"},
			blob:    "A: 1;B: 2",
			want:    2,
		},
		{
			name:    "interlink signature",
			headers: []string{"id", "name", "description"},
			blob:    "A: 1\nB: 2",
			want:    2,
		},
		{
			name:    "unknown signature",
			headers: []string{"sku", "title"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := AttributeParserForHeaders(tt.headers)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedSupplier) {
					t.Fatalf("error = %v, want ErrUnsupportedSupplier", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := p.Parse(tt.blob, 0); len(got) != tt.want {
				t.Errorf("Parse returned %d attributes, want %d", len(got), tt.want)
			}
		})
	}
}

func assertAttributes(t *testing.T, got, want []ProductAttribute) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d attributes, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ProductID != w.ProductID || g.Attribute.Name != w.Attribute.Name ||
			g.Attribute.Code != w.Attribute.Code || g.Value != w.Value || g.IsExtractedByAI != w.IsExtractedByAI {
			t.Errorf("attribute %d = %+v, want %+v", i, g, w)
		}
	}
}
