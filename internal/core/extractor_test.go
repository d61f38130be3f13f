package core

import (
	"context"
	"errors"
	"testing"
)

var testUser = User{ID: 7, Name: "Ana", Surname: "Pop", Email: "ana@example.com"}

func TestExtractProducts_EmptyFeed(t *testing.T) {
	ex := NewExtractor()

	tests := []struct {
		name string
		raw  RawFeedData
	}{
		{name: "no rows", raw: RawFeedData{Headers: contaktHeaders}},
		{name: "no headers", raw: RawFeedData{Rows: [][]string{contaktRow()}}},
		{name: "nothing", raw: RawFeedData{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ex.ExtractProducts(context.Background(), tt.raw, nil, testUser)
			if !errors.Is(err, ErrEmptyFeed) {
				t.Fatalf("error = %v, want ErrEmptyFeed", err)
			}
			if got != nil {
				t.Errorf("got extraction %+v, want nil", got)
			}
		})
	}
}

func TestExtractProducts_Contakt(t *testing.T) {
	raw := RawFeedData{Headers: contaktHeaders, Rows: [][]string{contaktRow()}}

	got, err := NewExtractor().ExtractProducts(context.Background(), raw, nil, testUser)
	if err != nil {
		t.Fatalf("ExtractProducts error: %v", err)
	}
	if !got.Detected || got.Strategy != StrategyContakt {
		t.Fatalf("Detected=%v Strategy=%v, want contakt", got.Detected, got.Strategy)
	}
	if len(got.Products) != 1 {
		t.Fatalf("got %d products, want 1", len(got.Products))
	}

	p := got.Products[0]
	if p.Category != "Scule electrice > Polizoare" {
		t.Errorf("Category = %q", p.Category)
	}
	if p.Currency != "LEI" || p.Type != "new" {
		t.Errorf("Currency=%q Type=%q, want LEI new", p.Currency, p.Type)
	}
	if p.UserID != testUser.ID || p.User == nil || p.User.Email != testUser.Email {
		t.Errorf("owner not stamped: UserID=%d User=%+v", p.UserID, p.User)
	}
	if p.ID != 0 {
		t.Errorf("ID = %d, want 0 under database ids", p.ID)
	}
}

func TestExtractProducts_NotDetected(t *testing.T) {
	raw := RawFeedData{
		Headers: []string{"foo", "bar"},
		Rows:    [][]string{{"1", "2"}},
	}

	got, err := NewExtractor().ExtractProducts(context.Background(), raw, nil, testUser)
	if err != nil {
		t.Fatalf("ExtractProducts error: %v", err)
	}
	if got.Detected {
		t.Fatal("Detected = true, want false")
	}
	if got.Reason != NoMappingReason {
		t.Errorf("Reason = %q, want %q", got.Reason, NoMappingReason)
	}
	if len(got.Headers) != 2 || got.Headers[0] != "foo" {
		t.Errorf("Headers = %v, want echoed", got.Headers)
	}
	if len(got.Products) != 0 {
		t.Errorf("got %d products, want 0", len(got.Products))
	}
}

func TestExtractProducts_SequenceIDs(t *testing.T) {
	row2 := contaktRow()
	row2[0] = "XYZ"
	raw := RawFeedData{Headers: contaktHeaders, Rows: [][]string{contaktRow(), row2}}

	ex := NewExtractor(WithIDPolicy(NewSequenceIDs(100)), WithWorkers(2))
	got, err := ex.ExtractProducts(context.Background(), raw, nil, testUser)
	if err != nil {
		t.Fatalf("ExtractProducts error: %v", err)
	}
	if len(got.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(got.Products))
	}

	for i, want := range []int64{100, 101} {
		p := got.Products[i]
		if p.ID != want {
			t.Errorf("product %d ID = %d, want %d", i, p.ID, want)
		}
		for _, pa := range p.Attributes {
			if pa.ProductID != want {
				t.Errorf("product %d attribute %q ProductID = %d, want %d", i, pa.Attribute.Name, pa.ProductID, want)
			}
		}
	}
	if got.Products[1].Model != "XYZ" {
		t.Errorf("row order not preserved: second model = %q", got.Products[1].Model)
	}
}

func mappedFeed() (RawFeedData, [][]MapModel) {
	raw := RawFeedData{
		Headers: []string{"SKU", "Titlu"},
		Rows: [][]string{
			{"1", "Disc A"},
			{"abc", "Disc B"},
			{"3", "Disc C"},
		},
	}
	groups := [][]MapModel{rules("Altex", "SKU", "id", "Titlu", "name")}
	return raw, groups
}

func TestExtractProducts_SkipRow(t *testing.T) {
	raw, groups := mappedFeed()

	got, err := NewExtractor().ExtractProducts(context.Background(), raw, groups, testUser)
	if err != nil {
		t.Fatalf("ExtractProducts error: %v", err)
	}
	if got.Strategy != StrategyMapped || got.Market != "Altex" {
		t.Errorf("Strategy=%v Market=%q", got.Strategy, got.Market)
	}
	if len(got.Products) != 2 {
		t.Fatalf("got %d products, want 2", len(got.Products))
	}
	if got.Products[0].ID != 1 || got.Products[1].ID != 3 {
		t.Errorf("feed ids not kept: %d, %d", got.Products[0].ID, got.Products[1].ID)
	}
	if len(got.FailedRows) != 1 {
		t.Fatalf("got %d failed rows, want 1", len(got.FailedRows))
	}
	fr := got.FailedRows[0]
	if fr.LineNumber != 3 {
		t.Errorf("LineNumber = %d, want 3", fr.LineNumber)
	}
	if fr.Data[0] != "abc" {
		t.Errorf("Data = %v", fr.Data)
	}
}

func TestExtractProducts_AbortBatch(t *testing.T) {
	raw, groups := mappedFeed()

	ex := NewExtractor(WithRowErrorPolicy(AbortBatch))
	got, err := ex.ExtractProducts(context.Background(), raw, groups, testUser)
	if got != nil {
		t.Errorf("got extraction, want nil")
	}

	var rowErr *RowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("error = %v, want *RowError", err)
	}
	if rowErr.Line != 3 {
		t.Errorf("Line = %d, want 3", rowErr.Line)
	}
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("error does not wrap ErrInvalidID: %v", err)
	}
}

func TestExtractProducts_IgnoreFeedIDs(t *testing.T) {
	raw, groups := mappedFeed()
	raw.Rows = raw.Rows[:1]

	ex := NewExtractor(WithIDPolicy(NewSequenceIDs(500)), WithFeedIDs(false))
	got, err := ex.ExtractProducts(context.Background(), raw, groups, testUser)
	if err != nil {
		t.Fatalf("ExtractProducts error: %v", err)
	}
	if got.Products[0].ID != 500 {
		t.Errorf("ID = %d, want 500", got.Products[0].ID)
	}
}

func TestParseRowErrorPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    RowErrorPolicy
		wantErr bool
	}{
		{"skip", SkipRow, false},
		{"", SkipRow, false},
		{" ABORT ", AbortBatch, false},
		{"retry", SkipRow, true},
	}

	for _, tt := range tests {
		got, err := ParseRowErrorPolicy(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRowErrorPolicy(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseRowErrorPolicy(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
