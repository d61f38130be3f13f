package core

import (
	"fmt"
	"slices"
	"strings"
)

// ExtractFromDelimited splits blob on delim and turns every "name: value"
// segment into an attribute. Only the first colon separates name from value,
// so "Dimensiune: 10:20:30" keeps "10:20:30" intact. Segments without a colon
// are dropped; a segment with an empty name such as ": x" is kept.
func ExtractFromDelimited(blob, delim string, productID int64) []ProductAttribute {
	if strings.TrimSpace(blob) == "" {
		return nil
	}

	var result []ProductAttribute
	for _, segment := range strings.Split(blob, delim) {
		if pa, ok := parseSegment(segment, productID); ok {
			result = append(result, pa)
		}
	}
	return result
}

// ExtractFromDescription is the last-resort extractor for free text: one
// candidate "name: value" pair per line.
func ExtractFromDescription(description string, productID int64) []ProductAttribute {
	return ExtractFromDelimited(description, "\n", productID)
}

func parseSegment(segment string, productID int64) (ProductAttribute, bool) {
	name, value, ok := strings.Cut(segment, ":")
	if !ok {
		return ProductAttribute{}, false
	}
	name = strings.TrimSpace(name)
	return ProductAttribute{
		ProductID: productID,
		Attribute: Attribute{
			Name: name,
			Code: AttributeCode(name),
		},
		Value:           strings.TrimSpace(value),
		IsExtractedByAI: false,
	}, true
}

// AttributeParser turns a supplier's specification text into attributes.
type AttributeParser interface {
	Parse(raw string, productID int64) []ProductAttribute
}

// contaktAttributeParser reads the ";"-separated specification column.
type contaktAttributeParser struct{}

func (contaktAttributeParser) Parse(raw string, productID int64) []ProductAttribute {
	return ExtractFromDelimited(raw, ";", productID)
}

// interlinkAttributeParser reads "name: value" lines out of the description.
type interlinkAttributeParser struct{}

func (interlinkAttributeParser) Parse(raw string, productID int64) []ProductAttribute {
	return ExtractFromDescription(raw, productID)
}

// AttributeParserFor returns the attribute parser for a supplier name.
// Unknown suppliers are an error: by the time attributes are parsed the
// feed layout has already been recognized.
func AttributeParserFor(supplier string) (AttributeParser, error) {
	switch {
	case strings.EqualFold(supplier, SupplierContakt):
		return contaktAttributeParser{}, nil
	case strings.EqualFold(supplier, SupplierInterlink):
		return interlinkAttributeParser{}, nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnsupportedSupplier, supplier)
	}
}

// AttributeParserForHeaders infers the supplier from the feed header signature.
func AttributeParserForHeaders(headers []string) (AttributeParser, error) {
	switch {
	case isInterlinkFeed(headers):
		return interlinkAttributeParser{}, nil
	case isContaktFeed(headers):
		return contaktAttributeParser{}, nil
	default:
		return nil, fmt.Errorf("%w with headers %v", ErrUnsupportedSupplier, headers)
	}
}

// specificationParserFor picks the parser for a mapped specification column.
// Feeds without a known signature fall back to line-based extraction.
func specificationParserFor(headers []string) AttributeParser {
	if p, err := AttributeParserForHeaders(headers); err == nil {
		return p
	}
	return interlinkAttributeParser{}
}

// mustAttributeParser is AttributeParserFor for the built-in suppliers.
func mustAttributeParser(supplier string) AttributeParser {
	p, err := AttributeParserFor(supplier)
	if err != nil {
		panic(err)
	}
	return p
}

func isContaktFeed(headers []string) bool {
	return hasHeaders(headers, "Cod produs", "Brand", "Denumire produs")
}

func isInterlinkFeed(headers []string) bool {
	return hasHeaders(headers, "id", "name", "description")
}

// hasHeaders reports whether every name is present. Signature headers are
// compared exactly after cell cleanup.
func hasHeaders(headers []string, names ...string) bool {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = CleanCell(h)
	}
	for _, n := range names {
		if !slices.Contains(cleaned, n) {
			return false
		}
	}
	return true
}
