package core

import (
	"fmt"
	"strings"
)

// StrategyKind identifies one of the supported feed layouts.
type StrategyKind int

const (
	StrategyContakt   StrategyKind = iota + 1 // built-in Contakt layout
	StrategyInterlink                         // built-in Interlink layout
	StrategyMapped                            // user-saved column mapping
)

func (k StrategyKind) String() string {
	switch k {
	case StrategyContakt:
		return "contakt"
	case StrategyInterlink:
		return "interlink"
	case StrategyMapped:
		return "mapped"
	default:
		return fmt.Sprintf("strategy(%d)", int(k))
	}
}

// Strategy converts one feed row into a canonical product.
type Strategy interface {
	Kind() StrategyKind
	Parse(row []string) (Product, error)
}

// ============================================================================
// Contakt
// ============================================================================

// Column positions in a Contakt feed.
const (
	contaktModel = iota
	contaktManufacturer
	contaktName
	contaktMainImage
	contaktDescription
	contaktCategory1
	contaktCategory2
	contaktImage2
	contaktSpecs
	contaktStock
	_
	contaktPrice
)

type contaktStrategy struct {
	attrs AttributeParser
}

// NewContaktStrategy returns the strategy for the fixed Contakt column layout.
func NewContaktStrategy() Strategy {
	return contaktStrategy{attrs: mustAttributeParser(SupplierContakt)}
}

func (contaktStrategy) Kind() StrategyKind { return StrategyContakt }

func (s contaktStrategy) Parse(row []string) (Product, error) {
	p := NewProduct()
	p.Model = SafeGet(row, contaktModel)
	p.Manufacturer = SafeGet(row, contaktManufacturer)
	p.Name = SafeGet(row, contaktName)
	p.MainImage = SafeGet(row, contaktMainImage)
	p.Description = SafeGet(row, contaktDescription)
	// Two-level taxonomy is flattened for display.
	p.Category = SafeGet(row, contaktCategory1) + " > " + SafeGet(row, contaktCategory2)
	p.AdditionalImage1 = SafeGet(row, contaktImage2)
	p.Quantity = ParseIntOrZero(SafeGet(row, contaktStock))
	p.Price = ParseDecimalOrZero(SafeGet(row, contaktPrice))
	p.Currency = DefaultCurrency
	p.Type = DefaultProductType
	p.Attributes = s.attrs.Parse(SafeGet(row, contaktSpecs), p.ID)
	return p, nil
}

// ============================================================================
// Interlink
// ============================================================================

// Column positions in an Interlink feed.
const (
	interlinkID = iota
	interlinkName
	interlinkDescription
	interlinkModel
	interlinkManufacturer
	interlinkCategory
	interlinkPrice
	interlinkSalePrice
	interlinkCurrency
	interlinkQuantity
	interlinkWarranty
	interlinkMainImage
	interlinkImage1
	interlinkImage2
	interlinkImage3
	interlinkImage4
	interlinkType
)

type interlinkStrategy struct {
	attrs AttributeParser
}

// NewInterlinkStrategy returns the strategy for the fixed Interlink column layout.
// Interlink has no specification column; attributes come from the description.
func NewInterlinkStrategy() Strategy {
	return interlinkStrategy{attrs: mustAttributeParser(SupplierInterlink)}
}

func (interlinkStrategy) Kind() StrategyKind { return StrategyInterlink }

func (s interlinkStrategy) Parse(row []string) (Product, error) {
	p := NewProduct()
	p.Name = SafeGet(row, interlinkName)
	p.Description = SafeGet(row, interlinkDescription)
	p.Model = SafeGet(row, interlinkModel)
	p.Manufacturer = SafeGet(row, interlinkManufacturer)
	p.Category = SafeGet(row, interlinkCategory)
	p.Price = ParseDecimalOrZero(SafeGet(row, interlinkPrice))
	p.SalePrice = ParseDecimalOrZero(SafeGet(row, interlinkSalePrice))
	p.Currency = SafeGet(row, interlinkCurrency)
	p.Quantity = ParseIntOrZero(SafeGet(row, interlinkQuantity))
	p.Warranty = ParseIntOrZero(SafeGet(row, interlinkWarranty))
	p.MainImage = SafeGet(row, interlinkMainImage)
	p.AdditionalImage1 = SafeGet(row, interlinkImage1)
	p.AdditionalImage2 = SafeGet(row, interlinkImage2)
	p.AdditionalImage3 = SafeGet(row, interlinkImage3)
	p.AdditionalImage4 = SafeGet(row, interlinkImage4)
	if t := strings.TrimSpace(SafeGet(row, interlinkType)); t != "" {
		p.Type = t
	}
	p.Attributes = s.attrs.Parse(p.Description, p.ID)
	return p, nil
}

// ============================================================================
// Mapped
// ============================================================================

// fieldSetter assigns a cell value to one canonical product field.
type fieldSetter func(p *Product, value string) error

// canonicalFields dispatches destination names (see fieldKey) to setters.
var canonicalFields = map[string]fieldSetter{
	"id": func(p *Product, v string) error {
		id, err := ParseID(v)
		if err != nil {
			return err
		}
		p.ID = id
		return nil
	},
	"name":             func(p *Product, v string) error { p.Name = v; return nil },
	"description":      func(p *Product, v string) error { p.Description = v; return nil },
	"model":            func(p *Product, v string) error { p.Model = v; return nil },
	"manufacturer":     func(p *Product, v string) error { p.Manufacturer = v; return nil },
	"category":         func(p *Product, v string) error { p.Category = v; return nil },
	"price":            func(p *Product, v string) error { p.Price = ParseDecimalOrZero(v); return nil },
	"saleprice":        func(p *Product, v string) error { p.SalePrice = ParseDecimalOrZero(v); return nil },
	"currency":         func(p *Product, v string) error { p.Currency = v; return nil },
	"quantity":         func(p *Product, v string) error { p.Quantity = ParseIntOrZero(v); return nil },
	"warranty":         func(p *Product, v string) error { p.Warranty = ParseIntOrZero(v); return nil },
	"mainimage":        func(p *Product, v string) error { p.MainImage = v; return nil },
	"additionalimage1": func(p *Product, v string) error { p.AdditionalImage1 = v; return nil },
	"additionalimage2": func(p *Product, v string) error { p.AdditionalImage2 = v; return nil },
	"additionalimage3": func(p *Product, v string) error { p.AdditionalImage3 = v; return nil },
	"additionalimage4": func(p *Product, v string) error { p.AdditionalImage4 = v; return nil },
	"type":             func(p *Product, v string) error { p.Type = v; return nil },
}

// IsCanonicalField reports whether name targets a Product field rather than
// a dynamic attribute.
func IsCanonicalField(name string) bool {
	_, ok := canonicalFields[fieldKey(name)]
	return ok
}

// specificationsField is the destination that marks a free-text
// specification column. Its "name: value" pairs become attributes.
const specificationsField = "specifications"

// columnRule is a mapping rule resolved against a concrete header row.
type columnRule struct {
	pos         int
	destination string
	set         fieldSetter // nil for dynamic attributes
}

type mappedStrategy struct {
	rules []columnRule
	specs []int
	attrs AttributeParser
}

// NewMappedStrategy builds a strategy from a saved mapping group.
// Rules whose source column is absent from headers are ignored.
func NewMappedStrategy(headers []string, group []MapModel) Strategy {
	idx := MakeHeaderIndex(headers)
	s := mappedStrategy{rules: make([]columnRule, 0, len(group))}
	for _, m := range group {
		pos, ok := idx.Lookup(m.SourceField)
		if !ok {
			continue
		}
		if fieldKey(m.DestinationField) == specificationsField {
			s.specs = append(s.specs, pos)
			continue
		}
		s.rules = append(s.rules, columnRule{
			pos:         pos,
			destination: strings.TrimSpace(m.DestinationField),
			set:         canonicalFields[fieldKey(m.DestinationField)],
		})
	}
	if len(s.specs) > 0 {
		s.attrs = specificationParserFor(headers)
	}
	return s
}

func (mappedStrategy) Kind() StrategyKind { return StrategyMapped }

// Parse applies every rule to the row. Numeric fields default to zero on bad
// input; a malformed id fails the whole row. Specification columns are
// parsed last so their attributes carry the mapped id.
func (s mappedStrategy) Parse(row []string) (Product, error) {
	p := NewProduct()
	for _, r := range s.rules {
		value := SafeGet(row, r.pos)
		if r.set == nil {
			p.Attributes = append(p.Attributes, ProductAttribute{
				Attribute:       Attribute{Name: r.destination, Code: AttributeCode(r.destination)},
				Value:           value,
				IsExtractedByAI: false,
			})
			continue
		}
		if err := r.set(&p, value); err != nil {
			return Product{}, fmt.Errorf("map %s: %w", r.destination, err)
		}
	}
	for _, pos := range s.specs {
		p.Attributes = append(p.Attributes, s.attrs.Parse(SafeGet(row, pos), p.ID)...)
	}
	return p, nil
}
