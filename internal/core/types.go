package core

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Supplier names with a built-in feed layout.
const (
	SupplierContakt   = "Contakt"
	SupplierInterlink = "Interlink"
)

// Product defaults applied when a feed does not say otherwise.
const (
	DefaultCurrency    = "LEI"
	DefaultProductType = "new"
)

// RawFeedData is the tabular view of an uploaded feed file.
// Rows are aligned with Headers by position but may be shorter.
type RawFeedData struct {
	Headers []string
	Rows    [][]string
}

// Validate reports ErrEmptyFeed when the feed has no headers or no rows.
func (d RawFeedData) Validate() error {
	if len(d.Headers) == 0 || len(d.Rows) == 0 {
		return ErrEmptyFeed
	}
	return nil
}

// MapModel is a saved rule mapping one source column onto a canonical field.
type MapModel struct {
	ID               int64  `json:"id"`
	SourceField      string `json:"sourceField"`      // e.g. "Cod produs"
	DestinationField string `json:"destinationField"` // e.g. "model"
	Market           string `json:"market"`           // feed this rule belongs to
	UserID           *int64 `json:"userId,omitempty"` // nil for global rules
}

// User is the principal that owns uploaded products.
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Surname       string `json:"surname"`
	Email         string `json:"email"`
	ContactNumber string `json:"contactNumber,omitempty"`
	Role          string `json:"role"`
}

// Roles a user can hold. Admins may read and delete any account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// FullName returns "Name Surname".
func (u User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

// Attribute is a canonical attribute definition.
type Attribute struct {
	ID            int64    `json:"id,omitempty"`
	Name          string   `json:"name"`
	Code          string   `json:"code"`
	IsRequired    bool     `json:"isRequired"`
	IsRestricted  bool     `json:"isRestricted"`
	Unit          string   `json:"unit,omitempty"`
	AllowedValues []string `json:"allowedValues,omitempty"` // checked only when IsRestricted
}

// Allows reports whether v satisfies the attribute's value restriction.
// Unrestricted attributes and restricted ones without a value list allow anything.
func (a Attribute) Allows(v string) bool {
	if !a.IsRestricted || a.AllowedValues == nil {
		return true
	}
	return slices.Contains(a.AllowedValues, v)
}

// ProductAttribute links a product to an attribute value.
type ProductAttribute struct {
	ProductID       int64     `json:"productId"`
	Attribute       Attribute `json:"attribute"`
	Value           string    `json:"value"`
	IsExtractedByAI bool      `json:"isExtractedByAI"`
}

// Product is the canonical product every feed strategy produces.
type Product struct {
	ID               int64              `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	Model            string             `json:"model"`
	Manufacturer     string             `json:"manufacturer"`
	Category         string             `json:"category"`
	Price            decimal.Decimal    `json:"price"`
	SalePrice        decimal.Decimal    `json:"salePrice"`
	Currency         string             `json:"currency"`
	Quantity         int                `json:"quantity"`
	Warranty         int                `json:"warranty"`
	MainImage        string             `json:"mainImage"`
	AdditionalImage1 string             `json:"additionalImage1"`
	AdditionalImage2 string             `json:"additionalImage2"`
	AdditionalImage3 string             `json:"additionalImage3"`
	AdditionalImage4 string             `json:"additionalImage4"`
	Type             string             `json:"type"`
	UserID           int64              `json:"userId"`
	User             *User              `json:"-"`
	Attributes       []ProductAttribute `json:"attributes"`
}

// NewProduct returns a product with the canonical defaults set.
func NewProduct() Product {
	return Product{
		Currency: DefaultCurrency,
		Type:     DefaultProductType,
	}
}

// AttributeValue returns the value of the first attribute whose code or
// name matches key (case-insensitive).
func (p Product) AttributeValue(key string) (string, bool) {
	for _, pa := range p.Attributes {
		if strings.EqualFold(pa.Attribute.Code, key) || strings.EqualFold(pa.Attribute.Name, key) {
			return pa.Value, true
		}
	}
	return "", false
}

// FailedRow describes a feed row that could not be converted.
type FailedRow struct {
	LineNumber int      `json:"lineNumber"` // 1-based, header is line 1
	Reason     string   `json:"reason"`
	Data       []string `json:"data"`
}

// UploadRequest is one feed upload.
type UploadRequest struct {
	FileName  string
	Reader    io.Reader
	UserID    int64
	Normalize bool // align attributes with the marketplace catalog
}

// UploadResult contains the outcome of a feed upload.
type UploadResult struct {
	UploadID     string        `json:"uploadId"`
	FileName     string        `json:"fileName"`
	Strategy     string        `json:"strategy,omitempty"`
	Market       string        `json:"market,omitempty"`
	NeedsMapping bool          `json:"needsMapping"`
	Reason       string        `json:"reason,omitempty"`
	Headers      []string      `json:"headers,omitempty"`
	TotalRows    int           `json:"totalRows"`
	Inserted     int           `json:"inserted"`
	Skipped      int           `json:"skipped"`
	FailedRows   []FailedRow   `json:"failedRows,omitempty"`
	Products     []Product     `json:"products"`
	Normalized   bool          `json:"normalized"`
	NormalizeErr string        `json:"normalizeError,omitempty"`
	Duration     time.Duration `json:"duration"`
}
