package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyFeed is returned when a feed has no headers or no data rows.
	ErrEmptyFeed = errors.New("feed is empty: no headers or no rows")

	// ErrInvalidID is returned when a mapped id column does not hold an integer.
	ErrInvalidID = errors.New("invalid id format")

	// ErrUnsupportedSupplier is returned when no attribute parser exists for a supplier.
	ErrUnsupportedSupplier = errors.New("no parser for supplier")

	// ErrUserNotFound is returned when the uploading user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoProducts is returned when an export is requested without product ids.
	ErrNoProducts = errors.New("no product ids provided")

	// ErrCatalogEmpty is returned when normalization is requested without a catalog.
	ErrCatalogEmpty = errors.New("marketplace catalog not loaded")

	// ErrUploadNotFound is returned when cancelling an upload that is not running.
	ErrUploadNotFound = errors.New("upload not found")

	// ErrInvalidMapping is returned when a mapping rule lacks a source, destination or market.
	ErrInvalidMapping = errors.New("invalid mapping")

	// ErrProductNotFound is returned when a product does not exist or belongs
	// to another user.
	ErrProductNotFound = errors.New("product not found")

	// ErrEmailExists is returned when registering an email that is already in use.
	ErrEmailExists = errors.New("email already in use")

	// ErrInvalidCredentials is returned when an email and password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidAccount is returned when registration data is incomplete.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrForbidden is returned when a caller acts on another user's account.
	ErrForbidden = errors.New("forbidden")
)

// RowError reports a row that failed conversion.
type RowError struct {
	Line int // 1-based line in the feed, header is line 1
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
