package core

// error_messages.go maps technical errors to messages a feed uploader can act on.
//
// Codes are grouped by category and quoted by users when reporting problems:
//
//	FEED001-FEED099  feed content (empty feed, bad ids, unknown supplier)
//	FILE001-FILE099  file decoding (size, format, charset)
//	MAP001-MAP099    saved column mappings
//	CAT001-CAT099    marketplace catalog and export
//	ORC001-ORC099    attribute suggestion oracle
//	UPL001-UPL099    upload sessions and limits
//	DB001-DB099      database operations
//	AUTH001-AUTH099  authentication
//	USR001-USR099    user accounts and owned products
//	RATE001          request rate limiting
//	ERR000           anything unrecognized; check server logs
//
// Patterns are matched in order against the lowercased error text, so more
// specific patterns must come before generic ones like "timeout".

import (
	"fmt"
	"strings"
)

// UserMessage contains a user-friendly error message with guidance.
type UserMessage struct {
	Message string // What went wrong (user-friendly)
	Action  string // What the user can do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Feed content
	{
		pattern: "feed is empty",
		msg: UserMessage{
			Message: "The feed has no header row or no products",
			Action:  "Check that the first row holds column names and at least one product follows",
			Code:    "FEED001",
		},
	},
	{
		pattern: "invalid id format",
		msg: UserMessage{
			Message: "A product id in the feed is not a whole number",
			Action:  "Fix the id column or map it to another field",
			Code:    "FEED002",
		},
	},
	{
		pattern: "no parser for supplier",
		msg: UserMessage{
			Message: "Specifications for this supplier cannot be read",
			Action:  "Save a column mapping for this feed",
			Code:    "FEED003",
		},
	},
	{
		pattern: NoMappingReason,
		msg: UserMessage{
			Message: "The feed layout was not recognized",
			Action:  "Map the feed columns to product fields and upload again",
			Code:    "FEED004",
		},
	},

	// File decoding
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the feed into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file format",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a CSV, XML or XLSX feed",
			Code:    "FILE002",
		},
	},
	{
		pattern: "unknown encoding",
		msg: UserMessage{
			Message: "The configured feed encoding is not recognized",
			Action:  "Use an encoding name such as utf-8 or windows-1250",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a feed file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "parse csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Check the separator and quoting of the feed",
			Code:    "FILE005",
		},
	},
	{
		pattern: "parse xml",
		msg: UserMessage{
			Message: "File is not valid XML",
			Action:  "Validate the feed with an XML tool and try again",
			Code:    "FILE006",
		},
	},
	{
		pattern: "open xlsx",
		msg: UserMessage{
			Message: "File is not a readable Excel workbook",
			Action:  "Save the workbook as .xlsx and try again",
			Code:    "FILE007",
		},
	},

	// Mappings
	{
		pattern: "invalid mapping",
		msg: UserMessage{
			Message: "The column mapping is incomplete",
			Action:  "Provide source field, destination field and market",
			Code:    "MAP001",
		},
	},

	// Catalog and export
	{
		pattern: "catalog not loaded",
		msg: UserMessage{
			Message: "No marketplace catalog has been loaded",
			Action:  "Upload the marketplace template before normalizing",
			Code:    "CAT001",
		},
	},
	{
		pattern: "catalog sheet",
		msg: UserMessage{
			Message: "The marketplace template is missing a required sheet",
			Action:  "Use the original template with the Reguli and Valori caracteristici sheets",
			Code:    "CAT002",
		},
	},
	{
		pattern: "no product ids provided",
		msg: UserMessage{
			Message: "No products were selected for export",
			Action:  "Select at least one product",
			Code:    "CAT003",
		},
	},

	// Oracle
	{
		pattern: "oracle",
		msg: UserMessage{
			Message: "Attribute suggestions are unavailable right now",
			Action:  "Upload without normalization or try again later",
			Code:    "ORC001",
		},
	},

	// Uploads
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "product not found",
		msg: UserMessage{
			Message: "Product does not exist",
			Action:  "Refresh the product list",
			Code:    "USR003",
		},
	},
	{
		pattern: "user not found",
		msg: UserMessage{
			Message: "The uploading user does not exist",
			Action:  "Sign in again or contact an administrator",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL004",
		},
	},
	{
		pattern: "upload not found",
		msg: UserMessage{
			Message: "Upload is not running",
			Action:  "It may already have finished; refresh the upload list",
			Code:    "UPL005",
		},
	},

	// Database
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A product with this ID already exists",
			Action:  "Remove the id mapping or switch the id policy to database",
			Code:    "DB001",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Check that the user and attributes exist",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB004",
		},
	},

	// Authentication
	{
		pattern: "missing token",
		msg: UserMessage{
			Message: "You are not signed in",
			Action:  "Sign in and retry",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid token",
		msg: UserMessage{
			Message: "Your session is not valid",
			Action:  "Sign in again",
			Code:    "AUTH002",
		},
	},

	{
		pattern: "invalid email or password",
		msg: UserMessage{
			Message: "Invalid email or password",
			Action:  "Check your credentials and sign in again",
			Code:    "AUTH003",
		},
	},
	{
		pattern: "forbidden",
		msg: UserMessage{
			Message: "You do not have access to this account",
			Action:  "Sign in as the account owner or an administrator",
			Code:    "AUTH004",
		},
	},

	// Accounts
	{
		pattern: "email already in use",
		msg: UserMessage{
			Message: "Email already in use",
			Action:  "Sign in or register with another email",
			Code:    "USR001",
		},
	},
	{
		pattern: "invalid account",
		msg: UserMessage{
			Message: "Registration details are incomplete",
			Action:  "Provide a name, a valid email and a password of at least 8 characters",
			Code:    "USR002",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// The first matching pattern wins; unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original error for logging
	User      UserMessage // Message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
