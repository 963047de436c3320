package nfe

import "errors"

// Parse failures collapse into four conditions the pipeline can route on.
// The error text carries the field-level detail for diagnostics.
var (
	// ErrMalformed covers non-well-formed XML and non-numeric text in a
	// quantity or value field.
	ErrMalformed = errors.New("malformed invoice document")
	// ErrMissingField means a required header element is absent or empty.
	ErrMissingField = errors.New("missing required invoice field")
	// ErrMalformedDate means the issue date matched neither the date nor the
	// date-time form.
	ErrMalformedDate = errors.New("malformed issue date")
	// ErrNoLineItems means the document parsed but produced zero usable items.
	ErrNoLineItems = errors.New("invoice has no line items")
)
