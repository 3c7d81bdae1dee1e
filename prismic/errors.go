package prismic

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("prismic: document not found")

// StatusError reports a non-200 response from the API.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prismic: %s returned status %d", e.URL, e.StatusCode)
}

// DecodeError is returned when a response or a document's data does not
// match the expected shape. Field names the first offending field.
type DecodeError struct {
	DocumentID string
	Field      string
	Err        error
}

func (e *DecodeError) Error() string {
	msg := "prismic: decode"
	if e.DocumentID != "" {
		msg += " document " + e.DocumentID
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
