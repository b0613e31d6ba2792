package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeFetch represents a non-2xx response or a transport failure
	ErrorTypeFetch ErrorType = "fetch"
	// ErrorTypeMalformed represents a record whose required fields cannot be coerced
	ErrorTypeMalformed ErrorType = "malformed"
	// ErrorTypeTranslation represents a failure of the translation backend
	ErrorTypeTranslation ErrorType = "translation"
	// ErrorTypeValidation represents invalid input such as a bad product id
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeStorage represents flat-file storage errors
	ErrorTypeStorage ErrorType = "storage"
)

// ExtractionError is the error type shared by every stage of the pipeline.
// Source names what failed: a URL, a record id or a product id.
type ExtractionError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ExtractionError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeFetch:
		return true
	default:
		return false
	}
}

// New creates a new ExtractionError
func New(errType ErrorType, source, message string, err error) *ExtractionError {
	return &ExtractionError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewFetch creates a fetch failure for the given URL
func NewFetch(url, message string, err error) *ExtractionError {
	return New(ErrorTypeFetch, url, message, err)
}

// NewStatus creates a fetch failure for a non-2xx response
func NewStatus(url string, status int) *ExtractionError {
	return New(ErrorTypeFetch, url, fmt.Sprintf("unexpected status code: %d", status), nil)
}

// NewMalformed creates a malformed record error for one field of a record
func NewMalformed(recordID, field string, err error) *ExtractionError {
	return New(ErrorTypeMalformed, recordID, fmt.Sprintf("cannot coerce field %q", field), err)
}

// NewTranslation creates a translation error for a record
func NewTranslation(recordID, field string, err error) *ExtractionError {
	return New(ErrorTypeTranslation, recordID, fmt.Sprintf("cannot translate field %q", field), err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ExtractionError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ExtractionError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewCache creates a new cache error
func NewCache(key, message string, err error) *ExtractionError {
	return New(ErrorTypeCache, key, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(stream, message string, err error) *ExtractionError {
	return New(ErrorTypePublisher, stream, message, err)
}

// NewStorage creates a new storage error
func NewStorage(path, message string, err error) *ExtractionError {
	return New(ErrorTypeStorage, path, message, err)
}

// TypeOf returns the type of the first ExtractionError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var ee *ExtractionError
	if stderrors.As(err, &ee) {
		return ee.Type
	}
	return ""
}

// Is reports whether err carries an ExtractionError of the given type
func Is(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}
