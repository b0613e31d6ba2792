package product

import (
	"sjsage522/opinionworker/internal/extract"
	"sjsage522/opinionworker/internal/opinion"
	"sjsage522/opinionworker/internal/stats"
	"sjsage522/opinionworker/pkg/errors"
)

// Product is one extracted product with its opinions and statistics
type Product struct {
	ID       string           `json:"product_id"`
	Name     string           `json:"product_name"`
	Opinions []opinion.Record `json:"-"`
	Stats    stats.Summary    `json:"stats"`
}

// Failure records why one review did not make it into the product
type Failure struct {
	RecordID string           `json:"opinion_id"`
	Page     int              `json:"page"`
	Reason   errors.ErrorType `json:"reason"`
	Err      error            `json:"-"`

	raw extract.RawRecord
}

// Error returns the failure's error message
func (f Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return f.Err.Error()
}
