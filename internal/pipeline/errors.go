package pipeline

import "errors"

// Sentinel errors for fatal request failures. Tool-stage failures are not
// fatal and never surface as errors from Process.
var (
	// ErrEmptyQuery indicates a blank query was submitted.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrClassification indicates the router could not classify the query.
	ErrClassification = errors.New("classification failed")

	// ErrDirectCompletion indicates the direct completion call failed.
	ErrDirectCompletion = errors.New("direct completion failed")
)
