package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// DataQualityError reports input rows that could not be normalized. The
// pipeline keeps going past per-row failures and surfaces the batch-level
// tally; a run aborts only when the rejection rate crosses the configured
// ceiling.
type DataQualityError struct {
	SourceFile   string
	TotalRows    int
	RejectedRows int
	Samples      []string
	Err          error
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: %d/%d rows rejected from %s", e.RejectedRows, e.TotalRows, e.SourceFile)
}

func (e *DataQualityError) Unwrap() error { return e.Err }

// ConfigurationError reports invalid or inconsistent configuration, such
// as factor weights that do not sum to one or overlapping revenue bands.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// InsufficientDataError reports a stage that cannot produce a meaningful
// result from the rows it was given, such as threshold computation over an
// empty eligible set.
type InsufficientDataError struct {
	Stage string
	Need  int
	Got   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d rows, got %d", e.Stage, e.Need, e.Got)
}

// DownstreamUnavailableError reports a dependency (database, cache, object
// store, warehouse) that could not be reached.
type DownstreamUnavailableError struct {
	System string
	Err    error
}

func (e *DownstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.System, e.Err)
}

func (e *DownstreamUnavailableError) Unwrap() error { return e.Err }

// IsDataQuality reports whether err wraps a DataQualityError.
func IsDataQuality(err error) bool {
	var dq *DataQualityError
	return errors.As(err, &dq)
}

// IsInsufficientData reports whether err wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var id *InsufficientDataError
	return errors.As(err, &id)
}
