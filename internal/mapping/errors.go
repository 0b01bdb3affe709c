package mapping

import (
	"errors"
	"fmt"

	"github.com/a3tai/mcp-pdf-mapper/internal/schema"
)

// ErrSaveInFlight is returned when a save is requested while a previous
// save has not completed. The caller retries after the pending save
// settles; edits are never interleaved between two saves.
var ErrSaveInFlight = errors.New("a save is already in flight")

// InvalidFieldError reports an edit that references a field name outside
// the current field catalog. The store is left unchanged.
type InvalidFieldError struct {
	Field string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("unknown field: %q", e.Field)
}

// InvalidAttributeError reports an edit that references an attribute id
// outside the client schema. The store is left unchanged.
type InvalidAttributeError struct {
	Attribute schema.AttributeID
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("unknown client attribute: %q", e.Attribute)
}

// FetchFailure reports a collaborator error while loading fields or
// persisted mappings. No partial index is exposed after this error.
type FetchFailure struct {
	TemplateID string
	Err        error
}

func (e *FetchFailure) Error() string {
	return fmt.Sprintf("failed to load template %s: %v", e.TemplateID, e.Err)
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// SaveFailure reports a persistence error. The in-memory store is
// preserved verbatim so the operator can retry without re-entering edits.
type SaveFailure struct {
	TemplateID string
	Err        error
}

func (e *SaveFailure) Error() string {
	return fmt.Sprintf("failed to save mappings for template %s: %v", e.TemplateID, e.Err)
}

func (e *SaveFailure) Unwrap() error { return e.Err }
