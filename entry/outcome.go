package entry

import (
	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
)

// Status is the result of validating one entry.
type Status string

const (
	// StatusValid marks an entry that passed every rule for its category.
	StatusValid Status = "valid"

	// StatusInvalid marks an entry that broke a rule. It is still republished.
	StatusInvalid Status = "invalid"
)

// Outcome is the validation result for a single entry.
type Outcome struct {
	// Path is the entry name inside the archive
	Path string `json:"path"`

	Category Category `json:"category"`
	Status   Status   `json:"status"`

	// Detail names the violated rule or decode error for invalid entries
	Detail string `json:"detail,omitempty"`
}

// Valid reports whether the entry passed validation.
func (o Outcome) Valid() bool {
	return o.Status == StatusValid
}

// Err returns an entry validation error for invalid outcomes and nil otherwise.
func (o Outcome) Err() error {
	if o.Valid() {
		return nil
	}
	return errors.NewError(errors.CodeEntryValidation, "validate "+string(o.Category), errors.ErrInvalidInput).
		WithKey(o.Path).
		WithMessage(o.Detail)
}

// Validate classifies name and applies the matching content rules to payload.
// Other entries are always valid.
func Validate(name string, payload []byte) Outcome {
	out := Outcome{
		Path:     name,
		Category: Classify(name),
		Status:   StatusValid,
	}

	var err error
	switch out.Category {
	case CategoryImage:
		_, err = ValidateImage(payload)
	case CategoryLabel:
		_, err = ValidateLabel(payload)
	case CategoryOther:
	}

	if err != nil {
		out.Status = StatusInvalid
		out.Detail = err.Error()
	}
	return out
}
