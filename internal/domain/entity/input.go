package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names so errors match the wire format
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateInput carries the requester-supplied fields of a new workflow
type CreateInput struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Priority    Priority `json:"priority" validate:"required,oneof=low medium high critical"`
	DueDate     string   `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Normalized returns a copy with surrounding whitespace removed from every field
func (in CreateInput) Normalized() CreateInput {
	return CreateInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Priority:    Priority(strings.TrimSpace(string(in.Priority))),
		DueDate:     strings.TrimSpace(in.DueDate),
	}
}

// Validate checks the normalized input; blank-after-trim fields are rejected
func (in CreateInput) Validate() error {
	if err := validate.Struct(in.Normalized()); err != nil {
		return translateValidationError(err)
	}
	return nil
}

// EditPatch is a partial update of a draft. Nil fields are left unchanged;
// an empty DueDate clears the due date.
type EditPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p EditPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Priority == nil && p.DueDate == nil
}

// Merge applies the patch onto w's editable fields after validating the merged result.
// w is left untouched when validation fails.
func (p EditPatch) Merge(w *Workflow) error {
	candidate := CreateInput{
		Title:       w.Title,
		Description: w.Description,
		Category:    w.Category,
		Priority:    w.Priority,
		DueDate:     string(w.DueDate),
	}
	if p.Title != nil {
		candidate.Title = *p.Title
	}
	if p.Description != nil {
		candidate.Description = *p.Description
	}
	if p.Category != nil {
		candidate.Category = *p.Category
	}
	if p.Priority != nil {
		candidate.Priority = *p.Priority
	}
	if p.DueDate != nil {
		candidate.DueDate = *p.DueDate
	}

	if err := candidate.Validate(); err != nil {
		return err
	}

	merged := candidate.Normalized()
	w.Title = merged.Title
	w.Description = merged.Description
	w.Category = merged.Category
	w.Priority = merged.Priority
	w.DueDate = Date(merged.DueDate)
	return nil
}

// translateValidationError maps the first validator failure onto a ValidationError
func translateValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
	}
	return &ValidationError{Field: "input", Reason: err.Error()}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
