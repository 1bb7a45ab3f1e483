package events

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type LocationInput struct {
	Street   string `json:"street" validate:"required"`
	Suburb   string `json:"suburb" validate:"required"`
	State    string `json:"state" validate:"required"`
	PostCode string `json:"post-code" validate:"required"`
}

// CreateInput is the POST /events body.
type CreateInput struct {
	Name        string         `json:"name" validate:"required"`
	Date        string         `json:"date" validate:"required"`
	From        string         `json:"from" validate:"required"`
	To          string         `json:"to" validate:"required"`
	Location    *LocationInput `json:"location" validate:"required"`
	Description string         `json:"description"`
}

type LocationPatch struct {
	Street   *string `json:"street,omitempty"`
	Suburb   *string `json:"suburb,omitempty"`
	State    *string `json:"state,omitempty"`
	PostCode *string `json:"post-code,omitempty"`
}

// PatchInput is the PATCH /events/{id} body. Nil fields are left untouched.
type PatchInput struct {
	Name        *string        `json:"name,omitempty" validate:"omitnil,min=1"`
	Date        *string        `json:"date,omitempty"`
	From        *string        `json:"from,omitempty"`
	To          *string        `json:"to,omitempty"`
	Location    *LocationPatch `json:"location,omitempty"`
	Description *string        `json:"description,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// payloadError converts the first validator failure into a caller-facing
// message naming the JSON property.
func payloadError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return ValidationError{Kind: KindPayload, Message: "Input payload validation failed"}
	}
	fe := fieldErrs[0]
	message := fmt.Sprintf("'%s' is invalid", fe.Field())
	switch fe.Tag() {
	case "required":
		message = fmt.Sprintf("'%s' is a required property", fe.Field())
	case "min":
		message = fmt.Sprintf("'%s' must not be empty", fe.Field())
	}
	return ValidationError{Kind: KindPayload, Field: fe.Field(), Message: message}
}

func (in CreateInput) event() (Event, error) {
	from, err := parseDateTime(in.Date, in.From)
	if err != nil {
		return Event{}, ValidationError{Kind: KindDateTime, Field: "from", Message: "Invalid date or time!"}
	}
	to, err := parseDateTime(in.Date, in.To)
	if err != nil {
		return Event{}, ValidationError{Kind: KindDateTime, Field: "to", Message: "Invalid date or time!"}
	}
	if from.After(to) {
		return Event{}, ErrTimeOrder
	}
	return Event{
		Name: in.Name,
		From: from,
		To:   to,
		Location: Location{
			Street:   in.Location.Street,
			Suburb:   in.Location.Suburb,
			State:    in.Location.State,
			PostCode: in.Location.PostCode,
		},
		Description: in.Description,
	}, nil
}

// apply merges the patch onto e. A new date moves both endpoints and keeps
// their times of day; from and to are combined with the date already on e.
func (p PatchInput) apply(e *Event) error {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Date != nil {
		from, err := parseDateTime(*p.Date, e.From.Format(TimeLayout))
		if err != nil {
			return ValidationError{Kind: KindDateTime, Field: "date", Message: "Invalid date!"}
		}
		to, err := parseDateTime(*p.Date, e.To.Format(TimeLayout))
		if err != nil {
			return ValidationError{Kind: KindDateTime, Field: "date", Message: "Invalid date!"}
		}
		e.From, e.To = from, to
	}
	if p.From != nil {
		from, err := parseDateTime(e.From.Format(DateLayout), *p.From)
		if err != nil {
			return ValidationError{Kind: KindDateTime, Field: "from", Message: "Invalid from time!"}
		}
		e.From = from
	}
	if p.To != nil {
		to, err := parseDateTime(e.To.Format(DateLayout), *p.To)
		if err != nil {
			return ValidationError{Kind: KindDateTime, Field: "to", Message: "Invalid to time!"}
		}
		e.To = to
	}
	if p.Location != nil {
		if p.Location.Street != nil {
			e.Location.Street = *p.Location.Street
		}
		if p.Location.Suburb != nil {
			e.Location.Suburb = *p.Location.Suburb
		}
		if p.Location.State != nil {
			e.Location.State = *p.Location.State
		}
		if p.Location.PostCode != nil {
			e.Location.PostCode = *p.Location.PostCode
		}
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if e.From.After(e.To) {
		return ErrTimeOrder
	}
	return nil
}
