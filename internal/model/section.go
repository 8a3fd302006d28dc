package model

import (
	"strings"
	"time"
)

// Section is a named storage area (a shelf or bay) that books are kept in.
// Book locations reference sections by code.
type Section struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultSections is the catalog created for a new database.
var DefaultSections = []Section{
	{Code: "FICT-A1", Name: "Fiction - Shelf A1", Capacity: 100},
	{Code: "FICT-A2", Name: "Fiction - Shelf A2", Capacity: 100},
	{Code: "FICT-B1", Name: "Fiction - Shelf B1", Capacity: 150},
	{Code: "NFICT-C1", Name: "Non-fiction - Shelf C1", Capacity: 120},
	{Code: "NFICT-C2", Name: "Non-fiction - Shelf C2", Capacity: 120},
	{Code: "INFAN-D1", Name: "Children - Shelf D1", Capacity: 80},
	{Code: "ACAD-E1", Name: "Academic - Shelf E1", Capacity: 150},
	{Code: "ACAD-E2", Name: "Academic - Shelf E2", Capacity: 150},
}

// Validate trims the section and checks required fields.
func (s *Section) Validate() error {
	s.Code = strings.TrimSpace(s.Code)
	s.Name = strings.TrimSpace(s.Name)

	var errs []FieldError
	if s.Code == "" {
		errs = append(errs, FieldError{Field: "code", Message: "required"})
	} else if strings.ContainsAny(s.Code, " \t/") {
		errs = append(errs, FieldError{Field: "code", Message: "must not contain spaces or slashes"})
	}
	if s.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if s.Capacity < 0 {
		errs = append(errs, FieldError{Field: "capacity", Message: "must not be negative"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}
