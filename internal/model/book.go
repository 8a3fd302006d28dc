package model

import (
	"strings"
	"time"
)

// Book is a single copy of a book held in stock. Each copy is tracked
// individually: it sits in one section and is sold once.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    *string   `json:"location"`
	Status      string    `json:"status"`
	ImageMime   string    `json:"image_mime,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Book statuses.
const (
	BookStatusAvailable = "available"
	BookStatusSold      = "sold"
	BookStatusReserved  = "reserved"
)

// ValidBookStatus reports whether s is a known book status.
func ValidBookStatus(s string) bool {
	switch s {
	case BookStatusAvailable, BookStatusSold, BookStatusReserved:
		return true
	}
	return false
}

// LocationValue returns the book's location or "" when it has none.
func (b *Book) LocationValue() string {
	if b.Location == nil {
		return ""
	}
	return *b.Location
}

// NewBook holds the input for adding a book to stock.
type NewBook struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Location    *string `json:"location"`
	Note        string  `json:"note"`
}

// Validate trims the input and checks required fields.
func (nb *NewBook) Validate() error {
	nb.Title = strings.TrimSpace(nb.Title)
	nb.Author = strings.TrimSpace(nb.Author)
	nb.Category = strings.TrimSpace(nb.Category)
	nb.Location = trimLocation(nb.Location)

	var errs []FieldError
	if nb.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "required"})
	}
	if nb.Author == "" {
		errs = append(errs, FieldError{Field: "author", Message: "required"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// BookUpdate is a partial update. Absent fields are left untouched; an
// explicit null clears the field where that is allowed.
type BookUpdate struct {
	Title       Optional[string] `json:"title"`
	Author      Optional[string] `json:"author"`
	Category    Optional[string] `json:"category"`
	Description Optional[string] `json:"description"`
	Location    Optional[string] `json:"location"`
	Status      Optional[string] `json:"status"`
	Note        string           `json:"note"`
}

// Validate checks the fields that are present.
func (u *BookUpdate) Validate() error {
	var errs []FieldError
	if u.Title.Set && (u.Title.Null || strings.TrimSpace(u.Title.Value) == "") {
		errs = append(errs, FieldError{Field: "title", Message: "cannot be empty"})
	}
	if u.Author.Set && (u.Author.Null || strings.TrimSpace(u.Author.Value) == "") {
		errs = append(errs, FieldError{Field: "author", Message: "cannot be empty"})
	}
	if u.Status.Set {
		switch {
		case u.Status.Null:
			errs = append(errs, FieldError{Field: "status", Message: "cannot be null"})
		case u.Status.Value == BookStatusSold:
			errs = append(errs, FieldError{Field: "status", Message: "use the sell operation to mark a book as sold"})
		case !ValidBookStatus(u.Status.Value):
			errs = append(errs, FieldError{Field: "status", Message: "must be available or reserved"})
		}
	}
	if u.Location.Set && !u.Location.Null && strings.TrimSpace(u.Location.Value) == "" {
		errs = append(errs, FieldError{Field: "location", Message: "use null to clear the location"})
	}
	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// BookFilter narrows book listings. Empty fields are unconstrained.
type BookFilter struct {
	Status   string `json:"status,omitempty"`
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`
}

func trimLocation(loc *string) *string {
	if loc == nil {
		return nil
	}
	v := strings.TrimSpace(*loc)
	if v == "" {
		return nil
	}
	return &v
}
