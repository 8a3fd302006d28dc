package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewBookValidate(t *testing.T) {
	loc := "  FICT-A1 "
	nb := NewBook{Title: " Dune ", Author: "Herbert", Location: &loc}
	if err := nb.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if nb.Title != "Dune" {
		t.Errorf("title = %q, want trimmed", nb.Title)
	}
	if nb.Location == nil || *nb.Location != "FICT-A1" {
		t.Errorf("location = %v, want FICT-A1", nb.Location)
	}

	blank := "   "
	nb = NewBook{Title: "Dune", Author: "Herbert", Location: &blank}
	if err := nb.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if nb.Location != nil {
		t.Errorf("blank location should become nil, got %q", *nb.Location)
	}

	nb = NewBook{Title: "", Author: " "}
	err := nb.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) != 2 {
		t.Fatalf("expected 2 field errors, got %v", err)
	}
}

func TestBookUpdateDecode(t *testing.T) {
	var u BookUpdate
	if err := json.Unmarshal([]byte(`{"location": null, "category": "Sci-Fi"}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !u.Location.Set || !u.Location.Null {
		t.Errorf("location should be set to null: %+v", u.Location)
	}
	if !u.Category.Set || u.Category.Null || u.Category.Value != "Sci-Fi" {
		t.Errorf("category = %+v", u.Category)
	}
	if u.Title.Set || u.Status.Set {
		t.Error("absent fields should not be set")
	}
	if u.Location.Ptr() != nil {
		t.Error("Ptr of null should be nil")
	}
}

func TestBookUpdateValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"empty", `{}`, false},
		{"reserve", `{"status":"reserved"}`, false},
		{"clear location", `{"location":null}`, false},
		{"sold", `{"status":"sold"}`, true},
		{"bogus status", `{"status":"lost"}`, true},
		{"null status", `{"status":null}`, true},
		{"null title", `{"title":null}`, true},
		{"blank author", `{"author":"  "}`, true},
		{"blank location", `{"location":""}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u BookUpdate
			if err := json.Unmarshal([]byte(tt.body), &u); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			err := u.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("error %v is not ErrValidation", err)
			}
		})
	}
}
