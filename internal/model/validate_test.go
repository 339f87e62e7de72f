package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const (
	testListID = "6f1c2f4e-8a3b-4d2a-9c1e-2b7f0e5a9d10"
	testItemID = "0b8e7c1a-5d4f-4e3a-8b2c-1f9d6a7e3c21"
)

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func strPtr(s string) *string { return &s }

func TestCreateListInput_NameRequired(t *testing.T) {
	in := CreateListInput{Name: ""}
	errs := fieldErrors(t, in.Validate())
	if !hasFieldError(errs, "name") {
		t.Errorf("expected error on field 'name', got %+v", errs)
	}
}

func TestCreateListInput_WhitespaceName(t *testing.T) {
	in := CreateListInput{Name: "   \t"}
	errs := fieldErrors(t, in.Validate())
	if !hasFieldError(errs, "name") {
		t.Error("expected error on field 'name' for whitespace-only name")
	}
}

func TestCreateListInput_Normalizes(t *testing.T) {
	in := CreateListInput{Name: "  Launch Checklist ", Description: strPtr("   ")}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if in.Name != "Launch Checklist" {
		t.Errorf("Name = %q, want trimmed", in.Name)
	}
	if in.Description != nil {
		t.Errorf("Description = %q, want nil for blank input", *in.Description)
	}
}

func TestCreateItemInput_Valid(t *testing.T) {
	status := StatusInProgress
	pos := 0
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	in := CreateItemInput{
		ListID:   testListID,
		Title:    " Write README ",
		Notes:    strPtr(" first draft "),
		Status:   &status,
		Position: &pos,
		DueDate:  &due,
		Tags:     []string{" docs", "", "writing "},
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if in.Title != "Write README" {
		t.Errorf("Title = %q", in.Title)
	}
	if got := Deref(in.Notes); got != "first draft" {
		t.Errorf("Notes = %q", got)
	}
	if strings.Join(in.Tags, ",") != "docs,writing" {
		t.Errorf("Tags = %v, want [docs writing]", in.Tags)
	}
	if in.DueDate.Location() != time.UTC {
		t.Errorf("DueDate location = %v, want UTC", in.DueDate.Location())
	}
}

func TestCreateItemInput_Errors(t *testing.T) {
	bogus := Status("someday")
	neg := -1

	tests := []struct {
		name  string
		in    CreateItemInput
		field string
	}{
		{"missing list", CreateItemInput{Title: "x"}, "list_id"},
		{"bad list id", CreateItemInput{ListID: "not-a-uuid", Title: "x"}, "list_id"},
		{"missing title", CreateItemInput{ListID: testListID, Title: "  "}, "title"},
		{"bad status", CreateItemInput{ListID: testListID, Title: "x", Status: &bogus}, "status"},
		{"negative position", CreateItemInput{ListID: testListID, Title: "x", Position: &neg}, "position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := fieldErrors(t, tt.in.Validate())
			if !hasFieldError(errs, tt.field) {
				t.Errorf("expected error on %q, got %+v", tt.field, errs)
			}
		})
	}
}

func TestCreateItemInput_ReportsEveryField(t *testing.T) {
	in := CreateItemInput{ListID: "nope", Title: ""}
	err := in.Validate()
	errs := fieldErrors(t, err)
	if len(errs) != 2 {
		t.Fatalf("got %d field errors, want 2: %v", len(errs), err)
	}
	if !strings.HasPrefix(err.Error(), "validation failed: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestUpdateItemInput_Partial(t *testing.T) {
	done := StatusDone
	in := UpdateItemInput{ItemID: testItemID, Status: &done}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if in.Tags != nil {
		t.Errorf("Tags = %v, want nil (unchanged)", in.Tags)
	}
}

func TestUpdateItemInput_TrimsText(t *testing.T) {
	in := UpdateItemInput{
		ItemID:      testItemID,
		Title:       strPtr("  Write docs "),
		Description: strPtr("  padded  "),
		Notes:       strPtr("   "),
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if Deref(in.Title) != "Write docs" {
		t.Errorf("Title = %q", Deref(in.Title))
	}
	if Deref(in.Description) != "padded" {
		t.Errorf("Description = %q", Deref(in.Description))
	}
	if in.Notes != nil {
		t.Errorf("Notes = %q, want nil (unchanged)", *in.Notes)
	}
}

func TestUpdateItemInput_BlankTitle(t *testing.T) {
	in := UpdateItemInput{ItemID: testItemID, Title: strPtr("   ")}
	errs := fieldErrors(t, in.Validate())
	if !hasFieldError(errs, "title") {
		t.Errorf("expected error on 'title', got %+v", errs)
	}
}

func TestUpdateItemInput_ClearTags(t *testing.T) {
	in := UpdateItemInput{ItemID: testItemID, Tags: []string{" ", ""}}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if in.Tags == nil || len(in.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", in.Tags)
	}
}

func TestUpdateItemInput_RequiresItemID(t *testing.T) {
	in := UpdateItemInput{ListID: "bad"}
	errs := fieldErrors(t, in.Validate())
	if !hasFieldError(errs, "item_id") {
		t.Error("expected error on 'item_id'")
	}
	if !hasFieldError(errs, "list_id") {
		t.Error("expected error on 'list_id' for malformed id")
	}
}

func TestUpdateListInput_BlankName(t *testing.T) {
	in := UpdateListInput{ListID: testListID, Name: strPtr("  ")}
	errs := fieldErrors(t, in.Validate())
	if !hasFieldError(errs, "name") {
		t.Error("expected error on 'name' for blank rename")
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID("list_id", testListID); err != nil {
		t.Errorf("ValidateID(valid) error = %v", err)
	}
	errs := fieldErrors(t, ValidateID("list_id", ""))
	if errs[0].Message != "is required" {
		t.Errorf("empty id message = %q", errs[0].Message)
	}
	errs = fieldErrors(t, ValidateID("item_id", "1234"))
	if errs[0].Field != "item_id" || errs[0].Message != "must be a valid UUID" {
		t.Errorf("got %+v", errs[0])
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"docs, writing", []string{"docs", "writing"}},
		{" , ,", nil},
		{"", nil},
		{"solo", []string{"solo"}},
	}
	for _, tt := range tests {
		got := ParseTags(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || (got == nil) != (tt.want == nil) {
			t.Errorf("ParseTags(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
