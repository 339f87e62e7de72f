package model

import (
	"strings"
	"time"
)

// CreateListInput is the payload for creating a list.
type CreateListInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// Normalize trims the name and drops a blank description.
func (in *CreateListInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimOptional(in.Description)
}

// Validate normalizes the input and checks it for constraint violations.
func (in *CreateListInput) Validate() error {
	in.Normalize()
	return validateStruct(in)
}

// UpdateListInput is a partial update of a list. Nil fields are left unchanged.
type UpdateListInput struct {
	ListID      string  `json:"-" field:"list_id" validate:"required,uuid"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
}

// Validate normalizes the input and checks it for constraint violations.
func (in *UpdateListInput) Validate() error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	return validateStruct(in)
}

// CreateItemInput is the payload for adding an item to a list.
type CreateItemInput struct {
	ListID      string     `json:"-" field:"list_id" validate:"required,uuid"`
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      *Status    `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress blocked done"`
	Position    *int       `json:"position,omitempty" validate:"omitempty,gte=0"`
	Tags        []string   `json:"tags,omitempty"`
}

// Normalize trims text fields, drops blank optionals and blank tags, and
// converts the due date to UTC.
func (in *CreateItemInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = trimOptional(in.Description)
	in.Notes = trimOptional(in.Notes)
	in.Tags = normalizeTags(in.Tags)
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		in.DueDate = &d
	}
}

// Validate normalizes the input and checks it for constraint violations.
func (in *CreateItemInput) Validate() error {
	in.Normalize()
	return validateStruct(in)
}

// UpdateItemInput is a partial update of an item. Nil fields are left
// unchanged; a non-nil empty Tags slice clears the item's tags.
type UpdateItemInput struct {
	ItemID      string     `json:"-" field:"item_id" validate:"required,uuid"`
	ListID      string     `json:"-" field:"list_id" validate:"omitempty,uuid"`
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string    `json:"description,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      *Status    `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress blocked done"`
	Position    *int       `json:"position,omitempty" validate:"omitempty,gte=0"`
	Tags        []string   `json:"tags"`
}

// Validate normalizes the input and checks it for constraint violations.
// A title that trims to nothing is rejected rather than sent.
func (in *UpdateItemInput) Validate() error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	in.Description = trimOptional(in.Description)
	in.Notes = trimOptional(in.Notes)
	if in.Tags != nil {
		in.Tags = normalizeTags(in.Tags)
		if in.Tags == nil {
			in.Tags = []string{}
		}
	}
	if in.DueDate != nil {
		d := in.DueDate.UTC()
		in.DueDate = &d
	}
	return validateStruct(in)
}

// ParseTags splits a comma-separated tag string such as "docs, writing",
// trimming each tag and dropping blanks. It returns nil when no tags remain.
func ParseTags(s string) []string {
	return normalizeTags(strings.Split(s, ","))
}

func normalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
