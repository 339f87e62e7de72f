package model

import (
	"strings"
	"testing"
)

const validItemJSON = `{
	"id": "0b8e7c1a-5d4f-4e3a-8b2c-1f9d6a7e3c21",
	"list_id": "6f1c2f4e-8a3b-4d2a-9c1e-2b7f0e5a9d10",
	"title": "Write README",
	"description": null,
	"notes": "first draft",
	"due_date": null,
	"status": "todo",
	"position": 0,
	"completed_at": null,
	"created_at": "2026-01-15T10:00:00Z",
	"updated_at": "2026-01-15T10:00:00+00:00",
	"tags": [{"id": "a3c9e1d2-7b6f-4c5e-9d8a-0f1e2d3c4b5a", "name": "docs"}]
}`

func TestDecodeItem(t *testing.T) {
	item, err := DecodeItem([]byte(validItemJSON))
	if err != nil {
		t.Fatalf("DecodeItem() error = %v", err)
	}
	if item.Title != "Write README" {
		t.Errorf("Title = %q", item.Title)
	}
	if item.Description != nil {
		t.Errorf("Description = %v, want nil", item.Description)
	}
	if Deref(item.Notes) != "first draft" {
		t.Errorf("Notes = %v", item.Notes)
	}
	if len(item.Tags) != 1 || item.Tags[0].Name != "docs" {
		t.Errorf("Tags = %+v", item.Tags)
	}
}

func TestDecodeItem_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		old   string
		new   string
		field string
	}{
		{"bad status", `"status": "todo"`, `"status": "open"`, "status"},
		{"bad id", `"id": "0b8e7c1a-5d4f-4e3a-8b2c-1f9d6a7e3c21"`, `"id": "42"`, "id"},
		{"bad timestamp", `"created_at": "2026-01-15T10:00:00Z"`, `"created_at": "yesterday"`, "created_at"},
		{"negative position", `"position": 0`, `"position": -3`, "position"},
		{"fractional position", `"position": 0`, `"position": 1.5`, "position"},
		{"bad tag id", `"id": "a3c9e1d2-7b6f-4c5e-9d8a-0f1e2d3c4b5a"`, `"id": "tag"`, "tags.0.id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := strings.Replace(validItemJSON, tt.old, tt.new, 1)
			_, err := DecodeItem([]byte(raw))
			errs := fieldErrors(t, err)
			if !hasFieldError(errs, tt.field) {
				t.Errorf("expected error on %q, got %+v", tt.field, errs)
			}
		})
	}
}

func TestDecodeItem_EmptyBody(t *testing.T) {
	errs := fieldErrors(t, func() error { _, err := DecodeItem(nil); return err }())
	if !hasFieldError(errs, "body") {
		t.Errorf("got %+v", errs)
	}
}

func TestDecodeItem_NotJSON(t *testing.T) {
	_, err := DecodeItem([]byte("<html>"))
	errs := fieldErrors(t, err)
	if errs[0].Message != "is not valid JSON" {
		t.Errorf("got %+v", errs)
	}
}

func TestDecodeItem_TrailingData(t *testing.T) {
	_, err := DecodeItem([]byte(validItemJSON + ` {}`))
	errs := fieldErrors(t, err)
	if errs[0].Message != "is not valid JSON" {
		t.Errorf("got %+v", errs)
	}
}

func TestDecodeItem_LargePosition(t *testing.T) {
	raw := strings.Replace(validItemJSON, `"position": 0`, `"position": 9007199254740993`, 1)
	item, err := DecodeItem([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeItem() error = %v", err)
	}
	if item.Position != 9007199254740993 {
		t.Errorf("Position = %d", item.Position)
	}
}

func TestDecodeListSummaries(t *testing.T) {
	raw := `[{"id":"6f1c2f4e-8a3b-4d2a-9c1e-2b7f0e5a9d10","name":"Launch Checklist","description":null,
		"created_at":"2026-01-15T10:00:00Z","updated_at":"2026-01-15T10:00:00Z","item_count":3}]`
	lists, err := DecodeListSummaries([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeListSummaries() error = %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Launch Checklist" || lists[0].ItemCount != 3 {
		t.Errorf("got %+v", lists)
	}
}

func TestDecodeListSummaries_Empty(t *testing.T) {
	lists, err := DecodeListSummaries([]byte(`[]`))
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if lists == nil || len(lists) != 0 {
		t.Errorf("got %#v, want empty non-nil", lists)
	}
}

func TestDecodeListSummaries_MissingCount(t *testing.T) {
	raw := `[{"id":"6f1c2f4e-8a3b-4d2a-9c1e-2b7f0e5a9d10","name":"x",
		"created_at":"2026-01-15T10:00:00Z","updated_at":"2026-01-15T10:00:00Z"}]`
	_, err := DecodeListSummaries([]byte(raw))
	errs := fieldErrors(t, err)
	if !hasFieldError(errs, "0") {
		t.Errorf("expected error on element 0, got %+v", errs)
	}
}

func TestDecodeListDetail_DerivesItemCount(t *testing.T) {
	raw := `{"id":"6f1c2f4e-8a3b-4d2a-9c1e-2b7f0e5a9d10","name":"Launch Checklist",
		"created_at":"2026-01-15T10:00:00Z","updated_at":"2026-01-15T10:00:00Z",
		"items":[` + validItemJSON + `]}`
	detail, err := DecodeListDetail([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeListDetail() error = %v", err)
	}
	if detail.ItemCount != 1 {
		t.Errorf("ItemCount = %d, want 1", detail.ItemCount)
	}
	if len(detail.Items) != 1 || detail.Items[0].ListID != detail.ID {
		t.Errorf("Items = %+v", detail.Items)
	}
}

func TestDecodeListDetail_NestedError(t *testing.T) {
	bad := strings.Replace(validItemJSON, `"status": "todo"`, `"status": "later"`, 1)
	raw := `{"id":"6f1c2f4e-8a3b-4d2a-9c1e-2b7f0e5a9d10","name":"x",
		"created_at":"2026-01-15T10:00:00Z","updated_at":"2026-01-15T10:00:00Z",
		"items":[` + bad + `]}`
	_, err := DecodeListDetail([]byte(raw))
	errs := fieldErrors(t, err)
	if !hasFieldError(errs, "items.0.status") {
		t.Errorf("expected error on items.0.status, got %+v", errs)
	}
}

func TestPointerToPath(t *testing.T) {
	tests := map[string]string{
		"":                "body",
		"#":               "body",
		"/items/0/status": "items.0.status",
		"#/tags/1/name":   "tags.1.name",
		"/a~1b/c~0d":      "a/b.c~d",
	}
	for in, want := range tests {
		if got := pointerToPath(in); got != want {
			t.Errorf("pointerToPath(%q) = %q, want %q", in, got, want)
		}
	}
}
