package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestRequestID_Shape(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(RequestPrefix) + `[a-zA-Z0-9]{12}$`)
	for i := 0; i < 100; i++ {
		id, err := RequestID()
		if err != nil {
			t.Fatalf("RequestID() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("RequestID() = %q, does not match %s", id, pattern)
		}
	}
}

func TestRequestID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id := MustRequestID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestWithPrefix(t *testing.T) {
	id, err := WithPrefix("evt-")
	if err != nil {
		t.Fatalf("WithPrefix() error: %v", err)
	}
	if !strings.HasPrefix(id, "evt-") {
		t.Errorf("WithPrefix() = %q, want prefix evt-", id)
	}
	if len(id) != len("evt-")+Length {
		t.Errorf("WithPrefix() length = %d, want %d", len(id), len("evt-")+Length)
	}
}
