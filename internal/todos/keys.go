package todos

import "github.com/alfredjeanlab/todoboard/internal/querycache"

// Keys builds the cache keys of todo data. Every key starts with All, and
// every list detail key starts with Lists, so invalidating Lists also marks
// each detail stale.
var Keys keys

type keys struct{}

// All is the root key for all todo data.
func (keys) All() querycache.Key { return querycache.Key{"todo"} }

// Lists addresses the collection of list summaries.
func (keys) Lists() querycache.Key { return querycache.Key{"todo", "lists"} }

// List addresses one list's detail.
func (keys) List(id string) querycache.Key { return querycache.Key{"todo", "lists", id} }
