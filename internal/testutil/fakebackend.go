// Package testutil provides an in-memory todo REST service for tests.
package testutil

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
)

var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// FakeBackend serves the todo REST API from memory. It follows the real
// service's observable behaviour: lists ordered by creation, cascading list
// deletes, lowercase deduplicated tags, resequenced positions, completed_at
// tracking and `{"detail": ...}` error bodies.
type FakeBackend struct {
	srv      *httptest.Server
	basePath string
	token    string

	mu       sync.Mutex
	clock    time.Time
	lists    map[string]*wireList
	items    map[string]*wireItem
	tags     map[string]wireTag
	failures []failure
	requests []string
}

type failure struct {
	status int
	detail string
}

type wireList struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type wireSummary struct {
	wireList
	ItemCount int `json:"item_count"`
}

type wireDetail struct {
	wireList
	Items []wireItem `json:"items"`
}

type wireTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireItem struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Notes       *string    `json:"notes"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `json:"status"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Tags        []wireTag  `json:"tags"`
}

// FakeOption configures a FakeBackend.
type FakeOption func(*FakeBackend)

// WithBasePath mounts the API under p instead of "/api".
func WithBasePath(p string) FakeOption {
	return func(b *FakeBackend) { b.basePath = "/" + strings.Trim(p, "/") }
}

// WithAuthToken requires a bearer token on every request except health checks.
func WithAuthToken(token string) FakeOption {
	return func(b *FakeBackend) { b.token = token }
}

// NewFakeBackend starts a fake todo service that is shut down when the test ends.
func NewFakeBackend(t testing.TB, opts ...FakeOption) *FakeBackend {
	t.Helper()
	b := &FakeBackend{
		basePath: "/api",
		clock:    time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		lists:    make(map[string]*wireList),
		items:    make(map[string]*wireItem),
		tags:     make(map[string]wireTag),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.basePath == "/" {
		b.basePath = ""
	}
	b.srv = httptest.NewServer(b.handler())
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the server root, without the API base path.
func (b *FakeBackend) URL() string { return b.srv.URL }

// FailNext makes the next request fail with status and a detail message.
// Calls queue up.
func (b *FakeBackend) FailNext(status int, detail string) {
	b.mu.Lock()
	b.failures = append(b.failures, failure{status: status, detail: detail})
	b.mu.Unlock()
}

// Requests returns every request served so far as "METHOD /path".
func (b *FakeBackend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// Count returns how many requests matched method and path exactly.
func (b *FakeBackend) Count(method, path string) int {
	want := method + " " + path
	n := 0
	for _, r := range b.Requests() {
		if r == want {
			n++
		}
	}
	return n
}

// ListCount returns the number of stored lists.
func (b *FakeBackend) ListCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lists)
}

// ItemCount returns the number of stored items across all lists.
func (b *FakeBackend) ItemCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *FakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	p := b.basePath
	mux.HandleFunc("GET "+p+"/healthz", b.handleHealth)
	mux.HandleFunc("GET "+p+"/todo/lists", b.handleListLists)
	mux.HandleFunc("POST "+p+"/todo/lists", b.handleCreateList)
	mux.HandleFunc("GET "+p+"/todo/lists/{id}", b.handleGetList)
	mux.HandleFunc("PATCH "+p+"/todo/lists/{id}", b.handleUpdateList)
	mux.HandleFunc("DELETE "+p+"/todo/lists/{id}", b.handleDeleteList)
	mux.HandleFunc("POST "+p+"/todo/lists/{id}/items", b.handleCreateItem)
	mux.HandleFunc("PATCH "+p+"/todo/items/{id}", b.handleUpdateItem)
	mux.HandleFunc("DELETE "+p+"/todo/items/{id}", b.handleDeleteItem)
	return b.intercept(authMiddleware(b.token, p+"/healthz", mux))
}

// intercept records requests and serves queued failures.
func (b *FakeBackend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		var f *failure
		if len(b.failures) > 0 {
			f = &b.failures[0]
			b.failures = b.failures[1:]
		}
		b.mu.Unlock()

		if f != nil {
			writeError(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authMiddleware(token, healthPath string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == healthPath {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		provided := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (b *FakeBackend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *FakeBackend) handleListLists(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]wireSummary, 0, len(b.lists))
	for _, l := range b.sortedListsLocked() {
		out = append(out, wireSummary{wireList: *l, ItemCount: len(b.itemsOfLocked(l.ID))})
	}
	writeJSON(w, http.StatusOK, out)
}

type createListBody struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (b *FakeBackend) handleCreateList(w http.ResponseWriter, r *http.Request) {
	var in createListBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		writeIssue(w, "name", "String should have at least 1 character")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.tickLocked()
	l := &wireList{
		ID:          uuid.NewString(),
		Name:        name,
		Description: cleanText(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.lists[l.ID] = l
	writeJSON(w, http.StatusCreated, wireSummary{wireList: *l})
}

type detailQuery struct {
	IncludeItems bool `schema:"include_items"`
}

func (b *FakeBackend) handleGetList(w http.ResponseWriter, r *http.Request) {
	var q detailQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lists[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Todo list not found")
		return
	}
	out := wireDetail{wireList: *l, Items: []wireItem{}}
	if q.IncludeItems {
		for _, it := range b.itemsOfLocked(l.ID) {
			out.Items = append(out.Items, *it)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lists[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Todo list not found")
		return
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			writeIssue(w, "name", "String should have at least 1 character")
			return
		}
		l.Name = name
	}
	if in.Description != nil {
		l.Description = cleanText(in.Description)
	}
	l.UpdatedAt = b.tickLocked()
	writeJSON(w, http.StatusOK, wireSummary{wireList: *l, ItemCount: len(b.itemsOfLocked(l.ID))})
}

func (b *FakeBackend) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := b.lists[id]; !ok {
		writeError(w, http.StatusNotFound, "Todo list not found")
		return
	}
	for _, it := range b.itemsOfLocked(id) {
		delete(b.items, it.ID)
	}
	delete(b.lists, id)
	w.WriteHeader(http.StatusNoContent)
}

type itemBody struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Notes       *string    `json:"notes"`
	DueDate     *time.Time `json:"due_date"`
	Status      *string    `json:"status"`
	Position    *int       `json:"position"`
	Tags        *[]string  `json:"tags"`
}

func (in itemBody) check(requireTitle bool) (field, msg string) {
	if (in.Title != nil && strings.TrimSpace(*in.Title) == "") || (requireTitle && in.Title == nil) {
		return "title", "String should have at least 1 character"
	}
	if in.Status != nil {
		switch *in.Status {
		case "todo", "in_progress", "blocked", "done":
		default:
			return "status", "Input should be 'todo', 'in_progress', 'blocked' or 'done'"
		}
	}
	if in.Position != nil && *in.Position < 0 {
		return "position", "Input should be greater than or equal to 0"
	}
	return "", ""
}

func (b *FakeBackend) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var in itemBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if field, msg := in.check(true); field != "" {
		writeIssue(w, field, msg)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	listID := r.PathValue("id")
	l, ok := b.lists[listID]
	if !ok {
		writeError(w, http.StatusNotFound, "Todo list not found")
		return
	}

	now := b.tickLocked()
	it := &wireItem{
		ID:          uuid.NewString(),
		ListID:      listID,
		Title:       strings.TrimSpace(*in.Title),
		Description: cleanText(in.Description),
		Notes:       cleanText(in.Notes),
		DueDate:     in.DueDate,
		Status:      "todo",
		CreatedAt:   now,
		UpdatedAt:   now,
		Tags:        []wireTag{},
	}
	if in.Status != nil {
		it.Status = *in.Status
	}
	if it.Status == "done" {
		it.CompletedAt = &now
	}
	if in.Tags != nil {
		it.Tags = b.tagsLocked(*in.Tags)
	}

	siblings := b.itemsOfLocked(listID)
	pos := len(siblings)
	if in.Position != nil && *in.Position < pos {
		pos = *in.Position
	}
	b.items[it.ID] = it
	b.placeLocked(siblings, it, pos)
	l.UpdatedAt = now
	writeJSON(w, http.StatusCreated, *it)
}

func (b *FakeBackend) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var in itemBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if field, msg := in.check(false); field != "" {
		writeIssue(w, field, msg)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.items[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Todo item not found")
		return
	}

	now := b.tickLocked()
	if in.Title != nil {
		it.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		it.Description = cleanText(in.Description)
	}
	if in.Notes != nil {
		it.Notes = cleanText(in.Notes)
	}
	if in.DueDate != nil {
		it.DueDate = in.DueDate
	}
	if in.Status != nil && *in.Status != it.Status {
		it.Status = *in.Status
		if it.Status == "done" {
			it.CompletedAt = &now
		} else {
			it.CompletedAt = nil
		}
	}
	if in.Tags != nil {
		it.Tags = b.tagsLocked(*in.Tags)
	}
	if in.Position != nil {
		var siblings []*wireItem
		for _, s := range b.itemsOfLocked(it.ListID) {
			if s.ID != it.ID {
				siblings = append(siblings, s)
			}
		}
		pos := min(*in.Position, len(siblings))
		b.placeLocked(siblings, it, pos)
	}
	it.UpdatedAt = now
	writeJSON(w, http.StatusOK, *it)
}

func (b *FakeBackend) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	it, ok := b.items[r.PathValue("id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Todo item not found")
		return
	}
	delete(b.items, it.ID)
	for i, s := range b.itemsOfLocked(it.ListID) {
		s.Position = i
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

// tickLocked advances the fake clock so timestamps are strictly increasing.
func (b *FakeBackend) tickLocked() time.Time {
	b.clock = b.clock.Add(time.Second)
	return b.clock
}

func (b *FakeBackend) sortedListsLocked() []*wireList {
	out := make([]*wireList, 0, len(b.lists))
	for _, l := range b.lists {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (b *FakeBackend) itemsOfLocked(listID string) []*wireItem {
	var out []*wireItem
	for _, it := range b.items {
		if it.ListID == listID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// placeLocked inserts it at pos among siblings and renumbers from zero.
func (b *FakeBackend) placeLocked(siblings []*wireItem, it *wireItem, pos int) {
	ordered := make([]*wireItem, 0, len(siblings)+1)
	ordered = append(ordered, siblings[:pos]...)
	ordered = append(ordered, it)
	ordered = append(ordered, siblings[pos:]...)
	for i, s := range ordered {
		s.Position = i
	}
}

// tagsLocked normalises names to lowercase, drops blanks and duplicates, and
// reuses one tag id per name.
func (b *FakeBackend) tagsLocked(names []string) []wireTag {
	out := []wireTag{}
	seen := make(map[string]bool)
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		tag, ok := b.tags[n]
		if !ok {
			tag = wireTag{ID: uuid.NewString(), Name: n}
			b.tags[n] = tag
		}
		out = append(out, tag)
	}
	return out
}

func cleanText(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeIssue writes a 422 response shaped like a request validation failure.
func writeIssue(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{
			"loc":  []string{"body", field},
			"msg":  msg,
			"type": "value_error",
		}},
	})
}

// String describes the backend's contents, for test failure messages.
func (b *FakeBackend) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("FakeBackend{lists: %d, items: %d}", len(b.lists), len(b.items))
}
