// Package export writes a JSONL snapshot of every list and its items and
// delivers it to files, S3 buckets or git repositories, once or on a
// schedule.
package export

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/todoboard/internal/model"
)

// Version is written in the header of every export.
const Version = "1"

// Source is the read side of the todo API an export needs.
type Source interface {
	ListLists(ctx context.Context) ([]model.TodoListSummary, error)
	GetListDetail(ctx context.Context, listID string) (*model.TodoListDetail, error)
}

// Header is the first JSONL record written by ExportJSONL.
type Header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ListCount int       `json:"list_count"`
	ItemCount int       `json:"item_count"`
}

// Record wraps a single JSONL line with a type discriminator.
type Record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Snapshot is one encoded export. Digest covers the list records only, so
// two snapshots of unchanged data match even though their headers differ.
type Snapshot struct {
	Header Header
	Lists  []*model.TodoListDetail
	Data   []byte
	Digest string
}

// Take reads every list from src and encodes the snapshot: a header line,
// then one "list" record per list, sorted by id, with its items embedded.
func Take(ctx context.Context, src Source) (*Snapshot, error) {
	summaries, err := src.ListLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}

	details := make([]*model.TodoListDetail, 0, len(summaries))
	items := 0
	for _, s := range summaries {
		d, err := src.GetListDetail(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("get list %s: %w", s.ID, err)
		}
		details = append(details, d)
		items += len(d.Items)
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].ID < details[j].ID
	})

	snap := &Snapshot{
		Header: Header{
			Version:   Version,
			Type:      "header",
			Timestamp: time.Now().UTC(),
			ListCount: len(details),
			ItemCount: items,
		},
		Lists: details,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap.Header); err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	for _, d := range details {
		if err := enc.Encode(Record{Type: "list", Data: d}); err != nil {
			return nil, fmt.Errorf("encode list %s: %w", d.ID, err)
		}
	}
	snap.Data = buf.Bytes()
	snap.Digest = contentDigest(snap.Data)
	return snap, nil
}

// ExportJSONL writes a snapshot of every list from src to w. Nothing is
// written when reading the source fails.
func ExportJSONL(ctx context.Context, src Source, w io.Writer) error {
	snap, err := Take(ctx, src)
	if err != nil {
		return err
	}
	_, err = w.Write(snap.Data)
	return err
}

// Summary describes the snapshot's contents in one line.
func (s *Snapshot) Summary() string {
	return fmt.Sprintf("%s, %s", plural(s.Header.ListCount, "list"), plural(s.Header.ItemCount, "task"))
}

// contentDigest hashes everything after the header line of an export.
func contentDigest(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	} else {
		data = nil
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
