package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hetulpatel/employees/internal/employee"
	"github.com/hetulpatel/employees/internal/events"
	"github.com/hetulpatel/employees/internal/logging"
)

// NoLimit disables truncation in ImportOptions.
const NoLimit = -1

// Inserter is the part of the directory store an import needs.
type Inserter interface {
	Insert(ctx context.Context, e employee.Employee) (int64, error)
}

// Ledger records imported entries across runs.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type ImportOptions struct {
	Criteria
	// Limit keeps the first N matches in file order; NoLimit keeps all.
	Limit int
	// SkipImported drops entries the ledger has already seen.
	SkipImported bool
}

type ImportResult struct {
	Matched  int
	Inserted int
	Skipped  int
	// Empty is set when nothing matched; no insert was attempted.
	Empty bool
}

// Importer copies catalog entries into the directory.
type Importer struct {
	Store  Inserter
	Ledger Ledger
	Events events.Publisher
	Now    func() time.Time
}

// Key fingerprints an entry for the import ledger.
func (e Entry) Key() string {
	h := sha256.New()
	for _, p := range []string{e.FullName, e.BirthDate, e.Gender} {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BulkImport loads the catalog at path and imports it.
func (im *Importer) BulkImport(ctx context.Context, path string, opts ImportOptions) (ImportResult, error) {
	entries, err := LoadAll(path)
	if err != nil {
		return ImportResult{}, err
	}
	return im.Import(ctx, entries, opts)
}

// Import filters and truncates entries, validates every survivor, then
// inserts them one statement at a time. Rows inserted before a failure stay.
func (im *Importer) Import(ctx context.Context, entries []Entry, opts ImportOptions) (ImportResult, error) {
	selected := Filter(entries, opts.Criteria)
	if opts.Limit >= 0 && len(selected) > opts.Limit {
		selected = selected[:opts.Limit]
	}
	res := ImportResult{Matched: len(selected)}
	if len(selected) == 0 {
		res.Empty = true
		return res, nil
	}

	emps := make([]employee.Employee, len(selected))
	for i, entry := range selected {
		e, err := employee.New(entry.FullName, entry.BirthDate, entry.Gender)
		if err != nil {
			return res, fmt.Errorf("catalog entry %q: %w", entry.FullName, err)
		}
		emps[i] = e
	}

	for i, entry := range selected {
		key := entry.Key()
		if opts.SkipImported && im.Ledger != nil {
			seen, err := im.Ledger.Seen(ctx, key)
			if err != nil {
				return res, fmt.Errorf("import ledger: %w", err)
			}
			if seen {
				logging.Debugf("[catalog] skip already imported %q", entry.FullName)
				res.Skipped++
				continue
			}
		}

		id, err := im.Store.Insert(ctx, emps[i])
		if err != nil {
			return res, err
		}
		res.Inserted++

		if im.Ledger != nil {
			if err := im.Ledger.Mark(ctx, key); err != nil {
				logging.Errorf("[catalog] ledger mark %q: %v", entry.FullName, err)
			}
		}
		im.publish(ctx, id, emps[i])
	}
	logging.Infof("[catalog] imported %d of %d matched entries (%d skipped)", res.Inserted, res.Matched, res.Skipped)
	return res, nil
}

func (im *Importer) publish(ctx context.Context, id int64, e employee.Employee) {
	if im.Events == nil {
		return
	}
	now := time.Now
	if im.Now != nil {
		now = im.Now
	}
	ev := events.EmployeeAdded{
		ID:        id,
		FullName:  e.FullName,
		BirthDate: e.BirthDateString(),
		Gender:    e.Gender,
		Source:    events.SourceCatalog,
		AddedAt:   now().UTC(),
	}
	if err := im.Events.Publish(ctx, ev); err != nil {
		logging.Errorf("[catalog] publish employee %d: %v", id, err)
	}
}
