package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultPath is where the catalog lives unless configured otherwise. It
// holds JSON despite the extension.
const DefaultPath = "catalog.txt"

// ErrCatalogRead matches every *ReadError via errors.Is.
var ErrCatalogRead = errors.New("catalog read failed")

// ReadError reports a missing or malformed catalog file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read catalog %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrCatalogRead }

// Entry is one candidate employee as written in the catalog.
type Entry struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
}

// LoadAll reads the whole catalog into memory.
func LoadAll(path string) ([]Entry, error) {
	if path == "" {
		path = DefaultPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &ReadError{Path: path, Err: fmt.Errorf("decode json: %w", err)}
	}
	return entries, nil
}

// Criteria select catalog entries. Empty fields match everything.
type Criteria struct {
	// Gender is compared case-insensitively.
	Gender string
	// NamePrefix must prefix the first word of the full name, case-sensitively.
	NamePrefix string
}

// Filter keeps entries matching c, preserving file order.
func Filter(entries []Entry, c Criteria) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if c.Gender != "" && !strings.EqualFold(e.Gender, c.Gender) {
			continue
		}
		if c.NamePrefix != "" && !strings.HasPrefix(firstWord(e.FullName), c.NamePrefix) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
