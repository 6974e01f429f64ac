package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/employees/internal/cache"
	"github.com/hetulpatel/employees/internal/catalog"
	"github.com/hetulpatel/employees/internal/directory"
	"github.com/hetulpatel/employees/internal/employee"
	"github.com/hetulpatel/employees/internal/events"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeDirectory struct {
	records     []directory.Record
	lastFilters directory.Filters
	calls       []string
	closed      int
	err         error
}

func (f *fakeDirectory) CreateSchema(context.Context) error {
	f.calls = append(f.calls, "create")
	return f.err
}

func (f *fakeDirectory) Insert(_ context.Context, e employee.Employee) (int64, error) {
	f.calls = append(f.calls, "insert")
	if f.err != nil {
		return 0, f.err
	}
	f.records = append(f.records, directory.Record{ID: int64(len(f.records) + 1), Employee: e})
	return int64(len(f.records)), nil
}

func (f *fakeDirectory) ListAll(context.Context) ([]directory.Record, error) {
	f.calls = append(f.calls, "list-all")
	return f.records, f.err
}

func (f *fakeDirectory) ListByFilters(_ context.Context, fl directory.Filters) ([]directory.Record, error) {
	f.calls = append(f.calls, "list-filtered")
	f.lastFilters = fl
	return f.records, f.err
}

func (f *fakeDirectory) Close() error {
	f.closed++
	return nil
}

type harness struct {
	out    bytes.Buffer
	dir    *fakeDirectory
	opened int
	d      *Dispatcher
}

func newHarness() *harness {
	h := &harness{dir: &fakeDirectory{}}
	h.d = &Dispatcher{
		Out: &h.out,
		OpenStore: func(context.Context) (Directory, error) {
			h.opened++
			return h.dir, nil
		},
		Now: func() time.Time { return fixedNow },
	}
	return h
}

func record(t *testing.T, id int64, name, birth, gender string) directory.Record {
	t.Helper()
	e, err := employee.New(name, birth, gender)
	require.NoError(t, err)
	return directory.Record{ID: id, Employee: e}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeCreateSchema, ParseMode("1"))
	assert.Equal(t, ModeAdd, ParseMode("2"))
	assert.Equal(t, ModeListAll, ParseMode("3"))
	assert.Equal(t, ModeImport, ParseMode("4"))
	assert.Equal(t, ModeQuery, ParseMode("5"))
	for _, s := range []string{"6", "0", "01", " 1", "one", "", "-1"} {
		assert.Equal(t, ModeInvalid, ParseMode(s), s)
	}
	assert.Equal(t, "invalid", ModeInvalid.String())
}

func TestInvalidModeTouchesNothing(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.d.Run(context.Background(), ParseMode("6"), Options{}))
	assert.Equal(t, 0, h.opened)
	assert.Contains(t, h.out.String(), msgInvalidMode)
	assert.Contains(t, h.out.String(), "Время выполнения: 0.00 секунд.")
}

func TestCreateSchema(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.d.Run(context.Background(), ModeCreateSchema, Options{}))
	assert.Equal(t, []string{"create"}, h.dir.calls)
	assert.Equal(t, 1, h.dir.closed)
	assert.True(t, strings.HasPrefix(h.out.String(), msgSchemaReady+"\n"))
}

func TestAddValidation(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want string
	}{
		{"missing gender", Options{FullName: "Jane Doe", BirthDate: "2000-01-01"}, msgAddRequired},
		{"missing name", Options{BirthDate: "2000-01-01", Gender: "F"}, msgAddRequired},
		{"bad date", Options{FullName: "Jane Doe", BirthDate: "2020-13-40", Gender: "F"}, msgBadDate},
		{"not a date", Options{FullName: "Jane Doe", BirthDate: "not-a-date", Gender: "F"}, msgBadDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			require.NoError(t, h.d.Run(context.Background(), ModeAdd, tc.opts))
			assert.Contains(t, h.out.String(), tc.want)
			assert.Equal(t, 0, h.opened)
		})
	}
}

type recordingPublisher struct {
	events []events.EmployeeAdded
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.EmployeeAdded) error {
	p.events = append(p.events, evs...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestAddInsertsAndPublishes(t *testing.T) {
	h := newHarness()
	pub := &recordingPublisher{err: errors.New("broker down")}
	h.d.Events = pub

	err := h.d.Run(context.Background(), ModeAdd, Options{FullName: "Jane Doe", BirthDate: "2000-01-01", Gender: "F"})
	require.NoError(t, err)
	assert.Equal(t, []string{"insert"}, h.dir.calls)
	assert.Equal(t, 1, h.dir.closed)
	assert.Contains(t, h.out.String(), "Добавлена запись: Jane Doe, 2000-01-01, F")

	require.Len(t, pub.events, 1)
	assert.Equal(t, events.SourceManual, pub.events[0].Source)
	assert.Equal(t, int64(1), pub.events[0].ID)
	assert.Equal(t, fixedNow, pub.events[0].AddedAt)
}

func TestStorageErrorsPropagate(t *testing.T) {
	h := newHarness()
	h.dir.err = &directory.StorageError{Op: "list", Err: errors.New("connection refused")}

	err := h.d.Run(context.Background(), ModeListAll, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, directory.ErrStorage))
	assert.Equal(t, 1, h.dir.closed)
	assert.NotContains(t, h.out.String(), "Время выполнения")
}

func TestOpenErrorPropagates(t *testing.T) {
	h := newHarness()
	h.d.OpenStore = func(context.Context) (Directory, error) {
		return nil, &directory.StorageError{Op: "open", Err: errors.New("no route")}
	}

	err := h.d.Run(context.Background(), ModeCreateSchema, Options{})
	assert.True(t, errors.Is(err, directory.ErrStorage))
}

func TestListRendersAge(t *testing.T) {
	h := newHarness()
	h.dir.records = []directory.Record{
		record(t, 1, "Anna Ivanova", "2000-06-16", "F"),
		record(t, 2, "Jane Doe", "2000-06-15", "F"),
	}

	require.NoError(t, h.d.Run(context.Background(), ModeListAll, Options{}))
	lines := strings.Split(strings.TrimSpace(h.out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Anna Ivanova | 2000-06-16 | F | 23 лет", lines[0])
	assert.Equal(t, "Jane Doe | 2000-06-15 | F | 24 лет", lines[1])
	assert.Equal(t, "Время выполнения: 0.00 секунд.", lines[2])
}

func TestQueryPassesFilters(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.d.Run(context.Background(), ModeQuery, Options{FilterGender: "F", FilterNameStart: "An", Gender: "ignored"}))
	assert.Equal(t, []string{"list-filtered"}, h.dir.calls)
	assert.Equal(t, directory.Filters{Gender: "F", NamePrefix: "An"}, h.dir.lastFilters)

	h = newHarness()
	require.NoError(t, h.d.Run(context.Background(), ModeQuery, Options{}))
	assert.Equal(t, []string{"list-all"}, h.dir.calls)
}

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const catalogJSON = `[
	{"full_name": "Anna Ivanova", "birth_date": "1985-07-20", "gender": "F"},
	{"full_name": "Boris Petrov", "birth_date": "1979-11-02", "gender": "M"},
	{"full_name": "Andrey Kuznetsov", "birth_date": "1995-05-05", "gender": "M"}
]`

func TestImportNoDataOpensNothing(t *testing.T) {
	h := newHarness()
	path := writeCatalog(t, catalogJSON)

	require.NoError(t, h.d.Run(context.Background(), ModeImport, Options{CatalogPath: path, FilterNameStart: "Zed"}))
	assert.Equal(t, 0, h.opened)
	assert.Contains(t, h.out.String(), msgNoData)
	assert.NotContains(t, h.out.String(), "успешно")
}

func TestImportWithLimit(t *testing.T) {
	h := newHarness()
	path := writeCatalog(t, catalogJSON)

	require.NoError(t, h.d.Run(context.Background(), ModeImport, Options{CatalogPath: path, FilterGender: "m", Limit: 1, LimitSet: true}))
	require.Len(t, h.dir.records, 1)
	assert.Equal(t, "Boris Petrov", h.dir.records[0].FullName)
	assert.Equal(t, 1, h.opened)
	assert.Equal(t, 1, h.dir.closed)
	assert.Contains(t, h.out.String(), fmt.Sprintf(msgImported, path))
}

func TestImportValidation(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.d.Run(context.Background(), ModeImport, Options{Limit: -3, LimitSet: true}))
	assert.Contains(t, h.out.String(), msgBadLimit)

	h = newHarness()
	require.NoError(t, h.d.Run(context.Background(), ModeImport, Options{SkipImported: true}))
	assert.Contains(t, h.out.String(), msgNoLedger)
	assert.Equal(t, 0, h.opened)
}

func TestImportSkipsLedgerEntries(t *testing.T) {
	h := newHarness()
	path := writeCatalog(t, catalogJSON)
	ledger := cache.NewMemoryImportLedger(catalog.Entry{FullName: "Anna Ivanova", BirthDate: "1985-07-20", Gender: "F"}.Key())
	h.d.Ledger = ledger

	require.NoError(t, h.d.Run(context.Background(), ModeImport, Options{CatalogPath: path, SkipImported: true}))
	assert.Len(t, h.dir.records, 2)
	assert.Contains(t, h.out.String(), fmt.Sprintf(msgImportSkipped, 1))
	assert.Equal(t, 3, ledger.Len())
}

func TestImportMissingCatalogFails(t *testing.T) {
	h := newHarness()

	err := h.d.Run(context.Background(), ModeImport, Options{CatalogPath: filepath.Join(t.TempDir(), "none.txt")})
	assert.True(t, errors.Is(err, catalog.ErrCatalogRead))
	assert.Equal(t, 0, h.opened)
}

func TestEndToEndWithSQLite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "employees.db")
	var out bytes.Buffer
	d := &Dispatcher{
		Out: &out,
		OpenStore: func(ctx context.Context) (Directory, error) {
			s, err := directory.OpenSQLite(ctx, dbPath)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}

	require.NoError(t, d.Run(ctx, ModeCreateSchema, Options{}))
	require.NoError(t, d.Run(ctx, ModeCreateSchema, Options{}))
	require.NoError(t, d.Run(ctx, ModeAdd, Options{FullName: "Jane Doe", BirthDate: "2000-01-01", Gender: "F"}))
	require.NoError(t, d.Run(ctx, ModeAdd, Options{FullName: "Adam Smith", BirthDate: "1990-05-05", Gender: "M"}))

	out.Reset()
	require.NoError(t, d.Run(ctx, ModeListAll, Options{}))
	now := time.Now()
	bd, _ := employee.ParseBirthDate("2000-01-01")
	assert.Contains(t, out.String(), fmt.Sprintf("Jane Doe | 2000-01-01 | F | %d лет", employee.Age(bd, now)))
	assert.Less(t, strings.Index(out.String(), "Adam Smith"), strings.Index(out.String(), "Jane Doe"))

	out.Reset()
	require.NoError(t, d.Run(ctx, ModeQuery, Options{FilterGender: "M"}))
	assert.Contains(t, out.String(), "Adam Smith | 1990-05-05 | M |")
	assert.NotContains(t, out.String(), "Jane Doe")
}
