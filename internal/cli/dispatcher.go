package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hetulpatel/employees/internal/catalog"
	"github.com/hetulpatel/employees/internal/directory"
	"github.com/hetulpatel/employees/internal/employee"
	"github.com/hetulpatel/employees/internal/events"
	"github.com/hetulpatel/employees/internal/logging"
)

const (
	msgSchemaReady   = "Таблица создана или уже существует."
	msgAddRequired   = "Для добавления необходимо указать --full_name --birth_date --gender"
	msgBadDate       = "Некорректный формат даты. Используйте ГГГГ-ММ-ДД."
	msgAdded         = "Добавлена запись: %s, %s, %s"
	msgImported      = "Данные из %s успешно добавлены с учетом фильтров."
	msgImportSkipped = "Пропущено ранее импортированных записей: %d."
	msgNoData        = "Нет данных для вставки по заданным фильтрам."
	msgBadLimit      = "Значение --limit не может быть отрицательным."
	msgNoLedger      = "Для --skip_imported необходимо задать REDIS_ADDR."
	msgInvalidMode   = "Некорректный режим. Используйте 1/2/3/4/5."
	msgElapsed       = "Время выполнения: %.2f секунд."
)

// ValidationError is a user input problem. It is printed, never fatal.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Directory is the store surface the dispatcher drives.
type Directory interface {
	CreateSchema(ctx context.Context) error
	Insert(ctx context.Context, e employee.Employee) (int64, error)
	ListAll(ctx context.Context) ([]directory.Record, error)
	ListByFilters(ctx context.Context, f directory.Filters) ([]directory.Record, error)
	Close() error
}

// Options carries every flag; each mode reads only its own.
type Options struct {
	FullName  string
	BirthDate string
	Gender    string

	FilterGender    string
	FilterNameStart string

	Limit    int
	LimitSet bool

	CatalogPath  string
	SkipImported bool
}

// Dispatcher runs one mode against freshly opened resources.
type Dispatcher struct {
	Out       io.Writer
	OpenStore func(ctx context.Context) (Directory, error)
	Ledger    catalog.Ledger
	Events    events.Publisher
	Now       func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Run executes mode and prints its output followed by the elapsed time.
// Validation problems and an unknown mode are reported to Out and yield a
// nil error; storage and catalog failures are returned.
func (d *Dispatcher) Run(ctx context.Context, mode Mode, opts Options) error {
	start := d.now()
	logging.Debugf("[cli] mode=%s", mode)

	err := d.dispatch(ctx, mode, opts)
	var ve *ValidationError
	if errors.As(err, &ve) {
		d.println(ve.Msg)
		err = nil
	}
	if err != nil {
		return err
	}
	d.printf(msgElapsed, d.now().Sub(start).Seconds())
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, mode Mode, opts Options) error {
	switch mode {
	case ModeCreateSchema:
		return d.createSchema(ctx)
	case ModeAdd:
		return d.add(ctx, opts)
	case ModeListAll:
		return d.list(ctx, directory.Filters{})
	case ModeImport:
		return d.importCatalog(ctx, opts)
	case ModeQuery:
		return d.list(ctx, directory.Filters{Gender: opts.FilterGender, NamePrefix: opts.FilterNameStart})
	default:
		d.println(msgInvalidMode)
		return nil
	}
}

func (d *Dispatcher) createSchema(ctx context.Context) error {
	store, err := d.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.CreateSchema(ctx); err != nil {
		return err
	}
	d.println(msgSchemaReady)
	return nil
}

func (d *Dispatcher) add(ctx context.Context, opts Options) error {
	if opts.FullName == "" || opts.BirthDate == "" || opts.Gender == "" {
		return &ValidationError{Msg: msgAddRequired}
	}
	e, err := employee.New(opts.FullName, opts.BirthDate, opts.Gender)
	if err != nil {
		if errors.Is(err, employee.ErrDateFormat) {
			return &ValidationError{Msg: msgBadDate}
		}
		return err
	}

	store, err := d.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Insert(ctx, e)
	if err != nil {
		return err
	}
	d.publishManual(ctx, id, e)
	d.printf(msgAdded, opts.FullName, opts.BirthDate, opts.Gender)
	return nil
}

func (d *Dispatcher) publishManual(ctx context.Context, id int64, e employee.Employee) {
	if d.Events == nil {
		return
	}
	ev := events.EmployeeAdded{
		ID:        id,
		FullName:  e.FullName,
		BirthDate: e.BirthDateString(),
		Gender:    e.Gender,
		Source:    events.SourceManual,
		AddedAt:   d.now().UTC(),
	}
	if err := d.Events.Publish(ctx, ev); err != nil {
		logging.Errorf("[cli] publish employee %d: %v", id, err)
	}
}

func (d *Dispatcher) list(ctx context.Context, f directory.Filters) error {
	store, err := d.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var records []directory.Record
	if f.Empty() {
		records, err = store.ListAll(ctx)
	} else {
		records, err = store.ListByFilters(ctx, f)
	}
	if err != nil {
		return err
	}

	today := d.now()
	for _, r := range records {
		d.println(FormatRecord(r, today))
	}
	return nil
}

// FormatRecord renders one listing line: name | date | gender | age.
func FormatRecord(r directory.Record, asOf time.Time) string {
	return fmt.Sprintf("%s | %s | %s | %d лет", r.FullName, r.BirthDateString(), r.Gender, r.AgeAt(asOf))
}

func (d *Dispatcher) importCatalog(ctx context.Context, opts Options) error {
	limit := catalog.NoLimit
	if opts.LimitSet {
		if opts.Limit < 0 {
			return &ValidationError{Msg: msgBadLimit}
		}
		limit = opts.Limit
	}
	if opts.SkipImported && d.Ledger == nil {
		return &ValidationError{Msg: msgNoLedger}
	}
	path := opts.CatalogPath
	if path == "" {
		path = catalog.DefaultPath
	}

	store := &lazyStore{open: d.OpenStore}
	defer store.Close()

	im := &catalog.Importer{Store: store, Ledger: d.Ledger, Events: d.Events, Now: d.Now}
	res, err := im.BulkImport(ctx, path, catalog.ImportOptions{
		Criteria:     catalog.Criteria{Gender: opts.FilterGender, NamePrefix: opts.FilterNameStart},
		Limit:        limit,
		SkipImported: opts.SkipImported,
	})
	if err != nil {
		return err
	}
	if res.Empty {
		d.println(msgNoData)
		return nil
	}
	if res.Skipped > 0 {
		d.printf(msgImportSkipped, res.Skipped)
	}
	d.printf(msgImported, path)
	return nil
}

// lazyStore defers opening the directory until the first insert, so an
// import with nothing to insert never touches the database.
type lazyStore struct {
	open  func(ctx context.Context) (Directory, error)
	store Directory
}

func (l *lazyStore) Insert(ctx context.Context, e employee.Employee) (int64, error) {
	if l.store == nil {
		s, err := l.open(ctx)
		if err != nil {
			return 0, err
		}
		l.store = s
	}
	return l.store.Insert(ctx, e)
}

func (l *lazyStore) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

func (d *Dispatcher) println(s string) {
	fmt.Fprintln(d.Out, s)
}

func (d *Dispatcher) printf(format string, args ...any) {
	fmt.Fprintf(d.Out, format+"\n", args...)
}
