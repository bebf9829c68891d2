// Package datarecording stores simulation records in SQLite databases.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "github.com/glebarez/go-sqlite"

	// CGo SQLite driver, registered as "sqlite3".
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Drivers that can back a recorder.
const (
	DriverCGo  = "sqlite3"
	DriverPure = "sqlite"
)

// ErrInvalidEntry is returned when an entry type cannot be stored as a row.
var ErrInvalidEntry = errors.New("entry is invalid")

// DataRecorder writes rows of flat structs into tables.
type DataRecorder interface {
	// CreateTable creates a table with one column per field of the sample
	// entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// New creates a recorder that writes into path.sqlite3 with the CGo driver.
// An empty path picks a unique name.
func New(path string) DataRecorder {
	return NewWithDriver(path, DriverCGo)
}

// NewWithDriver creates a recorder that writes into path.sqlite3 with the
// given SQL driver. It panics if the file already exists.
func NewWithDriver(path, driver string) DataRecorder {
	if path == "" {
		path = "axidma_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open(driver, filename)
	if err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "Recording into %s\n", filename)

	r := &sqliteRecorder{
		db:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(r.Flush)

	return r
}

type table struct {
	typ    reflect.Type
	insert string
	rows   []any
}

type sqliteRecorder struct {
	db        *sql.DB
	tables    map[string]*table
	batchSize int
	pending   int
	closed    bool
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnType(kind reflect.Kind) (string, bool) {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.String:
		return "TEXT", true
	default:
		return "", false
	}
}

// columns returns the quoted column definitions and names of an entry type.
// Every field must be exported and of a scalar kind.
func columns(entry any) (defs, names []string, err error) {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("%w: %T is not a struct",
			ErrInvalidEntry, entry)
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			return nil, nil, fmt.Errorf("%w: field %s is not exported",
				ErrInvalidEntry, f.Name)
		}

		typ, ok := columnType(f.Type.Kind())
		if !ok {
			return nil, nil, fmt.Errorf("%w: field %s has kind %s",
				ErrInvalidEntry, f.Name, f.Type.Kind())
		}

		defs = append(defs, quote(f.Name)+" "+typ)
	}

	for _, n := range structs.Names(entry) {
		names = append(names, quote(n))
	}

	return defs, names, nil
}

func (r *sqliteRecorder) CreateTable(tableName string, sampleEntry any) {
	defs, names, err := columns(sampleEntry)
	if err != nil {
		panic(err)
	}

	if _, exists := r.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	r.mustExec(fmt.Sprintf("CREATE TABLE %s (%s)",
		quote(tableName), strings.Join(defs, ", ")))

	r.tables[tableName] = &table{
		typ: reflect.TypeOf(sampleEntry),
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quote(tableName), strings.Join(names, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")),
	}
}

func (r *sqliteRecorder) InsertData(tableName string, entry any) {
	t, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.typ {
		panic(fmt.Sprintf("table %s expects %s, got %T",
			tableName, t.typ, entry))
	}

	t.rows = append(t.rows, entry)

	r.pending++
	if r.pending >= r.batchSize {
		r.Flush()
	}
}

// Flush writes the buffered rows of every table in one transaction.
func (r *sqliteRecorder) Flush() {
	if r.pending == 0 || r.closed {
		return
	}

	tx, err := r.db.Begin()
	if err != nil {
		panic(err)
	}

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if err := r.flushTable(tx, r.tables[name]); err != nil {
			_ = tx.Rollback()
			panic(fmt.Errorf("flush %s: %w", name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	r.pending = 0
}

func (r *sqliteRecorder) flushTable(tx *sql.Tx, t *table) error {
	if len(t.rows) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(t.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range t.rows {
		if _, err := stmt.Exec(structs.Values(row)...); err != nil {
			return err
		}
	}

	t.rows = nil

	return nil
}

func (r *sqliteRecorder) Close() error {
	if r.closed {
		return nil
	}

	r.Flush()
	r.closed = true

	return r.db.Close()
}

func (r *sqliteRecorder) mustExec(query string) {
	if _, err := r.db.Exec(query); err != nil {
		panic(fmt.Errorf("%s: %w", query, err))
	}
}
