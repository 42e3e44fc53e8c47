// Package store persists compiled programs and executed witnesses to
// a SQL backend, grounded on the teacher's database.DatabaseModule /
// DBManager (internal/database/database.go, db_manager.go): the same
// dialect-switch-over-DSN connection idiom and sync.RWMutex-guarded
// connection map, retargeted from security-scan result storage to
// circuit bytecode and witness-run persistence.
package store

import (
	"bytes"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
	"github.com/pkg/errors"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/sentra-lang/zincvm/internal/bytecode"
)

// Dialect names one of the five SQL backends this store can persist
// to, matching the drivers the teacher's database module registers
// plus a cgo-free SQLite alternative for builds that can't use cgo.
type Dialect string

const (
	SQLite     Dialect = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	SQLitePure Dialect = "sqlite"  // modernc.org/sqlite, pure Go
	Postgres   Dialect = "postgres"
	MySQL      Dialect = "mysql"
	SQLServer  Dialect = "sqlserver"
)

// Store owns one open *sql.DB and the schema this package needs on
// top of it.
type Store struct {
	mu       sync.RWMutex
	db       *sql.DB
	dialect  Dialect
}

// Open connects to dsn using dialect and ensures the programs/runs
// tables exist. One Store per process connection, the same one-
// connection-per-handle shape as the teacher's DBConnection.
func Open(dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "store: open %s", dialect)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "store: ping %s", dialect)
	}
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// rebind translates this store's `?`-placeholder queries into the
// dialect's native bind syntax: lib/pq only accepts `$1`-style
// positional parameters, unlike the other four dialects' native `?`.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b []byte
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b = append(b, []byte(fmt.Sprintf("$%d", n))...)
			continue
		}
		b = append(b, query[i])
	}
	return string(b)
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		bytecode BLOB NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return errors.Wrap(err, "store: migrate programs")
	}
	_, err = s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		program_id TEXT NOT NULL,
		outputs TEXT NOT NULL,
		satisfied INTEGER NOT NULL,
		num_constraints INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return errors.Wrap(err, "store: migrate runs")
	}
	return nil
}

// SaveProgram encodes prog (internal/bytecode.Encode) and inserts it
// under name, returning a generated record ID.
func (s *Store) SaveProgram(name string, prog *bytecode.Program) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := bytecode.Encode(&buf, prog); err != nil {
		return "", errors.Wrap(err, "store: encode program")
	}

	id := uuid.NewString()
	now := strftime.Format("%Y-%m-%d %H:%M:%S", time.Now())
	_, err := s.db.Exec(
		s.rebind(`INSERT INTO programs (id, name, bytecode, created_at) VALUES (?, ?, ?, ?)`),
		id, name, buf.Bytes(), now,
	)
	if err != nil {
		return "", errors.Wrap(err, "store: insert program")
	}
	return id, nil
}

// LoadProgram decodes the program stored under id.
func (s *Store) LoadProgram(id string) (*bytecode.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw []byte
	row := s.db.QueryRow(s.rebind(`SELECT bytecode FROM programs WHERE id = ?`), id)
	if err := row.Scan(&raw); err != nil {
		return nil, errors.Wrapf(err, "store: load program %s", id)
	}
	return bytecode.Decode(bytes.NewReader(raw))
}

// RunRecord is one persisted execution outcome (spec section 4.H's
// Result, plus satisfiability and constraint-count metadata useful
// for an operator dashboard).
type RunRecord struct {
	ID             string
	ProgramID      string
	Outputs        []string // decimal field element strings
	Satisfied      bool
	NumConstraints int
	CreatedAt      string
}

// SaveRun records one executed witness's outputs against programID.
func (s *Store) SaveRun(programID string, outputs []string, satisfied bool, numConstraints int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := strftime.Format("%Y-%m-%d %H:%M:%S", time.Now())
	joined := joinOutputs(outputs)
	sat := 0
	if satisfied {
		sat = 1
	}
	_, err := s.db.Exec(
		s.rebind(`INSERT INTO runs (id, program_id, outputs, satisfied, num_constraints, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		id, programID, joined, sat, numConstraints, now,
	)
	if err != nil {
		return "", errors.Wrap(err, "store: insert run")
	}
	return id, nil
}

// ListRuns returns every run recorded against programID, most recent
// first.
func (s *Store) ListRuns(programID string) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		s.rebind(`SELECT id, program_id, outputs, satisfied, num_constraints, created_at
		 FROM runs WHERE program_id = ? ORDER BY created_at DESC`), programID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var outputs string
		var sat int
		if err := rows.Scan(&r.ID, &r.ProgramID, &outputs, &sat, &r.NumConstraints, &r.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "store: scan run")
		}
		r.Satisfied = sat != 0
		r.Outputs = splitOutputs(outputs)
		out = append(out, r)
	}
	return out, rows.Err()
}

func joinOutputs(outputs []string) string {
	s := ""
	for i, o := range outputs {
		if i > 0 {
			s += ","
		}
		s += o
	}
	return s
}

func splitOutputs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return out
}

