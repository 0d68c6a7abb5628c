/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sqlite.go
Description: SQLite-backed term database. Assertions live in a single table indexed in
both directions, so side lookups stay cheap for large knowledge graphs. Other stores
can be imported in one transaction.
*/

package termdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS assertions (
		relation_type TEXT NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		PRIMARY KEY (relation_type, source, target)
	);
	CREATE INDEX IF NOT EXISTS idx_assertions_target ON assertions(relation_type, target);
`

// SQLiteStore serves assertions from a SQLite database
type SQLiteStore struct {
	conn   *sql.DB
	path   string
	logger logrus.FieldLogger
}

// OpenSQLiteStore opens or creates the database at path
func OpenSQLiteStore(path string, logger logrus.FieldLogger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open term database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize term database schema: %w", err)
	}

	logger.WithField("path", path).Debug("Opened term database")
	return &SQLiteStore{conn: conn, path: path, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Import copies every assertion of src into the database
// Existing assertions are kept; returns the number of new rows
func (s *SQLiteStore) Import(ctx context.Context, src AssertionSource) (int64, error) {
	types, err := src.RelationTypes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list relation types: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO assertions (relation_type, source, target) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, rt := range types {
		assertions, err := src.Assertions(ctx, rt)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s assertions: %w", rt, err)
		}
		for _, assertion := range assertions {
			result, err := stmt.ExecContext(ctx, string(rt), string(assertion.Source), string(assertion.Target))
			if err != nil {
				return 0, fmt.Errorf("failed to insert %s assertion: %w", rt, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return 0, err
			}
			inserted += n
		}
		s.logger.WithFields(logrus.Fields{"relation_type": rt, "assertions": len(assertions)}).Debug("Imported relation")
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return inserted, nil
}

// RelationTypes returns the stored relation types in sorted order
func (s *SQLiteStore) RelationTypes(ctx context.Context) ([]core.RelationType, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT DISTINCT relation_type FROM assertions ORDER BY relation_type")
	if err != nil {
		return nil, fmt.Errorf("failed to list relation types: %w", err)
	}
	defer rows.Close()

	var types []core.RelationType
	for rows.Next() {
		var rt string
		if err := rows.Scan(&rt); err != nil {
			return nil, err
		}
		types = append(types, core.RelationType(rt))
	}
	return types, rows.Err()
}

// Assertions returns every assertion of rt
func (s *SQLiteStore) Assertions(ctx context.Context, rt core.RelationType) ([]Assertion, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT source, target FROM assertions WHERE relation_type = ? ORDER BY source, target", string(rt))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s assertions: %w", rt, err)
	}
	defer rows.Close()

	var assertions []Assertion
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, err
		}
		assertions = append(assertions, Assertion{Source: core.Term(source), Target: core.Term(target)})
	}
	return assertions, rows.Err()
}

// Terms looks up one side of the assertions of rt
func (s *SQLiteStore) Terms(ctx context.Context, rt core.RelationType, side Side, partner core.Term) (core.TermSet, error) {
	// Column names come from Side.String, never from input
	query := fmt.Sprintf("SELECT DISTINCT %s FROM assertions WHERE relation_type = ?", side)
	args := []any{string(rt)}
	if partner != "" {
		query += fmt.Sprintf(" AND %s = ?", side.Opposite())
		args = append(args, string(partner))
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s terms: %w", rt, err)
	}
	defer rows.Close()

	result := core.TermSet{}
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		result[core.Term(term)] = struct{}{}
	}
	return result, rows.Err()
}
