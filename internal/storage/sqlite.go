package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var errEmptyPath = errors.New("empty path")

// sqliteDriver backs sqlite://<path> with one documents table holding JSON
// bodies keyed by collection and _id.
type sqliteDriver struct {
	path string
	db   *sql.DB
}

func newSQLiteDriver(connectionString string) (driver, error) {
	path := strings.TrimPrefix(connectionString, "sqlite://")
	if path == "" {
		return nil, errEmptyPath
	}
	return &sqliteDriver{path: path}, nil
}

func (d *sqliteDriver) connect(ctx context.Context) error {
	if dir := filepath.Dir(d.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", d.path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);`

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return fmt.Errorf("preparing database: %w", err)
		}
	}

	d.db = db
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// first scans collection in insertion order for the first match.
func first(ctx context.Context, q queryer, collection string, query Document) (string, Document, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, body FROM documents WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return "", nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return "", nil, err
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return "", nil, fmt.Errorf("decoding %s/%s: %w", collection, id, err)
		}
		if matches(doc, query) {
			return id, doc, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", nil, err
	}
	return "", nil, ErrNotFound
}

func (d *sqliteDriver) findOne(ctx context.Context, collection string, query Document) (Document, error) {
	_, doc, err := first(ctx, d.db, collection, query)
	return doc, err
}

func insertDoc(ctx context.Context, tx *sql.Tx, collection string, doc Document) error {
	doc = withID(doc)
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
		collection, fmt.Sprint(doc[idField]), string(body))
	return err
}

func (d *sqliteDriver) insertOne(ctx context.Context, collection string, doc Document) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		return insertDoc(ctx, tx, collection, doc)
	})
}

func (d *sqliteDriver) updateOne(ctx context.Context, collection string, query, update Document) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		id, doc, err := first(ctx, tx, collection, query)
		if errors.Is(err, ErrNotFound) {
			seed, err := applyUpdate(upsertBase(query), update)
			if err != nil {
				return err
			}
			return insertDoc(ctx, tx, collection, seed)
		}
		if err != nil {
			return err
		}

		next, err := applyUpdate(doc, update)
		if err != nil {
			return err
		}
		body, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE documents SET body = ? WHERE collection = ? AND id = ?`, string(body), collection, id)
		return err
	})
}

func (d *sqliteDriver) deleteOne(ctx context.Context, collection string, query Document) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		id, _, err := first(ctx, tx, collection, query)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
		return err
	})
}

func (d *sqliteDriver) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (d *sqliteDriver) close(context.Context) error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}
