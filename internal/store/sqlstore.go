package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"pharmtrack/m/domain"
)

// SQLStore keeps records in a single SQLite table keyed by (namespace, key).
// Insertion order is the rowid order, which ScanPrefix relies on.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var record []byte
	err := s.db.GetContext(ctx, &record,
		`SELECT record FROM records WHERE namespace = ? AND key = ?`, namespace, key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &domain.StorageError{Op: "get", Err: errors.Wrapf(err, "get %s/%s", namespace, key)}
	}
	return record, true, nil
}

func (s *SQLStore) Put(ctx context.Context, namespace, key string, record []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (namespace, key, record) VALUES (?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET record = excluded.record`,
		namespace, key, record)
	if err != nil {
		return &domain.StorageError{Op: "put", Err: errors.Wrapf(err, "put %s/%s", namespace, key)}
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, namespace, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return false, &domain.StorageError{Op: "delete", Err: errors.Wrapf(err, "delete %s/%s", namespace, key)}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, &domain.StorageError{Op: "delete", Err: errors.Wrap(err, "rows affected")}
	}
	return n > 0, nil
}

func (s *SQLStore) ScanPrefix(ctx context.Context, namespacePrefix string) ([]Entry, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT namespace, key, record FROM records WHERE namespace LIKE ? ESCAPE '\' ORDER BY rowid`,
		likePrefix(namespacePrefix))
	if err != nil {
		return nil, &domain.StorageError{Op: "scan", Err: errors.Wrapf(err, "scan %s", namespacePrefix)}
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Namespace, &e.Key, &e.Record); err != nil {
			return nil, &domain.StorageError{Op: "scan", Err: errors.Wrap(err, "scan row")}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "scan", Err: errors.Wrap(err, "scan rows")}
	}
	return entries, nil
}

// likePrefix escapes LIKE metacharacters so a namespace prefix matches
// literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
