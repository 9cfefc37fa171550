package migrations

import (
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Run creates the record store schema. Every entity lives in one
// namespaced key-value table; rowid preserves insertion order for scans.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS records (
            namespace TEXT NOT NULL,
            key TEXT NOT NULL,
            record BLOB NOT NULL,
            PRIMARY KEY (namespace, key)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_records_namespace ON records(namespace);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			logrus.Fatalf("migration failed: %v", err)
		}
	}
}
