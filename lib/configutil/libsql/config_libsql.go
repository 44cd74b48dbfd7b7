package configlibsql

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Struct configures either a local sqlite file or a remote libsql
// database. Url wins when both are set.
type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the configured database and applies schema. The schema
// is expected to be idempotent (CREATE TABLE IF NOT EXISTS).
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	if config.Url != "" {
		dsn := config.Url
		if config.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", config.Url, config.AuthToken)
		}
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
		_, err = db.Exec(schema)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}
	_, statErr := os.Stat(config.File)
	if os.IsNotExist(statErr) {
		f, err := os.Create(config.File)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}
