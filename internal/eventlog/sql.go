// internal/eventlog/sql.go
package eventlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"
)

const (
	sqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS chirps (
		"ID"          INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"RunID"       TEXT NOT NULL,
		"Length"      INTEGER,
		"OffsetSec"   INTEGER,
		"DetectedAt"  INTEGER
	);`
	sqlInsertEventTmpl = `INSERT INTO chirps (
		RunID,
		Length,
		OffsetSec,
		DetectedAt
	) VALUES (?, ?, ?, ?);`
)

// SQL stores events in a SQLite database.
type SQL struct {
	DB *sql.DB
}

func (s *SQL) Write(ctx context.Context, events <-chan Event) error {
	if err := sqlCreateTableIfNotExists(s.DB); err != nil {
		return fmt.Errorf("unable to create table: %w", err)
	}

	for event := range events {
		if err := sqlInsertEvent(s.DB, event); err != nil {
			glog.Warningf("error storing chirp event in sqlite DB: %s", err)
			continue
		}
		glog.V(1).Infof("stored chirp event: %+v", event)
	}

	return nil
}

func sqlCreateTableIfNotExists(db *sql.DB) error {
	statement, err := db.Prepare(sqlCreateTableTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(); err != nil {
		return err
	}

	return nil
}

func sqlInsertEvent(db *sql.DB, e Event) error {
	statement, err := db.Prepare(sqlInsertEventTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(e.RunID, e.Length, int64(e.Offset.Seconds()), e.DetectedAt.UnixMilli()); err != nil {
		return err
	}

	return nil
}
