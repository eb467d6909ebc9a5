// internal/eventlog/mysql.go
package eventlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"
)

const (
	mysqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS chirps (
		ID          INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
		RunID       VARCHAR(64) NOT NULL,
		Length      INTEGER,
		OffsetSec   INTEGER,
		DetectedAt  BIGINT
	);`
	mysqlInsertEventTmpl = `INSERT INTO chirps (
		RunID,
		Length,
		OffsetSec,
		DetectedAt
	) VALUES (?, ?, ?, ?);`
)

// MySQL stores events in a MySQL database.
type MySQL struct {
	DB *sql.DB
}

func (m *MySQL) Write(ctx context.Context, events <-chan Event) error {
	if err := mysqlCreateTableIfNotExists(m.DB); err != nil {
		return fmt.Errorf("unable to create table: %w", err)
	}

	for event := range events {
		if err := mysqlInsertEvent(m.DB, event); err != nil {
			glog.Warningf("error storing chirp event in mysql DB: %s", err)
			continue
		}
		glog.V(1).Infof("stored chirp event: %+v", event)
	}

	return nil
}

func mysqlCreateTableIfNotExists(db *sql.DB) error {
	statement, err := db.Prepare(mysqlCreateTableTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(); err != nil {
		return err
	}

	return nil
}

func mysqlInsertEvent(db *sql.DB, e Event) error {
	statement, err := db.Prepare(mysqlInsertEventTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(e.RunID, e.Length, int64(e.Offset.Seconds()), e.DetectedAt.UnixMilli()); err != nil {
		return err
	}

	return nil
}
