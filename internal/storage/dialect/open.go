package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/gocraft/dbr/v2"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var sqlitePragmas = []string{"busy_timeout(5000)", "journal_mode(WAL)"}

const (
	mysqlNoSuchTable = 1146    // ER_NO_SUCH_TABLE
	pqUndefinedTable = "42P01" // undefined_table
)

// NormalizeDSN validates a DSN for the dialect and fills in the options the
// engine relies on.
func (d *Dialect) NormalizeDSN(dsn string) (string, error) {
	switch d.Name {
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("mysql dsn: %w", err)
		}
		return cfg.FormatDSN(), nil
	case Postgres:
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			conn, err := pq.ParseURL(dsn)
			if err != nil {
				return "", fmt.Errorf("postgres dsn: %w", err)
			}
			return conn, nil
		}
		return dsn, nil
	case SQLite:
		if dsn == "" {
			return "", fmt.Errorf("sqlite dsn: empty path")
		}
		if strings.Contains(dsn, "_pragma=") {
			return dsn, nil
		}
		q := url.Values{}
		for _, p := range sqlitePragmas {
			q.Add("_pragma", p)
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + q.Encode(), nil
	}
	return dsn, nil
}

// Open opens a pooled connection for the dialect. recv may be nil.
func Open(name, dsn string, recv dbr.EventReceiver) (*dbr.Connection, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	normalized, err := d.NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver, normalized)
	if err != nil {
		return nil, err
	}
	if recv == nil {
		recv = &dbr.NullEventReceiver{}
	}
	return &dbr.Connection{DB: db, Dialect: d.dbr, EventReceiver: recv}, nil
}

// MissingRelation reports whether err is the store saying a table does not
// exist, as opposed to a connectivity or permission failure.
func (d *Dialect) MissingRelation(err error) bool {
	if err == nil {
		return false
	}
	switch d.Name {
	case MySQL:
		var myErr *mysql.MySQLError
		return errors.As(err, &myErr) && myErr.Number == mysqlNoSuchTable
	case Postgres:
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable
	case SQLite:
		return strings.Contains(err.Error(), "no such table")
	}
	return false
}
