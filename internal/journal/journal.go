// Package journal 将发出的请求写入本地 SQLite，便于事后审计。
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var journalLog = logrus.WithField("component", "journal")

// Entry 一条请求记录
type Entry struct {
	RequestID int64
	ConnID    int
	SessionID string
	Method    string
	Params    map[string]interface{} // 已脱敏
	SentAt    time.Time
	OK        bool
	Error     string
}

// Journal SQLite 请求日志
type Journal struct {
	db *sql.DB
}

// Open 打开（或创建）数据库；path 可以是 ":memory:"
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "mkdir journal dir")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	journalLog.Infof("请求日志已打开: %s", path)
	return j, nil
}

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS requests (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  request_id INTEGER NOT NULL,
  conn_id INTEGER NOT NULL,
  session_id TEXT NOT NULL,
  method TEXT NOT NULL,
  params TEXT NOT NULL,
  sent_at TEXT NOT NULL,
  ok INTEGER NOT NULL,
  error TEXT
);`,
		`CREATE INDEX IF NOT EXISTS idx_requests_request_id ON requests(request_id);`,
	}
	for _, q := range stmts {
		if _, err := j.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "migrate exec failed")
		}
	}
	return nil
}

// Record 写入一条记录
func (j *Journal) Record(ctx context.Context, e Entry) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return errors.Wrap(err, "marshal params")
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err = j.db.ExecContext(ctx, `
INSERT INTO requests (request_id, conn_id, session_id, method, params, sent_at, ok, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		e.RequestID, e.ConnID, e.SessionID, e.Method, string(params),
		e.SentAt.UTC().Format(time.RFC3339Nano), ok, nullString(e.Error))
	if err != nil {
		return errors.Wrap(err, "insert request")
	}
	return nil
}

// Recent 最近 n 条记录，按写入顺序倒序
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT request_id, conn_id, session_id, method, params, sent_at, ok, error
FROM requests ORDER BY seq DESC LIMIT ?;`, n)
	if err != nil {
		return nil, errors.Wrap(err, "query requests")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			params string
			sentAt string
			ok     int
			errStr sql.NullString
		)
		if err := rows.Scan(&e.RequestID, &e.ConnID, &e.SessionID, &e.Method, &params, &sentAt, &ok, &errStr); err != nil {
			return nil, errors.Wrap(err, "scan request")
		}
		if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
			return nil, errors.Wrap(err, "unmarshal params")
		}
		e.SentAt, _ = time.Parse(time.RFC3339Nano, sentAt)
		e.OK = ok == 1
		e.Error = errStr.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
