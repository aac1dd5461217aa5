package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// SQLLog appends events to the event_log table.
type SQLLog struct {
	db     *sql.DB
	siteID string
}

func NewSQLLog(db *sql.DB, siteID string) *SQLLog {
	if siteID == "" {
		siteID = "local"
	}
	return &SQLLog{db: db, siteID: siteID}
}

func (r *SQLLog) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return errors.Wrap(err, "encode event data")
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, id, typ, key, quiz_id, user_id, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.siteID, e.ID, e.Type, e.Key, e.QuizID, e.UserID, string(data), e.CreatedAt.UnixMilli())
	return errors.Wrapf(err, "append event %s", e.Type)
}

// Since returns events with a sequence number greater than after, oldest
// first, along with the last sequence number seen. CreatedAt comes back with
// millisecond precision.
func (r *SQLLog) Since(ctx context.Context, after int64, limit int) ([]Event, int64, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, id, typ, key, quiz_id, user_id, data, created_at FROM event_log WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, after, errors.Wrap(err, "read event log")
	}
	defer rows.Close()
	var out []Event
	last := after
	for rows.Next() {
		var (
			e       Event
			seq     int64
			data    string
			created int64
		)
		if err := rows.Scan(&seq, &e.ID, &e.Type, &e.Key, &e.QuizID, &e.UserID, &data, &created); err != nil {
			return nil, after, errors.Wrap(err, "scan event")
		}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, after, errors.Wrapf(err, "decode event %d", seq)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		last = seq
		out = append(out, e)
	}
	return out, last, errors.Wrap(rows.Err(), "read event log")
}

func (r *SQLLog) Close() error { return nil }
