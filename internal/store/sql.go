package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-quiz/internal/attempt"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutQuiz(ctx context.Context, q *quiz.Quiz) error {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return errors.Wrap(err, "encode questions")
	}
	sj, err := json.Marshal(q.Settings)
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,title,description,published,settings_json,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
			published=EXCLUDED.published, settings_json=EXCLUDED.settings_json, questions_json=EXCLUDED.questions_json`,
		q.ID, q.Title, q.Description, q.Published, string(sj), string(qj), q.CreatedAt)
	return errors.Wrapf(err, "put quiz %s", q.ID)
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (*quiz.Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,description,published,settings_json,questions_json,created_at
		FROM quizzes WHERE id=$1`, id)
	var q quiz.Quiz
	var sjson, qjson string
	if err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Published, &sjson, &qjson, &q.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "quiz %s", id)
		}
		return nil, errors.Wrapf(err, "get quiz %s", id)
	}
	if err := json.Unmarshal([]byte(sjson), &q.Settings); err != nil {
		return nil, errors.Wrapf(err, "decode settings of quiz %s", id)
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return nil, errors.Wrapf(err, "decode questions of quiz %s", id)
	}
	return &q, nil
}

func (s *SQLStore) ListQuizzes(ctx context.Context, publishedOnly bool) ([]QuizSummary, error) {
	query := `SELECT id,title,published,questions_json,created_at FROM quizzes`
	var args []any
	if publishedOnly {
		query += ` WHERE published=$1`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list quizzes")
	}
	defer rows.Close()

	var out []QuizSummary
	for rows.Next() {
		var qs QuizSummary
		var qjson string
		if err := rows.Scan(&qs.ID, &qs.Title, &qs.Published, &qjson, &qs.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan quiz")
		}
		var recs []json.RawMessage
		if err := json.Unmarshal([]byte(qjson), &recs); err == nil {
			qs.Questions = len(recs)
		}
		out = append(out, qs)
	}
	return out, errors.Wrap(rows.Err(), "list quizzes")
}

func (s *SQLStore) PutAttempt(ctx context.Context, a attempt.Attempt) error {
	aj, err := json.Marshal(a.Answers)
	if err != nil {
		return errors.Wrap(err, "encode answers")
	}
	var score sql.NullInt64
	if a.Score != nil {
		score = sql.NullInt64{Int64: int64(*a.Score), Valid: true}
	}
	var passed sql.NullBool
	if a.Passed != nil {
		passed = sql.NullBool{Bool: *a.Passed, Valid: true}
	}
	var finished sql.NullInt64
	if a.FinishedAt != nil {
		finished = sql.NullInt64{Int64: a.FinishedAt.UnixMilli(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO attempts
		(id,quiz_id,user_id,state,finish_reason,score,passed,earned_points,total_points,elapsed_seconds,answers_json,started_at,finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET state=EXCLUDED.state, finish_reason=EXCLUDED.finish_reason,
			score=EXCLUDED.score, passed=EXCLUDED.passed, earned_points=EXCLUDED.earned_points,
			total_points=EXCLUDED.total_points, elapsed_seconds=EXCLUDED.elapsed_seconds,
			answers_json=EXCLUDED.answers_json, finished_at=EXCLUDED.finished_at
		WHERE attempts.state <> 'graded'`,
		a.ID, a.QuizID, a.UserID, string(a.State), string(a.FinishReason), score, passed,
		a.EarnedPoints, a.TotalPoints, a.ElapsedSeconds, string(aj), a.StartedAt.UnixMilli(), finished)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errors.Wrapf(ErrNotFound, "quiz %s", a.QuizID)
		}
		return errors.Wrapf(err, "put attempt %s", a.ID)
	}
	// the upsert touches no row when the stored attempt is graded
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrFinalized, "attempt %s", a.ID)
	}
	return nil
}

const attemptColumns = `id,quiz_id,user_id,state,finish_reason,score,passed,earned_points,total_points,elapsed_seconds,answers_json,started_at,finished_at`

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (attempt.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return attempt.Attempt{}, errors.Wrapf(ErrNotFound, "attempt %s", id)
		}
		return attempt.Attempt{}, errors.Wrapf(err, "get attempt %s", id)
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, f AttemptFilter) ([]attempt.Attempt, error) {
	var where []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if f.QuizID != "" {
		add("quiz_id", f.QuizID)
	}
	if f.UserID != "" {
		add("user_id", f.UserID)
	}
	if f.State != "" {
		add("state", string(f.State))
	}
	query := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
		if f.Offset > 0 {
			query += fmt.Sprintf(` OFFSET %d`, f.Offset)
		}
	} else if f.Offset > 0 {
		if s.driver == "postgres" {
			query += fmt.Sprintf(` OFFSET %d`, f.Offset)
		} else {
			query += fmt.Sprintf(` LIMIT -1 OFFSET %d`, f.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list attempts")
	}
	defer rows.Close()
	var out []attempt.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan attempt")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "list attempts")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(sc scanner) (attempt.Attempt, error) {
	var a attempt.Attempt
	var state, reason, ajson string
	var score, finished sql.NullInt64
	var passed sql.NullBool
	var started int64
	if err := sc.Scan(&a.ID, &a.QuizID, &a.UserID, &state, &reason, &score, &passed,
		&a.EarnedPoints, &a.TotalPoints, &a.ElapsedSeconds, &ajson, &started, &finished); err != nil {
		return attempt.Attempt{}, err
	}
	a.State = attempt.State(state)
	a.FinishReason = attempt.FinishReason(reason)
	a.StartedAt = time.UnixMilli(started).UTC()
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if passed.Valid {
		v := passed.Bool
		a.Passed = &v
	}
	if finished.Valid {
		t := time.UnixMilli(finished.Int64).UTC()
		a.FinishedAt = &t
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return attempt.Attempt{}, errors.Wrapf(err, "decode answers of attempt %s", a.ID)
	}
	return a, nil
}

func isForeignKeyViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint") || // sqlite
		strings.Contains(msg, "violates foreign key") // postgres
}
