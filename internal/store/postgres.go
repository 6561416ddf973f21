package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-quiz/internal/question"
)

const dbTimeout = 5 * time.Second

const selectColumns = `id, text, question_type, subject, topic, difficulty, options,
	correct_answer, explanation, tags, source_text, ai_generated, created_by,
	created_at, usage_count, success_rate`

// PostgresStore is a PostgreSQL-backed QuestionStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing pool. The schema comes
// from database.Migrate.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, q question.Question) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return upsert(ctx, s.pool, q)
}

// SaveMany writes every question in one transaction.
func (s *PostgresStore) SaveMany(ctx context.Context, qs []question.Question) error {
	if len(qs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout*2)
	defer cancel()

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, q := range qs {
			if err := upsert(ctx, tx, q); err != nil {
				return err
			}
		}
		return nil
	})
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsert(ctx context.Context, db queryRower, q question.Question) error {
	if q.ID == "" {
		q.ID = question.NewID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	options := q.Options
	if options == nil {
		options = []question.Option{}
	}
	optJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}

	var id string
	err = db.QueryRow(ctx,
		`INSERT INTO questions (id, text, question_type, subject, topic, difficulty, options,
			correct_answer, explanation, tags, source_text, ai_generated, fingerprint,
			created_by, created_at, usage_count, success_rate)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			question_type = EXCLUDED.question_type,
			subject = EXCLUDED.subject,
			topic = EXCLUDED.topic,
			difficulty = EXCLUDED.difficulty,
			options = EXCLUDED.options,
			correct_answer = EXCLUDED.correct_answer,
			explanation = EXCLUDED.explanation,
			tags = EXCLUDED.tags,
			source_text = EXCLUDED.source_text,
			ai_generated = EXCLUDED.ai_generated,
			fingerprint = EXCLUDED.fingerprint
		 RETURNING id`,
		q.ID,
		q.Text,
		string(q.Type),
		q.Subject,
		q.Topic,
		string(q.Difficulty),
		string(optJSON),
		nullIfEmpty(q.CorrectAnswer),
		nullIfEmpty(q.Explanation),
		tags,
		nullIfEmpty(q.SourceText),
		q.AIGenerated,
		question.Fingerprint(q),
		nullIfEmpty(q.CreatedBy),
		q.CreatedAt,
		q.UsageCount,
		q.SuccessRate,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("save question %s: %w", q.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (question.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return question.Question{}, ErrNotFound
	}
	if err != nil {
		return question.Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// List filters in SQL where it can. Tag matching is case-insensitive and
// happens after the scan.
func (s *PostgresStore) List(ctx context.Context, f question.Filter) ([]question.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Subject != "" {
		add("subject = $%d", f.Subject)
	}
	if f.Topic != "" {
		add("topic = $%d", f.Topic)
	}
	if f.Difficulty != "" {
		add("difficulty = $%d", string(f.Difficulty))
	}
	if f.Type != "" {
		add("question_type = $%d", string(f.Type))
	}
	if f.AIGenerated != nil {
		add("ai_generated = $%d", *f.AIGenerated)
	}

	sql := `SELECT ` + selectColumns + ` FROM questions`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created_at ASC, id ASC"
	if f.Limit > 0 && len(f.Tags) == 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := []question.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if !f.Match(q) {
			continue
		}
		out = append(out, q)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecordUsage(ctx context.Context, id string, correct bool) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	hit := 0.0
	if correct {
		hit = 1
	}
	cmd, err := s.pool.Exec(ctx,
		`UPDATE questions
		 SET success_rate = (success_rate * usage_count + $2) / (usage_count + 1),
		     usage_count = usage_count + 1
		 WHERE id = $1`,
		id, hit,
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanQuestion(row pgx.Row) (question.Question, error) {
	var (
		q                                      question.Question
		qType, difficulty                      string
		optJSON                                []byte
		correct, explanation, source, creator *string
	)
	if err := row.Scan(
		&q.ID,
		&q.Text,
		&qType,
		&q.Subject,
		&q.Topic,
		&difficulty,
		&optJSON,
		&correct,
		&explanation,
		&q.Tags,
		&source,
		&q.AIGenerated,
		&creator,
		&q.CreatedAt,
		&q.UsageCount,
		&q.SuccessRate,
	); err != nil {
		return question.Question{}, err
	}
	q.Type = question.Type(qType)
	q.Difficulty = question.Difficulty(difficulty)
	if len(optJSON) > 0 {
		if err := json.Unmarshal(optJSON, &q.Options); err != nil {
			return question.Question{}, fmt.Errorf("decode options: %w", err)
		}
	}
	if len(q.Options) == 0 {
		q.Options = nil
	}
	if len(q.Tags) == 0 {
		q.Tags = nil
	}
	q.CorrectAnswer = deref(correct)
	q.Explanation = deref(explanation)
	q.SourceText = deref(source)
	q.CreatedBy = deref(creator)
	return q, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
