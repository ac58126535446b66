package quiz

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(h *sql.DB) *SQLStore {
	return &SQLStore{db: h}
}

func (s *SQLStore) FetchAll(ctx context.Context) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,question_text,option_a,option_b,option_c,option_d,correct_option,explanation
		FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	defer rows.Close()

	out := []Question{}
	for rows.Next() {
		var q Question
		var correct string
		var expl sql.NullString
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &correct, &expl); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.CorrectOption = Letter(correct)
		q.Explanation = expl.String
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Insert(ctx context.Context, q Question) (Question, error) {
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	var id int64
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `INSERT INTO questions
			(question_text,option_a,option_b,option_c,option_d,correct_option,explanation)
			VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, string(q.CorrectOption), nullable(q.Explanation),
		).Scan(&id)
	})
	if err != nil {
		if db.IsConstraintViolation(err) {
			return Question{}, fmt.Errorf("insert question: %w: %v", ErrConstraint, err)
		}
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	q.ID = id
	return q, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
