package bulk

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type Cause string

const (
	CauseValidation Cause = "validation"
	CauseConstraint Cause = "constraint"
	CauseBackend    Cause = "backend"
)

type Failure struct {
	Index int    `json:"index"`
	Cause Cause  `json:"cause"`
	Err   string `json:"error"`
}

// Report summarizes one import. Attempted counts records that passed
// validation; Added counts successful inserts.
type Report struct {
	Total     int       `json:"total"`
	Attempted int       `json:"attempted"`
	Added     int       `json:"added"`
	IDs       []int64   `json:"ids"`
	Failures  []Failure `json:"failures,omitempty"`
}

type Inserter interface {
	Insert(ctx context.Context, q quiz.Question) (quiz.Question, error)
}

type Importer struct {
	Store Inserter
	Log   *logger.Logger
}

func NewImporter(store Inserter, log *logger.Logger) *Importer {
	return &Importer{Store: store, Log: log.With("component", "bulk")}
}

// Import inserts every valid record independently. Failures are collected,
// never returned early.
func (im *Importer) Import(ctx context.Context, records []Record) Report {
	rep := Report{Total: len(records), IDs: []int64{}}
	for i, rec := range records {
		if err := ValidateRecord(rec); err != nil {
			im.Log.Warn("question missing fields", "index", i, "error", err)
			rep.Failures = append(rep.Failures, Failure{Index: i, Cause: CauseValidation, Err: err.Error()})
			continue
		}
		rep.Attempted++
		q, err := im.Store.Insert(ctx, ToQuestion(rec))
		if err != nil {
			cause := classify(err)
			im.Log.Error("error adding question", "index", i, "cause", cause, "error", err)
			rep.Failures = append(rep.Failures, Failure{Index: i, Cause: cause, Err: err.Error()})
			continue
		}
		im.Log.Info("added question", "index", i, "id", q.ID)
		rep.Added++
		rep.IDs = append(rep.IDs, q.ID)
	}
	return rep
}

func classify(err error) Cause {
	if errors.Is(err, quiz.ErrInvalidQuestion) || errors.Is(err, quiz.ErrConstraint) {
		return CauseConstraint
	}
	return CauseBackend
}

// ToQuestion converts a validated record. Unknown keys (including "id") are ignored.
func ToQuestion(r Record) quiz.Question {
	return quiz.Question{
		QuestionText:  str(r["question_text"]),
		OptionA:       str(r["option_a"]),
		OptionB:       str(r["option_b"]),
		OptionC:       str(r["option_c"]),
		OptionD:       str(r["option_d"]),
		CorrectOption: quiz.Letter(str(r["correct_option"])),
		Explanation:   str(r["explanation"]),
	}
}

// FromQuestion is the inverse of ToQuestion, used by export.
func FromQuestion(q quiz.Question) map[string]string {
	return map[string]string{
		"question_text":  q.QuestionText,
		"option_a":       q.OptionA,
		"option_b":       q.OptionB,
		"option_c":       q.OptionC,
		"option_d":       q.OptionD,
		"correct_option": string(q.CorrectOption),
		"explanation":    q.Explanation,
	}
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
