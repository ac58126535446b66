package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// Letter labels one of the four option slots.
type Letter string

const (
	A Letter = "A"
	B Letter = "B"
	C Letter = "C"
	D Letter = "D"
)

// Letters lists the option slots in display order.
var Letters = []Letter{A, B, C, D}

var (
	ErrInvalidLetter   = errors.New("invalid option letter")
	ErrInvalidQuestion = errors.New("invalid question")
)

// ParseLetter accepts a, A, " b " and so on.
func ParseLetter(s string) (Letter, error) {
	l := Letter(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLetter, s)
	}
	return l, nil
}

func (l Letter) Valid() bool {
	switch l {
	case A, B, C, D:
		return true
	}
	return false
}

type Question struct {
	ID            int64  `json:"id"`
	QuestionText  string `json:"question_text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption Letter `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// Option returns the text stored under letter l.
func (q Question) Option(l Letter) (string, error) {
	switch l {
	case A:
		return q.OptionA, nil
	case B:
		return q.OptionB, nil
	case C:
		return q.OptionC, nil
	case D:
		return q.OptionD, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidLetter, string(l))
}

// Options pairs each letter with its text, in A..D order.
func (q Question) Options() []Choice {
	return []Choice{
		{Letter: A, Text: q.OptionA},
		{Letter: B, Text: q.OptionB},
		{Letter: C, Text: q.OptionC},
		{Letter: D, Text: q.OptionD},
	}
}

// Label renders "B: text", or the bare letter when it cannot be resolved.
func (q Question) Label(l Letter) string {
	text, err := q.Option(l)
	if err != nil {
		return string(l)
	}
	return string(l) + ": " + text
}

// Validate checks the six required fields and the correct letter.
// Explanation is optional.
func (q Question) Validate() error {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"question_text", q.QuestionText},
		{"option_a", q.OptionA},
		{"option_b", q.OptionB},
		{"option_c", q.OptionC},
		{"option_d", q.OptionD},
		{"correct_option", string(q.CorrectOption)},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidQuestion, strings.Join(missing, ", "))
	}
	if !q.CorrectOption.Valid() {
		return fmt.Errorf("%w: correct_option must be one of A, B, C, D (got %q)", ErrInvalidQuestion, string(q.CorrectOption))
	}
	return nil
}

type Choice struct {
	Letter Letter `json:"letter"`
	Text   string `json:"text"`
}
