package grading

import "github.com/mind-engage/mindengage-quiz/internal/quiz"

// NoAnswer is shown for questions the visitor never answered.
// It never compares equal to a real letter.
const NoAnswer = "No Answer"

// Result is the per-question outcome shown after submission and in review.
type Result struct {
	QuestionID    int64  `json:"question_id"`
	Question      string `json:"question"`
	YourAnswer    string `json:"your_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	Correct       bool   `json:"correct"`
	Result        string `json:"result"`
}

// Score grades answers against questions. Results follow the order of questions.
// Score has no side effects.
func Score(questions []quiz.Question, answers map[int64]quiz.Letter) (int, []Result) {
	score := 0
	results := make([]Result, 0, len(questions))
	for _, q := range questions {
		r := grade(q, answers)
		if r.Correct {
			score++
		}
		results = append(results, r)
	}
	return score, results
}

// Review returns the same rows as Score without the total.
func Review(questions []quiz.Question, answers map[int64]quiz.Letter) []Result {
	_, rs := Score(questions, answers)
	return rs
}

func grade(q quiz.Question, answers map[int64]quiz.Letter) Result {
	r := Result{
		QuestionID:    q.ID,
		Question:      q.QuestionText,
		YourAnswer:    NoAnswer,
		CorrectAnswer: q.Label(q.CorrectOption),
		Explanation:   q.Explanation,
		Result:        "Incorrect",
	}
	if l, ok := answers[q.ID]; ok {
		r.YourAnswer = q.Label(l)
		r.Correct = l == q.CorrectOption
	}
	if r.Correct {
		r.Result = "Correct"
	}
	return r
}
