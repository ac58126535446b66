package session

import (
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseInProgress Phase = "in_progress"
	PhaseComplete   Phase = "complete"
)

type Action string

const (
	ActionNone   Action = ""
	ActionPrev   Action = "prev"
	ActionNext   Action = "next"
	ActionSave   Action = "save"
	ActionSubmit Action = "submit"
)

// ParseAction maps form values to actions. Unknown values become ActionNone.
func ParseAction(s string) Action {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionPrev, ActionNext, ActionSave, ActionSubmit:
		return a
	}
	return ActionNone
}

type Input struct {
	Answer string `json:"answer,omitempty"`
	Action Action `json:"action,omitempty"`
	Review bool   `json:"review,omitempty"`
}

type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
)

type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

const (
	MsgNoQuestions  = "No questions available. Please contact the administrator."
	MsgTimeUp       = "Time's up! Submitting your answers..."
	MsgCompleted    = "You have completed the quiz!"
	MsgSaved        = "Your progress has been saved."
	MsgSubmitOnLast = "Submit is available on the last question."
	MsgBadAnswer    = "Please choose one of A, B, C or D."
)

// QuestionView is a question as shown while the quiz is running: no
// correct option, no explanation.
type QuestionView struct {
	ID           int64         `json:"id"`
	QuestionText string        `json:"question_text"`
	Options      []quiz.Choice `json:"options"`
}

// View is everything needed to draw one render of the quiz.
type View struct {
	Phase         Phase            `json:"phase"`
	Index         int              `json:"index"`
	Total         int              `json:"total"`
	Question      *QuestionView    `json:"question,omitempty"`
	Selected      quiz.Letter      `json:"selected,omitempty"`
	Remaining     time.Duration    `json:"-"`
	RemainingSecs int              `json:"remaining_seconds"`
	RemainingText string           `json:"remaining_text"`
	CanPrev       bool             `json:"can_prev"`
	CanNext       bool             `json:"can_next"`
	CanSubmit     bool             `json:"can_submit"`
	Notices       []Notice         `json:"notices,omitempty"`
	TimeUp        bool             `json:"time_up,omitempty"`
	JustCompleted bool             `json:"-"`
	Score         int              `json:"score"`
	Results       []grading.Result `json:"results,omitempty"`
	Review        []grading.Result `json:"review,omitempty"`
}

// Render advances st by one interaction and describes the result. It never
// touches storage; questions are loaded by the caller.
func Render(st *State, questions []quiz.Question, in Input, now time.Time) View {
	n := len(questions)
	if n == 0 {
		return View{Phase: PhaseEmpty, Notices: []Notice{{NoticeWarning, MsgNoQuestions}}}
	}
	if !st.Initialized {
		st.Init(now)
	}
	v := View{Total: n}

	// time-up wins over any input on the same render
	if !st.Completed && st.Expired(now) {
		complete(st, n)
		v.TimeUp = true
		v.JustCompleted = true
		v.Notices = append(v.Notices, Notice{NoticeSuccess, MsgTimeUp})
		return finish(v, st, questions, in)
	}
	if st.Completed {
		st.CurrentIndex = n
		v.Notices = append(v.Notices, Notice{NoticeSuccess, MsgCompleted})
		return finish(v, st, questions, in)
	}
	if st.CurrentIndex > n-1 {
		st.CurrentIndex = n - 1
	}
	if st.CurrentIndex < 0 {
		st.CurrentIndex = 0
	}

	cur := questions[st.CurrentIndex]
	if strings.TrimSpace(in.Answer) != "" {
		if l, err := quiz.ParseLetter(in.Answer); err == nil {
			st.Answers[cur.ID] = l
		} else {
			v.Notices = append(v.Notices, Notice{NoticeWarning, MsgBadAnswer})
		}
	}

	switch in.Action {
	case ActionPrev:
		if st.CurrentIndex > 0 {
			st.CurrentIndex--
		}
	case ActionNext:
		if st.CurrentIndex < n-1 {
			st.CurrentIndex++
		}
	case ActionSave:
		v.Notices = append(v.Notices, Notice{NoticeSuccess, MsgSaved})
	case ActionSubmit:
		if st.CurrentIndex == n-1 {
			complete(st, n)
			v.JustCompleted = true
			v.Notices = append(v.Notices, Notice{NoticeSuccess, MsgCompleted})
			return finish(v, st, questions, in)
		}
		v.Notices = append(v.Notices, Notice{NoticeInfo, MsgSubmitOnLast})
	}

	v.Phase = PhaseInProgress
	v.Index = st.CurrentIndex
	q := questions[st.CurrentIndex]
	v.Question = &QuestionView{ID: q.ID, QuestionText: q.QuestionText, Options: q.Options()}
	v.Selected = st.Answers[q.ID]
	v.Remaining = st.Remaining(now)
	v.RemainingSecs = int(v.Remaining / time.Second)
	v.RemainingText = FormatRemaining(v.Remaining)
	v.CanPrev = st.CurrentIndex > 0
	v.CanNext = st.CurrentIndex < n-1
	v.CanSubmit = st.CurrentIndex == n-1
	if in.Review {
		v.Review = grading.Review(questions, st.Answers)
	}
	return v
}

func complete(st *State, n int) {
	st.CurrentIndex = n
	st.Completed = true
}

func finish(v View, st *State, questions []quiz.Question, in Input) View {
	v.Phase = PhaseComplete
	v.Index = len(questions)
	v.Score, v.Results = grading.Score(questions, st.Answers)
	if in.Review {
		v.Review = v.Results
	}
	return v
}
