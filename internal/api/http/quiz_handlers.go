package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-quiz/internal/session"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/visitor"
)

type quizPage struct {
	Title    string
	Nav      string
	Notices  []notice
	View     session.View
	ReviewOn bool
}

// GET|POST /quiz (form: answer, action, review)
func QuizPageHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := session.Input{}
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			in.Answer = r.PostFormValue("answer")
			in.Action = session.ParseAction(r.PostFormValue("action"))
		}
		in.Review = formBool(r.FormValue("review"))

		v := d.step(r, in)
		page := quizPage{Title: "Take Quiz", Nav: "quiz", View: v, ReviewOn: in.Review}
		for _, n := range v.Notices {
			page.Notices = append(page.Notices, notice{Kind: string(n.Kind), Text: n.Text})
		}
		d.render(w, "quiz", http.StatusOK, page)
	}
}

// GET /api/quiz returns the current view; POST /api/quiz takes a session.Input body.
func QuizAPIHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := session.Input{Review: formBool(r.URL.Query().Get("review"))}
		if r.Method == http.MethodPost {
			var body struct {
				Answer string `json:"answer"`
				Action string `json:"action"`
				Review bool   `json:"review"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "bad json")
				return
			}
			in = session.Input{Answer: body.Answer, Action: session.ParseAction(body.Action), Review: body.Review}
		}
		writeJSON(w, http.StatusOK, d.step(r, in))
	}
}

// POST /quiz/reset discards the visitor's quiz state.
func ResetQuizHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := visitor.SessionIDFromContext(r.Context())
		d.Sessions.Drop(sid)
		d.Log.Info("quiz session reset")
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
	}
}

// step loads the questions once and runs one render cycle for the visitor.
func (d *Deps) step(r *http.Request, in session.Input) session.View {
	ctx := r.Context()
	sid := visitor.SessionIDFromContext(ctx)
	questions := d.fetchQuestions(ctx)
	if len(questions) == 0 {
		// no state is created for an empty bank
		return session.Render(&session.State{}, questions, in, d.Sessions.Now())
	}

	var v session.View
	d.Sessions.With(sid, func(st *session.State) {
		v = session.Render(st, questions, in, d.Sessions.Now())
	})

	if in.Action == session.ActionSave && v.Phase == session.PhaseInProgress {
		d.Log.Info("user saved progress")
	}
	if v.JustCompleted {
		d.Log.Info("user submitted quiz", "score", v.Score, "total", v.Total, "time_up", v.TimeUp)
		d.event(ctx, syncx.TypeQuizSubmitted, sid, map[string]any{
			"score":   v.Score,
			"total":   v.Total,
			"time_up": v.TimeUp,
		})
	}
	return v
}

func formBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
