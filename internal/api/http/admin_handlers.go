package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/bulk"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

const (
	MsgAdded          = "Question added successfully!"
	MsgAddFailed      = "Failed to add question. Check logs for details."
	MsgFillAllFields  = "Please fill in all fields."
	MsgInvalidFormat  = "Invalid file format."
	MsgFileRequired   = "Please choose a file to upload."
	methodSingle      = "single"
	methodBulk        = "bulk"
	recentEventsShown = 10
)

var errMissingFields = errors.New("missing required fields")

type adminPage struct {
	Title         string
	Nav           string
	Notices       []notice
	Method        string
	Form          quiz.Question
	Letters       []quiz.Letter
	QuestionCount int
	Recent        []syncx.Event
}

func (d *Deps) adminPage(ctx context.Context, method string) adminPage {
	if method != methodBulk {
		method = methodSingle
	}
	p := adminPage{Title: "Admin", Nav: "admin", Method: method, Letters: quiz.Letters, Form: quiz.Question{CorrectOption: quiz.A}}
	if n, err := d.Store.Count(ctx); err == nil {
		p.QuestionCount = n
	} else {
		d.Log.Error("count questions", "error", err)
	}
	if l, ok := d.Events.(EventLister); ok {
		if evs, err := l.Recent(ctx, recentEventsShown); err == nil {
			p.Recent = evs
		}
	}
	return p
}

// GET /admin?method=single|bulk
func AdminPageHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.render(w, "admin", http.StatusOK, d.adminPage(r.Context(), r.URL.Query().Get("method")))
	}
}

// POST /admin/questions (single entry form)
func AddQuestionFormHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		q := quiz.Question{
			QuestionText:  r.PostFormValue("question_text"),
			OptionA:       r.PostFormValue("option_a"),
			OptionB:       r.PostFormValue("option_b"),
			OptionC:       r.PostFormValue("option_c"),
			OptionD:       r.PostFormValue("option_d"),
			CorrectOption: quiz.Letter(r.PostFormValue("correct_option")),
			Explanation:   r.PostFormValue("explanation"),
		}
		page := d.adminPage(r.Context(), methodSingle)

		_, err := d.addQuestion(r.Context(), q)
		switch {
		case err == nil:
			page.Notices = []notice{{Kind: "success", Text: MsgAdded}}
			page.QuestionCount++
			d.render(w, "admin", http.StatusOK, page)
		case errors.Is(err, errMissingFields):
			page.Form = q
			page.Notices = []notice{{Kind: "error", Text: MsgFillAllFields}}
			d.render(w, "admin", http.StatusBadRequest, page)
		default:
			page.Form = q
			page.Notices = []notice{{Kind: "error", Text: MsgAddFailed}}
			d.render(w, "admin", http.StatusUnprocessableEntity, page)
		}
	}
}

// POST /admin/questions/bulk (multipart: file=questions.json)
func BulkUploadFormHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := d.adminPage(r.Context(), methodBulk)
		name, payload, err := readUpload(w, r)
		if err != nil {
			d.Log.Warn("read upload", "error", err)
			page.Notices = []notice{{Kind: "error", Text: MsgFileRequired}}
			d.render(w, "admin", http.StatusBadRequest, page)
			return
		}
		rep, err := d.importPayload(r.Context(), name, payload)
		if err != nil {
			page.Notices = []notice{{Kind: "error", Text: MsgInvalidFormat}}
			d.render(w, "admin", http.StatusBadRequest, page)
			return
		}
		page.QuestionCount += rep.Added
		page.Notices = []notice{{Kind: "success", Text: importMessage(rep)}}
		d.render(w, "admin", http.StatusOK, page)
	}
}

// GET /admin/questions/export downloads every question in the bulk upload encoding.
func ExportQuestionsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := d.Store.FetchAll(r.Context())
		if err != nil {
			d.Log.Error("export questions", "error", err)
			http.Error(w, "failed to export questions", http.StatusInternalServerError)
			return
		}
		out := make([]map[string]string, 0, len(qs))
		for _, q := range qs {
			out = append(out, bulk.FromQuestion(q))
		}
		w.Header().Set("Content-Disposition", `attachment; filename="questions.json"`)
		writeJSON(w, http.StatusOK, out)
	}
}

// addQuestion checks the six required fields before touching the store.
func (d *Deps) addQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	for _, v := range []string{q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD, string(q.CorrectOption)} {
		if strings.TrimSpace(v) == "" {
			return quiz.Question{}, errMissingFields
		}
	}
	saved, err := d.Store.Insert(ctx, q)
	if err != nil {
		d.Log.Error("error adding question", "error", err)
		return quiz.Question{}, err
	}
	d.Log.Info("added new question", "id", saved.ID)
	d.event(ctx, syncx.TypeQuestionAdded, strconv.FormatInt(saved.ID, 10), map[string]any{"id": saved.ID})
	return saved, nil
}

// importPayload archives, parses and imports one upload. The returned error
// is non-nil only for payload-level parse failures.
func (d *Deps) importPayload(ctx context.Context, name string, payload []byte) (bulk.Report, error) {
	d.archive(name, payload)
	recs, err := bulk.Parse(name, payload)
	if err != nil {
		d.Log.Error("error parsing upload", "filename", name, "error", err)
		return bulk.Report{}, err
	}
	d.Log.Info("parsed questions from upload", "filename", name, "count", len(recs))
	rep := d.Importer.Import(ctx, recs)
	d.Log.Info("bulk import finished", "filename", name, "total", rep.Total, "attempted", rep.Attempted, "added", rep.Added)
	d.event(ctx, syncx.TypeBulkImported, name, map[string]int{
		"total":     rep.Total,
		"attempted": rep.Attempted,
		"added":     rep.Added,
	})
	return rep, nil
}

func (d *Deps) archive(name string, payload []byte) {
	if d.Blobs == nil {
		return
	}
	key := fmt.Sprintf("uploads/%s/%s-%s", time.Now().UTC().Format("20060102"), uuid.NewString(), path.Base("/"+name))
	if _, err := d.Blobs.Put(key, bytes.NewReader(payload)); err != nil {
		d.Log.Warn("archive upload", "key", key, "error", err)
	}
}

func importMessage(rep bulk.Report) string {
	return fmt.Sprintf("Successfully added %d of %d questions.", rep.Added, rep.Total)
}

func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return hdr.Filename, b, nil
}
