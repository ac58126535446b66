package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-quiz/internal/bulk"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// GET /api/questions
func ListQuestionsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := d.Store.FetchAll(r.Context())
		if err != nil {
			d.Log.Error("list questions", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list questions")
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// POST /api/questions
func CreateQuestionHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q quiz.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		q.ID = 0
		saved, err := d.addQuestion(r.Context(), q)
		switch {
		case err == nil:
			writeJSON(w, http.StatusCreated, saved)
		case errors.Is(err, errMissingFields):
			writeError(w, http.StatusBadRequest, MsgFillAllFields)
		case errors.Is(err, quiz.ErrInvalidQuestion):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, quiz.ErrConstraint):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, MsgAddFailed)
		}
	}
}

// POST /api/questions/bulk accepts either multipart file= (JSON/YAML/CSV)
// or a raw JSON array in the body.
func BulkImportAPIHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			name    string
			payload []byte
			err     error
		)
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			name, payload, err = readUpload(w, r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "file required")
				return
			}
		} else {
			name = "questions.json"
			payload, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, "could not read body")
				return
			}
		}
		rep, err := d.importPayload(r.Context(), name, payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, MsgInvalidFormat)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			bulk.Report
			Message string `json:"message"`
		}{rep, importMessage(rep)})
	}
}
