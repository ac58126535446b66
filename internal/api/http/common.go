package http

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/bulk"
	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxUploadBytes = 10 << 20

// EventSink records audit events. *syncx.EventRepo satisfies it.
type EventSink interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// EventLister is optionally implemented by the sink to show recent activity.
type EventLister interface {
	Recent(ctx context.Context, limit int) ([]syncx.Event, error)
}

// Deps is what the handlers share.
type Deps struct {
	Store    quiz.Store
	Sessions *session.Manager
	Importer *bulk.Importer
	Blobs    storage.BlobStore // optional
	Events   EventSink         // optional
	Log      *logger.Logger

	pages map[string]*template.Template
}

func NewDeps(store quiz.Store, sessions *session.Manager, blobs storage.BlobStore, events EventSink, log *logger.Logger) (*Deps, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Deps{
		Store:    store,
		Sessions: sessions,
		Importer: bulk.NewImporter(store, log),
		Blobs:    blobs,
		Events:   events,
		Log:      log.With("component", "http"),
		pages:    pages,
	}, nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{"add": func(a, b int) int { return a + b }}
	pages := map[string]*template.Template{}
	for _, name := range []string{"quiz", "admin"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

type notice struct {
	Kind string
	Text string
}

func (d *Deps) render(w http.ResponseWriter, page string, status int, data any) {
	t, ok := d.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		d.Log.Error("render page", "page", page, "error", err)
	}
}

// fetchQuestions absorbs storage errors: callers see an empty set, the
// failure goes to the log.
func (d *Deps) fetchQuestions(ctx context.Context) []quiz.Question {
	qs, err := d.Store.FetchAll(ctx)
	if err != nil {
		d.Log.Error("error fetching questions", "error", err)
		return []quiz.Question{}
	}
	d.Log.Debug("fetched questions", "count", len(qs))
	return qs
}

func (d *Deps) event(ctx context.Context, typ, key string, data any) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Append(ctx, typ, key, data); err != nil {
		d.Log.Warn("append event", "type", typ, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
