package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/visitor"
)

type RouterOptions struct {
	Visitors    *visitor.Service
	EnableAPI   bool
	CORSOrigins []string
	// Ping backs /readyz. Nil means always ready.
	Ping func(ctx context.Context) error
}

func NewRouter(d *Deps, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/quiz", http.StatusFound)
	})

	r.Group(func(qr chi.Router) {
		qr.Use(visitor.Middleware(opts.Visitors))
		qr.Get("/quiz", QuizPageHandler(d))
		qr.Post("/quiz", QuizPageHandler(d))
		qr.Post("/quiz/reset", ResetQuizHandler(d))
	})

	r.Route("/admin", func(ar chi.Router) {
		ar.Get("/", AdminPageHandler(d))
		ar.Post("/questions", AddQuestionFormHandler(d))
		ar.Post("/questions/bulk", BulkUploadFormHandler(d))
		ar.Get("/questions/export", ExportQuestionsHandler(d))
	})

	if opts.EnableAPI {
		r.Route("/api", func(api chi.Router) {
			api.Use(cors.Handler(cors.Options{
				AllowedOrigins:   opts.CORSOrigins,
				AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type"},
				ExposedHeaders:   []string{"Content-Length"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			api.Get("/questions", ListQuestionsHandler(d))
			api.Post("/questions", CreateQuestionHandler(d))
			api.Post("/questions/bulk", BulkImportAPIHandler(d))
			api.With(visitor.Middleware(opts.Visitors)).Get("/quiz", QuizAPIHandler(d))
			api.With(visitor.Middleware(opts.Visitors)).Post("/quiz", QuizAPIHandler(d))
		})
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			if err := opts.Ping(r.Context()); err != nil {
				d.Log.Warn("not ready", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	return r
}

// RequestLogger logs one line per request through zap.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
