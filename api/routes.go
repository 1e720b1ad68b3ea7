package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"obfuscator-web/session"
)

// maxUploadMemory bounds the in-memory part of a multipart upload; larger
// files spill to temp files.
const maxUploadMemory = 32 << 20

func RegisterRoutes(manager *session.Manager, log *zap.Logger, staticFS fs.FS) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	h := &handler{manager: manager, log: log}

	// Options API
	r.Get("/api/options", h.getOptions)
	r.Put("/api/options", h.putOptions)
	r.Get("/api/options/controls", h.getControls)
	r.Post("/api/options/controls", h.postControls)
	r.Get("/api/options/choices", h.getChoices)

	// Sessions API
	r.Get("/api/sessions", h.listSessions)
	r.Post("/api/sessions", h.createSession)
	r.Route("/api/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Delete("/", h.killSession)
		r.Put("/input", h.setInput)
		r.Post("/obfuscate", h.obfuscate)
		r.Post("/file", h.loadFile)
		r.Post("/drop", h.drop)
		r.Post("/copy", h.copyOutput)
		r.Get("/download", h.download)
		r.Post("/clear", h.clear)
		r.Post("/options/reset", h.resetOptions)

		// WebSocket
		r.Get("/ws", h.handleWS)
	})

	// Static sub-FS: strip the "static/" prefix present in the embed.FS.
	// In tests staticFS is already rooted at the page files, so Sub returns a
	// wrapper unconditionally (no error) but the sub-FS would look for
	// static/* which doesn't exist. Probe index.html to detect this.
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		staticSub = staticFS
	} else if _, statErr := fs.Stat(staticSub, "index.html"); statErr != nil {
		staticSub = staticFS
	}

	// Serve the page by reading from the FS directly.
	// Using http.FileServer with r.URL.Path ending in "index.html" triggers
	// Go's built-in redirect to "./", so the file is read directly.
	r.Get("/", serveFile(staticSub, "index.html"))

	// Static assets
	fileServer := http.FileServer(http.FS(staticSub))
	r.Get("/css/*", fileServer.ServeHTTP)
	r.Get("/js/*", fileServer.ServeHTTP)

	return r
}

// serveFile returns a handler that reads a single file from fsys and sends it.
func serveFile(fsys fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}
}

type handler struct {
	manager *session.Manager
	log     *zap.Logger
}
