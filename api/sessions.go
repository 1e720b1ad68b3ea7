package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"obfuscator-web/session"
)

func (h *handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.List())
}

func (h *handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create()
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *handler) killSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Kill(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to kill session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the {id} URL parameter, writing a 404 if it is unknown.
func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return s, true
}

func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) setInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Input *string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.SetInput(*req.Input)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// obfuscate runs the transform. A JSON body carrying "input" replaces the
// input buffer first; an empty body uses the current buffer.
func (h *handler) obfuscate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Input *string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Input != nil {
		s.SetInput(*req.Input)
	}
	s.Obfuscate()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// loadFile reads the multipart field "file" into the input buffer.
func (h *handler) loadFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	s.OpenFile(upload{files[0]})
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// drop handles a drop on the page. Only the first of the "files" parts is
// used; a drop without files is accepted and ignored.
func (h *handler) drop(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var files []session.FileOpener
	if err := r.ParseMultipartForm(maxUploadMemory); err == nil {
		defer r.MultipartForm.RemoveAll()
		for _, fh := range r.MultipartForm.File["files"] {
			files = append(files, upload{fh})
		}
	} else if !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return
	}
	s.Drop(files)
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) copyOutput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := s.Copy(r.Context()); err != nil {
		h.log.Debug("copy failed", zap.String("session", s.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// download sends the output as obfuscated.js, or 204 when there is nothing
// to download.
func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	wrote, err := s.Download(&buf)
	if err != nil {
		http.Error(w, "failed to prepare download", http.StatusInternalServerError)
		return
	}
	if !wrote {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+session.DownloadName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	s.Clear()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) resetOptions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.ResetOptions())
}

// upload adapts a multipart file header to session.FileOpener.
type upload struct {
	fh *multipart.FileHeader
}

func (u upload) Open() (io.ReadCloser, error) {
	return u.fh.Open()
}
