package api

import (
	"encoding/json"
	"net/http"

	"obfuscator-web/binding"
	"obfuscator-web/options"
)

func (h *handler) getOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Options().Load())
}

// putOptions saves a JSON record. Keys absent from the body keep their
// default, the same way a partial persisted record loads.
func (h *handler) putOptions(w http.ResponseWriter, r *http.Request) {
	o := options.Defaults()
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	om := h.manager.Options()
	om.Save(o)
	writeJSON(w, http.StatusOK, om.Load())
}

// getControls renders the current options as control state.
func (h *handler) getControls(w http.ResponseWriter, r *http.Request) {
	f := binding.NewFields()
	binding.SyncFromConfig(f, h.manager.Options().Load())
	writeJSON(w, http.StatusOK, f)
}

// getChoices lists the values offered by the select controls.
func (h *handler) getChoices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"identifierNamesGenerator": options.IdentifierNamesGenerators(),
		"target":                   options.Targets(),
	})
}

// postControls reads a submitted options form back into the record.
func (h *handler) postControls(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	o := binding.ReadIntoConfig(binding.Form(r.PostForm), h.manager.Options())
	writeJSON(w, http.StatusOK, o)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
