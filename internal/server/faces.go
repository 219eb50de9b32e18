package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wardenhq/warden/internal/observe"
	"github.com/wardenhq/warden/pkg/facestore"
)

// faceSummary is the GET /faces list item. Encodings are not echoed back;
// they are large and only the classifier consumes them.
type faceSummary struct {
	Name       string `json:"name"`
	Dimensions int    `json:"dimensions"`
}

// enrollRequest is the POST /faces body.
type enrollRequest struct {
	Name     string    `json:"name"`
	Encoding []float32 `json:"encoding"`
}

// handleListFaces lists enrolled trusted faces.
func (s *Server) handleListFaces(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("face store list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "face store unavailable")
		return
	}

	faces := make([]faceSummary, 0, len(entries))
	for _, e := range entries {
		faces = append(faces, faceSummary{Name: e.Name, Dimensions: len(e.Encoding)})
	}
	writeJSON(w, http.StatusOK, map[string][]faceSummary{"faces": faces})
}

// handleEnrollFace enrolls or replaces a trusted face encoding.
func (s *Server) handleEnrollFace(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	body := http.MaxBytesReader(w, r.Body, maxUtteranceBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || len(req.Encoding) == 0 {
		writeError(w, http.StatusBadRequest, "name and encoding are required")
		return
	}

	if err := s.store.Add(r.Context(), facestore.Entry{Name: req.Name, Encoding: req.Encoding}); err != nil {
		observe.Logger(r.Context()).Error("face enrollment failed", "name", req.Name, "err", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	observe.Logger(r.Context()).Info("face enrolled", "name", req.Name)
	w.WriteHeader(http.StatusCreated)
}

// handleRemoveFace removes an enrolled face by name.
func (s *Server) handleRemoveFace(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.store.Remove(r.Context(), name); err != nil {
		observe.Logger(r.Context()).Error("face removal failed", "name", name, "err", err)
		writeError(w, http.StatusInternalServerError, "face store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
