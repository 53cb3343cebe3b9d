package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/michaelbrown/opencompiler/internal/orchestrator"
	"github.com/michaelbrown/opencompiler/internal/process"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Language handlers ---

type languageInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Compiled bool   `json:"compiled"`
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	profiles := s.orch.Languages()
	out := make([]languageInfo, 0, len(profiles))
	for _, p := range profiles {
		name := p.Name
		if name == "" {
			name = p.ID
		}
		out = append(out, languageInfo{ID: p.ID, Name: name, Compiled: p.NeedsCompile()})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- Run control handlers ---

type runResponse struct {
	Status  string       `json:"status"`
	Kind    string       `json:"kind,omitempty"`
	Notice  string       `json:"notice,omitempty"`
	Session *sessionInfo `json:"session,omitempty"`
}

type sessionInfo struct {
	process.Info
	Running bool `json:"running"`
}

// handleRun starts a run. Its events go to websocket subscribers; the
// response only reports whether a program was started.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return
	}

	err := s.orch.Run(s.ctx, req)
	if err != nil {
		var runErr *orchestrator.RunError
		if !errors.As(err, &runErr) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		status := http.StatusUnprocessableEntity
		if runErr.Kind == orchestrator.KindNotSupported {
			status = http.StatusNotFound
		}
		writeJSON(w, status, runResponse{
			Status: "aborted",
			Kind:   runErr.Kind.String(),
			Notice: runErr.Notice,
		})
		return
	}

	info, running := s.orch.Session()
	writeJSON(w, http.StatusAccepted, runResponse{
		Status:  "started",
		Session: &sessionInfo{Info: info, Running: running},
	})
}

type inputRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// Input with nothing running is dropped, not an error.
	delivered := s.orch.SendInput(req.Input) == nil
	writeJSON(w, http.StatusOK, map[string]bool{"delivered": delivered})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	stopped := s.orch.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, running := s.orch.Session()
	writeJSON(w, http.StatusOK, sessionInfo{Info: info, Running: running})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}
