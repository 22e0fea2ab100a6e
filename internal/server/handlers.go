package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/repositories"
	"github.com/desertthunder/passtheaux/internal/shared"
	"github.com/desertthunder/passtheaux/internal/tasks"
	"github.com/go-chi/chi/v5"
)

const maxRequestBody = 1 << 20

type handlers struct {
	deps   Deps
	logger *log.Logger
}

// MoodResponse describes one selectable mood.
type MoodResponse struct {
	Label        string `json:"label"`
	PlaylistName string `json:"playlist_name"`
	Description  string `json:"description"`
}

// SkippedResponse is a curated entry that could not be resolved.
type SkippedResponse struct {
	Position int    `json:"position"`
	Entry    string `json:"entry"`
	Phase    string `json:"phase"`
	Reason   string `json:"reason"`
}

// GenerateResponse is the body returned by POST /api/generate.
type GenerateResponse struct {
	Run      *models.Run            `json:"run"`
	Steps    []tasks.ProgressUpdate `json:"steps"`
	Skipped  []SkippedResponse      `json:"skipped,omitempty"`
	Degraded []string               `json:"degraded,omitempty"` // "user/facet: reason" for history calls that failed
	Flags    []string               `json:"curation_flags,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handlers) moods(w http.ResponseWriter, r *http.Request) {
	moods := make([]MoodResponse, 0, len(models.Moods()))
	for _, m := range models.Moods() {
		moods = append(moods, MoodResponse{Label: m.String(), PlaylistName: m.PlaylistName(), Description: m.Clause()})
	}
	_ = writeJSON(w, http.StatusOK, moods)
}

// generate runs the pipeline synchronously.
//
// A run that fails after the playlist exists (partial) still answers 200 with the error in the body.
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	cred, _ := CredentialFrom(r.Context())

	var req models.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		if errors.Is(err, shared.ErrInvalidMood) {
			writeError(w, err)
			return
		}
		writeError(w, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}

	result, err := h.deps.Engine.Generate(r.Context(), cred, req, nil)
	if result == nil || result.Run == nil {
		writeError(w, err)
		return
	}

	resp := newGenerateResponse(result)
	if err != nil {
		resp.Error = err.Error()
		if result.Run.Status != models.RunPartial {
			h.logger.Warn("run failed", "run", result.Run.ID, "err", err)
			_ = writeJSON(w, statusFor(err), resp)
			return
		}
	}
	_ = writeJSON(w, http.StatusOK, resp)
}

func newGenerateResponse(result *tasks.RunResult) GenerateResponse {
	resp := GenerateResponse{Run: result.Run, Steps: result.Steps}
	if resp.Steps == nil {
		resp.Steps = []tasks.ProgressUpdate{}
	}

	if result.Aggregate != nil {
		for _, f := range result.Aggregate.Degraded() {
			resp.Degraded = append(resp.Degraded, fmt.Sprintf("%s/%s: %v", f.Username, f.Facet, f.Err))
		}
	}
	if result.Curation != nil {
		resp.Flags = result.Curation.Shape.Flags()
	}
	if result.Resolution != nil {
		for _, s := range result.Resolution.Skipped {
			resp.Skipped = append(resp.Skipped, SkippedResponse{
				Position: s.Position,
				Entry:    s.Entry,
				Phase:    s.Phase.String(),
				Reason:   s.Reason,
			})
		}
	}
	return resp
}

func (h *handlers) playlists(w http.ResponseWriter, r *http.Request) {
	cred, _ := CredentialFrom(r.Context())

	playlists, err := h.deps.Streaming.UserPlaylists(r.Context(), cred)
	if err != nil {
		writeError(w, err)
		return
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	_ = writeJSON(w, http.StatusOK, playlists)
}

func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		writeError(w, fmt.Errorf("%w: run history is disabled", shared.ErrServiceUnavailable))
		return
	}
	cred, _ := CredentialFrom(r.Context())

	filter := repositories.RunFilter{SubjectID: cred.SubjectID}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(w, fmt.Errorf("%w: limit must be a positive integer", shared.ErrInvalidArgument))
			return
		}
		filter.Limit = limit
	}

	runs, err := h.deps.Runs.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	_ = writeJSON(w, http.StatusOK, runs)
}

// getRun hides other subjects' runs behind 404.
func (h *handlers) getRun(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		writeError(w, fmt.Errorf("%w: run history is disabled", shared.ErrServiceUnavailable))
		return
	}
	cred, _ := CredentialFrom(r.Context())

	run, err := h.deps.Runs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if run.SubjectID != cred.SubjectID {
		writeError(w, shared.ErrRunNotFound)
		return
	}
	_ = writeJSON(w, http.StatusOK, run)
}
