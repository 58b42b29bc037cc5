package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/skypro1111/interview-service/internal/analysis"
	"github.com/skypro1111/interview-service/internal/annotation"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/store"
	"github.com/skypro1111/interview-service/internal/transcript"
)

const maxImportSize = 4 << 20

type codeRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type annotationRequest struct {
	SegmentIndex int    `json:"segmentIndex"`
	StartOffset  int    `json:"startOffset"`
	EndOffset    int    `json:"endOffset"`
	CodeID       string `json:"codeId"`
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, annotation.ErrAnnotationNotFound):
		return http.StatusNotFound
	case errors.Is(err, annotation.ErrEmptySelection),
		errors.Is(err, annotation.ErrInvalidRange),
		errors.Is(err, annotation.ErrSegmentOutOfRange),
		errors.Is(err, annotation.ErrUnknownCode),
		errors.Is(err, annotation.ErrNoTranscript),
		errors.Is(err, annotation.ErrEmptyCodeName),
		errors.Is(err, analysis.ErrEmptyTranscript):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrAnalysisFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.logger.Error("Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	writeError(w, status, err.Error())
}

func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	filter := store.Filter{
		Type:  session.Type(q.Get("type")),
		Query: q.Get("q"),
	}

	if filter.Type != "" && !filter.Type.Valid() {
		return filter, fmt.Errorf("unknown session type %q", filter.Type)
	}

	for _, bound := range []struct {
		key    string
		target *time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		value := q.Get(bound.key)
		if value == "" {
			continue
		}
		parsed, err := parseDate(value)
		if err != nil {
			return filter, fmt.Errorf("invalid %s: %w", bound.key, err)
		}
		*bound.target = parsed
	}

	// A bare "to" date includes the whole day
	if v := q.Get("to"); len(v) == len("2006-01-02") && !filter.To.IsZero() {
		filter.To = filter.To.Add(24*time.Hour - time.Nanosecond)
	}

	return filter, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// handleListSessions implements GET /sessions
func (h *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sessions := h.services.Store.List(filter)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":    len(sessions),
		"sessions": sessions,
	})
}

// handleGetSession implements GET /sessions/{id}
func (h *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.services.Store.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDeleteSession implements DELETE /sessions/{id}
func (h *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Store.Delete(r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.SetSessionsStored(h.services.Store.Count())
	w.WriteHeader(http.StatusNoContent)
}

// handleExport implements GET /sessions/{id}/export
func (h *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := h.services.Store.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "session-"+sess.ID+".json"))
		writeJSON(w, http.StatusOK, sess)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "transcript-"+sess.ID+".txt"))
		io.WriteString(w, transcript.FormatText(sess.Turns()))
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("format must be 'json' or 'text', got '%s'", format))
	}
}

// handleImport implements POST /sessions/import. The body is the raw
// transcript text.
func (h *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.services.Importer == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxImportSize {
		writeError(w, http.StatusRequestEntityTooLarge, "transcript too large")
		return
	}

	language := h.services.Store.Settings().Language
	if v := r.URL.Query().Get("language"); v != "" {
		language = session.Language(v)
		if language != session.LanguageUK && language != session.LanguageUS {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid language: %q", v))
			return
		}
	}

	sess, err := h.services.Importer.ImportText(r.Context(), string(body), language)
	if err != nil {
		if sess != nil {
			// Stored in degraded form
			writeJSON(w, statusFor(err), map[string]interface{}{
				"error":   err.Error(),
				"session": sess,
			})
			return
		}
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess)
}

// handleSpans implements GET /sessions/{id}/segments/{n}/spans
func (h *HTTPServer) handleSpans(w http.ResponseWriter, r *http.Request) {
	sess, err := h.services.Store.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	index, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "segment index must be an integer")
		return
	}

	turn, err := sess.Segment(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	spans := annotation.PartitionForRender(turn.Text, annotation.AnnotationsForSegment(sess, index))
	colors := make([]string, len(spans))
	for i, span := range spans {
		if inner, ok := span.Innermost(); ok {
			colors[i] = annotation.ColorFor(sess, inner)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"segment": index,
		"turn":    turn,
		"spans":   spans,
		"colors":  colors,
	})
}

// handleCreateCode implements POST /sessions/{id}/codes
func (h *HTTPServer) handleCreateCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var created session.Code
	_, err := h.services.Store.Update(r.PathValue("id"), func(s *session.Session) error {
		code, err := annotation.CreateCode(s, req.Name, req.Color)
		created = code
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleRenameCode implements PATCH /sessions/{id}/codes/{codeId}
func (h *HTTPServer) handleRenameCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	codeID := r.PathValue("codeId")
	updated, err := h.services.Store.Update(r.PathValue("id"), func(s *session.Session) error {
		return annotation.RenameCode(s, codeID, req.Name)
	})
	if err != nil {
		if errors.Is(err, annotation.ErrUnknownCode) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.fail(w, r, err)
		return
	}

	code, _ := updated.CodeByID(codeID)
	writeJSON(w, http.StatusOK, code)
}

// handleDeleteCode implements DELETE /sessions/{id}/codes/{codeId}.
// Annotations using the code are kept.
func (h *HTTPServer) handleDeleteCode(w http.ResponseWriter, r *http.Request) {
	codeID := r.PathValue("codeId")
	_, err := h.services.Store.Update(r.PathValue("id"), func(s *session.Session) error {
		if !annotation.DeleteCode(s, codeID) {
			return fmt.Errorf("%w: %s", annotation.ErrUnknownCode, codeID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, annotation.ErrUnknownCode) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleApplyCode implements POST /sessions/{id}/annotations
func (h *HTTPServer) handleApplyCode(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var created session.Annotation
	_, err := h.services.Store.Update(r.PathValue("id"), func(s *session.Session) error {
		a, err := annotation.ApplyCode(s, req.SegmentIndex, req.StartOffset, req.EndOffset, req.CodeID)
		created = a
		return err
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// handleRemoveAnnotation implements DELETE /sessions/{id}/annotations/{annId}.
// Removing an unknown annotation succeeds.
func (h *HTTPServer) handleRemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	annotationID := r.PathValue("annId")
	_, err := h.services.Store.Update(r.PathValue("id"), func(s *session.Session) error {
		annotation.RemoveAnnotation(s, annotationID)
		return nil
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetSettings implements GET /settings
func (h *HTTPServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.services.Store.Settings())
}

// handlePutSettings implements PUT /settings
func (h *HTTPServer) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings session.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.services.Store.UpdateSettings(settings); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// handleAudio implements GET /audio/{name}
func (h *HTTPServer) handleAudio(w http.ResponseWriter, r *http.Request) {
	if h.services.Audio == nil {
		writeError(w, http.StatusServiceUnavailable, "recordings are not configured")
		return
	}

	path, err := h.services.Audio.Path(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "recording not found")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
}
