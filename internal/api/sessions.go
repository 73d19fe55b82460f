package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storeviewer/internal/session"
	"storeviewer/internal/viewer"
	"storeviewer/internal/viewer/feed"
	"storeviewer/internal/viewer/gesture"
	"storeviewer/internal/viewer/reaction"
)

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "user_id is required")
		return
	}

	start := feed.Start{Phase: feed.Phase(req.Start.Phase), SlideID: req.Start.SlideID}
	s, view, err := h.sessions.Open(r.Context(), req.UserID, start)
	if err != nil {
		h.sessionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SessionResponse{ID: s.ID, UserID: s.UserID, View: view})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeView(w, s, s.Viewer.Snapshot())
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	reason := viewer.CloseReason(r.URL.Query().Get("reason"))
	switch reason {
	case "":
		reason = viewer.CloseControl
	case viewer.CloseControl, viewer.CloseBackdrop, viewer.CloseNavigation, viewer.CloseSwipe:
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Unknown close reason")
		return
	}

	if err := h.sessions.Close(chi.URLParam(r, "id"), reason); err != nil {
		h.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Pointer(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req PointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}

	p := gesture.Pointer{
		Type:   gesture.PointerType(req.Type),
		X:      req.X,
		Y:      req.Y,
		Target: gesture.TargetContent,
	}
	switch p.Type {
	case gesture.PointerDown, gesture.PointerMove, gesture.PointerUp, gesture.PointerCancel:
	default:
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Unknown pointer type")
		return
	}
	if req.Target == string(gesture.TargetControl) {
		p.Target = gesture.TargetControl
	}
	if req.AtMs > 0 {
		p.At = time.UnixMilli(req.AtMs)
	}

	intent, view := s.Viewer.HandlePointer(p)
	writeJSON(w, http.StatusOK, PointerResponse{
		Intent: intent,
		View:   view,
		Closed: intent.Kind == gesture.IntentClose,
	})
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	s, dir, ok := h.sessionAndDirection(w, r)
	if !ok {
		return
	}
	h.writeView(w, s, s.Viewer.Advance(dir))
}

func (h *Handler) AdvanceMedia(w http.ResponseWriter, r *http.Request) {
	s, dir, ok := h.sessionAndDirection(w, r)
	if !ok {
		return
	}
	h.writeView(w, s, s.Viewer.AdvanceMedia(dir))
}

func (h *Handler) SelectMedia(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectMediaRequest
	if !decode(w, r, &req) {
		return
	}
	h.writeView(w, s, s.Viewer.SelectMedia(req.Index))
}

func (h *Handler) MediaError(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MediaKeyRequest
	if !decode(w, r, &req) {
		return
	}
	h.writeView(w, s, s.Viewer.MediaFailed(req.Key))
}

func (h *Handler) React(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ReactionRequest
	if !decode(w, r, &req) {
		return
	}

	view, err := s.Viewer.ToggleReaction(req.SlideID, reaction.Kind(req.Kind))
	if err != nil {
		h.sessionError(w, err)
		return
	}
	h.writeView(w, s, view)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req CartRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	view, err := s.Viewer.AddToCart(req.SlideID)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	h.writeView(w, s, view)
}

func (h *Handler) TogglePlay(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := s.Viewer.TogglePlay()
	if err != nil {
		if errors.Is(err, viewer.ErrNotOpen) {
			h.sessionError(w, err)
			return
		}
		// playback failures degrade to a placeholder in the view
		h.logger.Debug().Err(err).Str("session", s.ID).Msg("play failed")
	}
	h.writeView(w, s, view)
}

func (h *Handler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeView(w, s, s.Viewer.ToggleMute())
}

func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SeekRequest
	if !decode(w, r, &req) {
		return
	}
	h.writeView(w, s, s.Viewer.Seek(time.Duration(req.PositionMs)*time.Millisecond))
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ProgressRequest
	if !decode(w, r, &req) {
		return
	}
	h.writeView(w, s, s.Viewer.ReportProgress(req.Key,
		time.Duration(req.CurrentMs)*time.Millisecond,
		time.Duration(req.DurationMs)*time.Millisecond,
	))
}

func (h *Handler) Ended(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MediaKeyRequest
	if !decode(w, r, &req) {
		return
	}
	h.writeView(w, s, s.Viewer.ReportEnded(req.Key))
}

func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: s.Notifications()})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.sessionError(w, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) sessionAndDirection(w http.ResponseWriter, r *http.Request) (*session.Session, feed.Direction, bool) {
	s, ok := h.session(w, r)
	if !ok {
		return nil, "", false
	}
	var req DirectionRequest
	if !decode(w, r, &req) {
		return nil, "", false
	}
	dir := feed.Direction(req.Direction)
	if !dir.Valid() {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "direction must be next or prev")
		return nil, "", false
	}
	return s, dir, true
}

func (h *Handler) writeView(w http.ResponseWriter, s *session.Session, view viewer.View) {
	writeJSON(w, http.StatusOK, SessionResponse{ID: s.ID, UserID: s.UserID, View: view})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Viewer session not found")
	case errors.Is(err, session.ErrTooManySessions):
		writeError(w, http.StatusServiceUnavailable, "TOO_MANY_SESSIONS", err.Error())
	case errors.Is(err, feed.ErrEmptyFeed):
		writeError(w, http.StatusUnprocessableEntity, "EMPTY_FEED", "Nothing to show")
	case errors.Is(err, viewer.ErrNotOpen):
		writeError(w, http.StatusConflict, "VIEWER_CLOSED", "Viewer is closed")
	case errors.Is(err, viewer.ErrWrongSlide):
		writeError(w, http.StatusUnprocessableEntity, "ACTION_NOT_AVAILABLE", err.Error())
	case errors.Is(err, viewer.ErrOutOfStock):
		writeError(w, http.StatusConflict, "OUT_OF_STOCK", "Product is out of stock")
	case errors.Is(err, reaction.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, reaction.ErrUnknownEntity):
		writeError(w, http.StatusNotFound, "SLIDE_NOT_FOUND", err.Error())
	default:
		h.logger.Error().Err(err).Msg("viewer session request failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Request failed")
	}
}
