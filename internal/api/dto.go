package api

import (
	"storeviewer/internal/storage"
	"storeviewer/internal/viewer"
	"storeviewer/internal/viewer/gesture"
	"storeviewer/internal/viewer/media"
	"storeviewer/internal/viewer/reaction"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

type ImportResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Catalog DTOs

type ReviewsResponse struct {
	Reviews []media.Review `json:"reviews"`
}

type ProductsResponse struct {
	Products []media.Product `json:"products"`
}

type CartResponse struct {
	UserID string             `json:"user_id"`
	Items  []storage.CartItem `json:"items"`
}

// Viewer session DTOs

type StartRequest struct {
	Phase   string `json:"phase"`
	SlideID string `json:"slide_id"`
}

type OpenSessionRequest struct {
	UserID string       `json:"user_id"`
	Start  StartRequest `json:"start"`
}

type SessionResponse struct {
	ID     string      `json:"id"`
	UserID string      `json:"user_id"`
	View   viewer.View `json:"view"`
}

type PointerRequest struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	AtMs   int64   `json:"at_ms"` // client clock, unix millis; 0 uses server time
	Target string  `json:"target"`
}

type PointerResponse struct {
	Intent gesture.Intent `json:"intent"`
	View   viewer.View    `json:"view"`
	Closed bool           `json:"closed"`
}

type DirectionRequest struct {
	Direction string `json:"direction"`
}

type SelectMediaRequest struct {
	Index int `json:"index"`
}

type MediaKeyRequest struct {
	Key string `json:"key"`
}

type ReactionRequest struct {
	Kind    string `json:"kind"`
	SlideID string `json:"slide_id"`
}

type CartRequest struct {
	SlideID string `json:"slide_id"`
}

type SeekRequest struct {
	PositionMs int64 `json:"position_ms"`
}

type ProgressRequest struct {
	Key        string `json:"key"`
	CurrentMs  int64  `json:"current_ms"`
	DurationMs int64  `json:"duration_ms"`
}

type NotificationsResponse struct {
	Notifications []reaction.Notification `json:"notifications"`
}
