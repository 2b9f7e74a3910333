package handler

import (
	"encoding/json"
	"net/http"

	"roomly/internal/sessions/service"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// demoUserID stands in for the approving identity when the confirming client
// does not send one, mirroring the anonymous-pairing demo flow.
const demoUserID = "demo-user-123"

type SessionHandler struct {
	service service.SessionService
	log     *logger.Logger
}

func NewSessionHandler(service service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		log:     log,
	}
}

type startResponse struct {
	Token string `json:"token"`
	TTLMs int64  `json:"ttlMs"`
}

type statusResponse struct {
	Status string  `json:"status"`
	UserID *string `json:"userId"`
}

type approveRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	session, err := h.service.Start(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Start", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, startResponse{
		Token: session.Token,
		TTLMs: session.TTL.Milliseconds(),
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Start", "error", err)
	}
}

func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("token query parameter is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Status", "error", writeErr)
		}
		return
	}

	session, err := h.service.Get(r.Context(), token)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Status", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, toStatusResponse(session)); err != nil {
		h.log.Error("failed to write success response", "handler", "Status", "error", err)
	}
}

func (h *SessionHandler) Approve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Approve", "error", writeErr)
		}
		return
	}

	if req.UserID == "" {
		req.UserID = demoUserID
	}

	session, err := h.service.Approve(r.Context(), req.Token, req.UserID)
	if err != nil {
		// The approve endpoint contracts every rejection to a 400, whatever
		// the underlying error kind (unknown, expired, already resolved).
		appErr := apperrors.AsAppError(err)
		if appErr.Code != apperrors.CodeInternal {
			appErr = apperrors.New(appErr.Code, appErr.Message, http.StatusBadRequest)
		}
		if writeErr := httputil.WriteError(w, appErr); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Approve", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, toStatusResponse(session)); err != nil {
		h.log.Error("failed to write success response", "handler", "Approve", "error", err)
	}
}

func toStatusResponse(session model.ClaimSession) statusResponse {
	resp := statusResponse{Status: session.Status}
	if session.UserID != "" {
		resp.UserID = &session.UserID
	}
	return resp
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/session/start", h.Start)
	router.GET("/session/status", h.Status)
	router.POST("/session/approve", h.Approve)
}
