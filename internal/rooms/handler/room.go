package handler

import (
	"encoding/json"
	"net/http"

	"roomly/internal/identity"
	"roomly/internal/rooms/service"
	apperrors "roomly/pkg/errors"
	httputil "roomly/pkg/http"
	"roomly/pkg/logger"
	"roomly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service  service.RoomService
	identity identity.Provider
	log      *logger.Logger
}

func NewRoomHandler(svc service.RoomService, provider identity.Provider, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service:  svc,
		identity: provider,
		log:      log,
	}
}

type checkInResponse struct {
	RoomID     string `json:"roomId"`
	BookingEnd string `json:"bookingEnd"`
}

type releaseRequest struct {
	RoomID string `json:"roomId"`
}

func (h *RoomHandler) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.currentUser(w, r, "CheckIn")
	if err != nil {
		return
	}

	var req model.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "CheckIn", apperrors.InvalidInput("Invalid request body"))
		return
	}

	occ, err := h.service.CheckIn(r.Context(), user.ID, &req)
	if err != nil {
		h.writeError(w, "CheckIn", err)
		return
	}

	if err := httputil.WriteSuccess(w, checkInResponse{
		RoomID:     occ.RoomID,
		BookingEnd: occ.BookingEnd.Format(timeFormat),
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckIn", "error", err)
	}
}

func (h *RoomHandler) Release(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.currentUser(w, r, "Release")
	if err != nil {
		return
	}

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Release", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Release(r.Context(), user.ID, req.RoomID); err != nil {
		h.writeError(w, "Release", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	statuses, err := h.service.ListRooms(r.Context())
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if statuses == nil {
		statuses = []model.RoomStatus{}
	}
	if err := httputil.WriteSuccess(w, statuses); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "error", err)
	}
}

func (h *RoomHandler) currentUser(w http.ResponseWriter, r *http.Request, op string) (*identity.User, error) {
	user, err := h.identity.CurrentUser(r.Context(), identity.FromRequest(r))
	if err != nil {
		h.writeError(w, op, err)
		return nil, err
	}
	return user, nil
}

func (h *RoomHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/room/check-in", h.CheckIn)
	router.POST("/room/release", h.Release)
	router.GET("/rooms", h.List)
}
