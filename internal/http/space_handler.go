package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/flexspace/internal/application"
)

// Opening hours applied when a creation request omits them.
const (
	defaultOpenTime  = "08:00"
	defaultCloseTime = "20:00"
)

type spaceService interface {
	CreateSpace(ctx context.Context, params application.CreateSpaceParams) (application.Space, error)
	ListSpaces(ctx context.Context, filter application.SpaceFilter) ([]application.Space, error)
	GetSpace(ctx context.Context, id string) (application.SpaceDetail, error)
	UpdateSpace(ctx context.Context, params application.UpdateSpaceParams) (application.Space, error)
	DeleteSpace(ctx context.Context, principal application.Principal, id string) error
	Statistics(ctx context.Context, principal application.Principal, id string) (application.SpaceStatistics, error)
}

// SpaceHandler serves the space catalog.
type SpaceHandler struct {
	service   spaceService
	responder responder
	logger    *slog.Logger
}

func NewSpaceHandler(service spaceService, logger *slog.Logger) *SpaceHandler {
	base := defaultLogger(logger)
	return &SpaceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SpaceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SpaceHandler", operation, attrs...)
}

func (h *SpaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createSpaceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode space request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")
	space, err := h.service.CreateSpace(r.Context(), application.CreateSpaceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "space creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("space_id", space.ID).InfoContext(r.Context(), "space created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSpaceDTO(space))
}

func (h *SpaceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filter, err := parseSpaceFilter(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	spaces, err := h.service.ListSpaces(r.Context(), filter)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "space list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSpaceDTOs(spaces))
}

func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	detail, err := h.service.GetSpace(r.Context(), id)
	if err != nil {
		h.log(r.Context(), "Get", "space_id", id).WarnContext(r.Context(), "space lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSpaceDetailDTO(detail))
}

func (h *SpaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())

	var req updateSpaceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "space_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode space update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "space_id", id)
	space, err := h.service.UpdateSpace(r.Context(), application.UpdateSpaceParams{
		Principal: principal,
		SpaceID:   id,
		Patch:     req.toPatch(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "space update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "space updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSpaceDTO(space))
}

func (h *SpaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "space_id", id)
	if err := h.service.DeleteSpace(r.Context(), principal, id); err != nil {
		logger.WarnContext(r.Context(), "space delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "space deactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SpaceHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	stats, err := h.service.Statistics(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Statistics", "space_id", id).WarnContext(r.Context(), "statistics failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, statisticsResponse{
		Space: toSpaceDetailDTO(stats.Space),
		Statistics: statisticsDTO{
			TotalReservations:    stats.TotalReservations,
			ReservationsThisWeek: stats.ReservationsThisWeek,
			WeekStart:            formatTime(stats.WeekStart),
		},
	})
}

func parseSpaceFilter(r *http.Request) (application.SpaceFilter, error) {
	var filter application.SpaceFilter
	query := r.URL.Query()

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		spaceType, ok := application.ParseSpaceType(v)
		if !ok {
			return filter, fmt.Errorf("type must be one of DESK, MEETING_ROOM, COLLABORATIVE_SPACE")
		}
		filter.Type = &spaceType
	}
	if v := strings.TrimSpace(query.Get("capacity")); v != "" {
		capacity, err := strconv.Atoi(v)
		if err != nil || capacity < 1 {
			return filter, fmt.Errorf("capacity must be a positive integer")
		}
		filter.MinCapacity = &capacity
	}
	filter.Floor = optionalQuery(query.Get("floor"))
	filter.Building = optionalQuery(query.Get("building"))
	filter.Search = optionalQuery(query.Get("search"))
	return filter, nil
}

func optionalQuery(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type createSpaceRequest struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Capacity  int     `json:"capacity"`
	Floor     *string `json:"floor"`
	Building  *string `json:"building"`
	OpenTime  string  `json:"openTime"`
	CloseTime string  `json:"closeTime"`
}

func (r createSpaceRequest) toInput() application.SpaceInput {
	in := application.SpaceInput{
		Name:      strings.TrimSpace(r.Name),
		Type:      strings.TrimSpace(r.Type),
		Capacity:  r.Capacity,
		Floor:     r.Floor,
		Building:  r.Building,
		OpenTime:  strings.TrimSpace(r.OpenTime),
		CloseTime: strings.TrimSpace(r.CloseTime),
	}
	if in.OpenTime == "" {
		in.OpenTime = defaultOpenTime
	}
	if in.CloseTime == "" {
		in.CloseTime = defaultCloseTime
	}
	return in
}

type updateSpaceRequest struct {
	Name      *string `json:"name"`
	Type      *string `json:"type"`
	Capacity  *int    `json:"capacity"`
	Floor     *string `json:"floor"`
	Building  *string `json:"building"`
	OpenTime  *string `json:"openTime"`
	CloseTime *string `json:"closeTime"`
	IsActive  *bool   `json:"isActive"`
}

func (r updateSpaceRequest) toPatch() application.SpacePatch {
	return application.SpacePatch{
		Name:      r.Name,
		Type:      r.Type,
		Capacity:  r.Capacity,
		Floor:     r.Floor,
		Building:  r.Building,
		OpenTime:  r.OpenTime,
		CloseTime: r.CloseTime,
		IsActive:  r.IsActive,
	}
}

type statisticsResponse struct {
	Space      spaceDTO      `json:"space"`
	Statistics statisticsDTO `json:"statistics"`
}

type statisticsDTO struct {
	TotalReservations    int    `json:"totalReservations"`
	ReservationsThisWeek int    `json:"reservationsThisWeek"`
	WeekStart            string `json:"weekStart"`
}
