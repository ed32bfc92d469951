package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/flexspace/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	ListReservations(ctx context.Context, params application.ListReservationsParams) ([]application.Reservation, error)
	GetReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	CancelReservation(ctx context.Context, principal application.Principal, id string) (application.Reservation, error)
	CheckAvailability(ctx context.Context, params application.CheckAvailabilityParams) (application.Availability, error)
}

// ReservationHandler serves bookings.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, end, vErr := parseSlot(req.SpaceID, req.StartTime, req.EndTime)
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	logger := h.log(r.Context(), "Create",
		"space_id", req.SpaceID,
		"override", req.OverrideConflict,
	)
	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal: principal,
		Input: application.ReservationInput{
			SpaceID:          strings.TrimSpace(req.SpaceID),
			StartTime:        start,
			EndTime:          end,
			OverrideConflict: req.OverrideConflict,
		},
	})
	if err != nil {
		logger.WarnContext(r.Context(), "reservation rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", reservation.ID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params, vErr := parseReservationQuery(r, principal)
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	reservations, err := h.service.ListReservations(r.Context(), params)
	if err != nil {
		h.log(r.Context(), "List").WarnContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTOs(reservations))
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.GetReservation(r.Context(), principal, id)
	if err != nil {
		h.log(r.Context(), "Get", "reservation_id", id).WarnContext(r.Context(), "reservation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id := chi.URLParam(r, "id")
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Cancel", "reservation_id", id)
	reservation, err := h.service.CancelReservation(r.Context(), principal, id)
	if err != nil {
		logger.WarnContext(r.Context(), "cancellation rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "CheckAvailability", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode availability request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, end, vErr := parseSlot(req.SpaceID, req.StartTime, req.EndTime)
	if vErr != nil {
		h.responder.handleServiceError(r.Context(), w, vErr)
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), application.CheckAvailabilityParams{
		Principal: principal,
		SpaceID:   strings.TrimSpace(req.SpaceID),
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		h.log(r.Context(), "CheckAvailability", "space_id", req.SpaceID).WarnContext(r.Context(), "availability check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Available: availability.Available,
		Space: availabilitySpaceDTO{
			ID:       availability.Space.ID,
			Name:     availability.Space.Name,
			Type:     string(availability.Space.Type),
			Capacity: availability.Space.Capacity,
		},
		RequestedSlot: slotDTO{
			StartTime: formatTime(availability.StartTime),
			EndTime:   formatTime(availability.EndTime),
		},
		ConflictingReservations: toConflictDTOs(availability.Conflicts),
	})
}

func parseSlot(spaceID, startValue, endValue string) (time.Time, time.Time, *application.ValidationError) {
	fieldErrors := map[string]string{}
	if strings.TrimSpace(spaceID) == "" {
		fieldErrors["spaceId"] = "spaceId is required"
	}
	start, err := parseTime(startValue)
	if err != nil {
		fieldErrors["startTime"] = "startTime must be an ISO-8601 date-time"
	}
	end, err := parseTime(endValue)
	if err != nil {
		fieldErrors["endTime"] = "endTime must be an ISO-8601 date-time"
	}

	if len(fieldErrors) > 0 {
		return time.Time{}, time.Time{}, &application.ValidationError{
			Reason:      application.ReasonInvalidInput,
			Message:     "invalid reservation request",
			FieldErrors: fieldErrors,
		}
	}
	return start, end, nil
}

func parseReservationQuery(r *http.Request, principal application.Principal) (application.ListReservationsParams, *application.ValidationError) {
	params := application.ListReservationsParams{Principal: principal}
	query := r.URL.Query()
	fieldErrors := map[string]string{}

	if v := strings.TrimSpace(query.Get("status")); v != "" {
		status, ok := application.ParseReservationStatus(v)
		if ok {
			params.Status = &status
		} else {
			fieldErrors["status"] = "status must be one of ACTIVE, CANCELLED, COMPLETED"
		}
	}
	params.UserID = optionalQuery(query.Get("userId"))
	params.SpaceID = optionalQuery(query.Get("spaceId"))

	for _, field := range []struct {
		name string
		dst  **time.Time
	}{
		{name: "startDate", dst: &params.StartDate},
		{name: "endDate", dst: &params.EndDate},
	} {
		v := strings.TrimSpace(query.Get(field.name))
		if v == "" {
			continue
		}
		t, err := parseTime(v)
		if err != nil {
			fieldErrors[field.name] = field.name + " must be an ISO-8601 date-time"
			continue
		}
		*field.dst = &t
	}

	if len(fieldErrors) > 0 {
		return params, &application.ValidationError{
			Reason:      application.ReasonInvalidInput,
			Message:     "invalid reservation query",
			FieldErrors: fieldErrors,
		}
	}
	return params, nil
}

type createReservationRequest struct {
	SpaceID          string `json:"spaceId"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	OverrideConflict bool   `json:"overrideConflict"`
}

type availabilityRequest struct {
	SpaceID   string `json:"spaceId"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type availabilityResponse struct {
	Available               bool                 `json:"available"`
	Space                   availabilitySpaceDTO `json:"space"`
	RequestedSlot           slotDTO              `json:"requestedSlot"`
	ConflictingReservations []conflictDTO        `json:"conflictingReservations"`
}

type availabilitySpaceDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
}

type slotDTO struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}
