package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"stepout/internal/delivery/http/helpers"
	"stepout/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title         string            `json:"title" validate:"required,max=200"`
	Description   *string           `json:"description" validate:"omitempty,max=5000"`
	StartsAt      time.Time         `json:"starts_at" validate:"required"`
	EndsAt        time.Time         `json:"ends_at" validate:"required"`
	Location      string            `json:"location" validate:"required,max=500"`
	Geo           *domain.GeoPoint  `json:"geo"`
	Visibility    domain.Visibility `json:"visibility" validate:"required,oneof=public invite-only"`
	GuestCap      *int              `json:"guest_cap" validate:"omitempty,gt=0"`
	CoverImageRef *string           `json:"cover_image_ref"`
}

// Validate implements helpers.Validator for rules spanning several fields.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if !c.StartsAt.IsZero() && !c.EndsAt.IsZero() && !c.EndsAt.After(c.StartsAt) {
		errs = append(errs, "ends_at must be after starts_at")
	}
	if c.Geo != nil && !c.Geo.Valid() {
		errs = append(errs, "geo must have lat in [-90, 90] and lng in [-180, 180]")
	}
	return errs
}

// CreateEventResponse is the data of a successful POST /events.
type CreateEventResponse struct {
	EventID string        `json:"event_id"`
	Event   *domain.Event `json:"event"`
}

// CreateEventSuccessResponse is the success response envelope for POST /events (201).
type CreateEventSuccessResponse struct {
	Data  CreateEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

type EventController struct {
	Logger      *slog.Logger
	Events      domain.EventService
	Memberships domain.MembershipService
}

func NewEventController(logger *slog.Logger, events domain.EventService, memberships domain.MembershipService) *EventController {
	return &EventController{
		Logger:      logger,
		Events:      events,
		Memberships: memberships,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Creates an event owned by the caller together with the host membership and the event chat.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event fields"
// @Success 201 {object} controllers.CreateEventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Events.CreateEvent(r.Context(), userID, domain.NewEventInput{
		Title:         req.Title,
		Description:   req.Description,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Location:      req.Location,
		Geo:           req.Geo,
		Visibility:    req.Visibility,
		GuestCap:      req.GuestCap,
		CoverImageRef: req.CoverImageRef,
	})
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, CreateEventResponse{EventID: event.ID, Event: event})
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. Omitted fields are unchanged.
type UpdateEventRequest struct {
	Title          *string            `json:"title" validate:"omitempty,max=200"`
	Description    *string            `json:"description" validate:"omitempty,max=5000"`
	StartsAt       *time.Time         `json:"starts_at"`
	EndsAt         *time.Time         `json:"ends_at"`
	Location       *string            `json:"location" validate:"omitempty,max=500"`
	Geo            *domain.GeoPoint   `json:"geo"`
	Visibility     *domain.Visibility `json:"visibility" validate:"omitempty,oneof=public invite-only"`
	GuestCap       *int               `json:"guest_cap" validate:"omitempty,gt=0"`
	CoverImageRef  *string            `json:"cover_image_ref"`
	InvitedUserIDs []string           `json:"invited_user_ids"`
}

func (u UpdateEventRequest) patch() domain.EventPatch {
	return domain.EventPatch{
		Title:          u.Title,
		Description:    u.Description,
		StartsAt:       u.StartsAt,
		EndsAt:         u.EndsAt,
		Location:       u.Location,
		Geo:            u.Geo,
		Visibility:     u.Visibility,
		GuestCap:       u.GuestCap,
		CoverImageRef:  u.CoverImageRef,
		InvitedUserIDs: u.InvitedUserIDs,
	}
}

// UpdateEventResponse is the data of a successful PATCH /events/{eventID}.
type UpdateEventResponse struct {
	EventID       string        `json:"event_id"`
	AppliedFields []string      `json:"applied_fields"`
	Event         *domain.Event `json:"event"`
}

// UpdateEventSuccessResponse is the success response envelope for PATCH /events/{eventID} (200).
type UpdateEventSuccessResponse struct {
	Data  UpdateEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// UpdateEvent godoc
// @Summary Update event fields
// @Description Applies only the supplied fields. starts_at and ends_at must be changed together. Owner only.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body UpdateEventRequest true "Fields to update"
// @Success 200 {object} controllers.UpdateEventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathParam(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, fields, err := c.Events.UpdateEvent(r.Context(), userID, eventID, req.patch())
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, UpdateEventResponse{EventID: event.ID, AppliedFields: fields, Event: event})
}

// DeleteEventResponse is the data of a successful DELETE /events/{eventID}.
type DeleteEventResponse struct {
	EventID    string `json:"event_id"`
	HardDelete bool   `json:"hard_delete"`
}

// DeleteEvent godoc
// @Summary Cancel or delete an event
// @Description Without hard=true the event is canceled and its chat archived; with hard=true the event and its memberships are removed. Owner only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param hard query bool false "Hard delete (default false)"
// @Success 200 {object} helpers.APIResponse "data: DeleteEventResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathParam(w, r, "eventID")
	if !ok {
		return
	}
	hard, err := helpers.ParseBoolParam(r, "hard", false)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, err := c.Events.DeleteEvent(r.Context(), userID, eventID, hard)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{EventID: event.ID, HardDelete: hard})
}

// ShareEventRequest is the request body for POST /events/{eventID}/share.
type ShareEventRequest struct {
	RecipientIDs []string `json:"recipient_ids" validate:"required,min=1,max=100,dive,required"`
}

// ShareEventResponse is the data of a successful share.
type ShareEventResponse struct {
	EventID         string `json:"event_id"`
	SharedWithCount int    `json:"shared_with_count"`
}

// ShareEvent godoc
// @Summary Share an event with friends
// @Description Adds the recipients to the event's invited identities. Allowed for the owner and for members.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body ShareEventRequest true "Recipients"
// @Success 200 {object} helpers.APIResponse "data: ShareEventResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 412 {object} helpers.APIResponse "error.code: failed_precondition (event canceled)"
// @Router /events/{eventID}/share [post]
func (c *EventController) ShareEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathParam(w, r, "eventID")
	if !ok {
		return
	}
	var req ShareEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	event, n, err := c.Events.ShareEvent(r.Context(), userID, eventID, req.RecipientIDs)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ShareEventResponse{EventID: event.ID, SharedWithCount: n})
}

// RSVPRequest is the request body for POST /events/{eventID}/rsvp.
type RSVPRequest struct {
	Status      string     `json:"status" validate:"required,oneof=going interested declined"`
	ArrivalTime *time.Time `json:"arrival_time"`
	IDVariants  []string   `json:"id_variants" validate:"omitempty,max=10"`
}

// RSVPResponse is the data of a successful RSVP.
type RSVPResponse struct {
	OK     bool                `json:"ok"`
	Member *domain.EventMember `json:"member"`
}

// RSVP godoc
// @Summary RSVP to an event
// @Description Records the caller's attendance. Going adds the caller to the event chat once.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body RSVPRequest true "RSVP"
// @Success 200 {object} helpers.APIResponse "data: RSVPResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 412 {object} helpers.APIResponse "error.code: failed_precondition (canceled or full)"
// @Router /events/{eventID}/rsvp [post]
func (c *EventController) RSVP(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathParam(w, r, "eventID")
	if !ok {
		return
	}
	var req RSVPRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	status, err := domain.ParseRSVPStatus(req.Status)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	member, err := c.Memberships.RSVP(r.Context(), userID, domain.RSVPInput{
		EventID:     eventID,
		Status:      status,
		ArrivalTime: req.ArrivalTime,
		IDVariants:  req.IDVariants,
	})
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RSVPResponse{OK: true, Member: member})
}

// RSVPStatusResponse is the data of GET /events/{eventID}/rsvp. Status is "none" without a record.
type RSVPStatusResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// GetRSVP godoc
// @Summary Get the caller's RSVP state
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data: RSVPStatusResponse"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/rsvp [get]
func (c *EventController) GetRSVP(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathParam(w, r, "eventID")
	if !ok {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	status, err := c.Memberships.Status(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RSVPStatusResponse{EventID: domain.CanonicalID(eventID), Status: status.String()})
}
