package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"stepout/internal/delivery/http/helpers"
	"stepout/internal/domain"
)

type FriendController struct {
	Logger  *slog.Logger
	Service domain.FriendService
}

func NewFriendController(logger *slog.Logger, svc domain.FriendService) *FriendController {
	return &FriendController{
		Logger:  logger,
		Service: svc,
	}
}

// FriendRequestRequest is the request body for POST /friends/requests.
type FriendRequestRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,max=128"`
}

// FriendRequestResponse is the data of a created friend request.
type FriendRequestResponse struct {
	InviteID string              `json:"invite_id"`
	Status   domain.InviteStatus `json:"status"`
}

// SendFriendRequest godoc
// @Summary Send a friend request
// @Tags friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body FriendRequestRequest true "Recipient"
// @Success 201 {object} helpers.APIResponse "data: FriendRequestResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request (self request)"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown recipient)"
// @Failure 409 {object} helpers.APIResponse "error.code: already_exists"
// @Router /friends/requests [post]
func (c *FriendController) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req FriendRequestRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.SendFriendRequest(r.Context(), userID, req.RecipientID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, FriendRequestResponse{InviteID: inv.ID, Status: inv.Status})
}

// InviteFriendRequest is the request body for POST /friends/invites. One contact is required.
type InviteFriendRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone" validate:"omitempty,max=32"`
}

// Validate implements helpers.Validator.
func (i InviteFriendRequest) Validate() []string {
	if (i.Email == nil || strings.TrimSpace(*i.Email) == "") && (i.Phone == nil || strings.TrimSpace(*i.Phone) == "") {
		return []string{"email or phone is required"}
	}
	return nil
}

// InviteFriend godoc
// @Summary Invite a contact
// @Description Issues a friend invite addressed by email or phone. Known contacts are resolved to their account; an email is sent when an address is given.
// @Tags friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body InviteFriendRequest true "Contact"
// @Success 201 {object} helpers.APIResponse "data: FriendInvite"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 409 {object} helpers.APIResponse "error.code: already_exists"
// @Router /friends/invites [post]
func (c *FriendController) InviteFriend(w http.ResponseWriter, r *http.Request) {
	var req InviteFriendRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.InviteByContact(r.Context(), userID, domain.InviteContact{Email: req.Email, Phone: req.Phone})
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, inv)
}

// RespondFriendRequestRequest is the request body for POST /friends/requests/{inviteID}/respond.
type RespondFriendRequestRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// RespondFriendRequestResponse is the data of a response. FriendID is set when accepted.
type RespondFriendRequestResponse struct {
	Status   domain.InviteStatus `json:"status"`
	FriendID string              `json:"friend_id,omitempty"`
}

// RespondToFriendRequest godoc
// @Summary Accept or decline a friend request
// @Tags friends
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param inviteID path string true "Invite ID"
// @Param body body RespondFriendRequestRequest true "Decision"
// @Success 200 {object} helpers.APIResponse "data: RespondFriendRequestResponse"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not the recipient)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 412 {object} helpers.APIResponse "error.code: failed_precondition (not pending)"
// @Router /friends/requests/{inviteID}/respond [post]
func (c *FriendController) RespondToFriendRequest(w http.ResponseWriter, r *http.Request) {
	inviteID, ok := pathParam(w, r, "inviteID")
	if !ok {
		return
	}
	var req RespondFriendRequestRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	inv, err := c.Service.RespondToFriendRequest(r.Context(), userID, inviteID, *req.Accept)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	resp := RespondFriendRequestResponse{Status: inv.Status}
	if inv.Status == domain.InviteAccepted {
		resp.FriendID = inv.SenderID
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, resp)
}

// ListFriendsSuccessResponse is the success response envelope for GET /friends (200).
type ListFriendsSuccessResponse struct {
	Data  *domain.FriendList `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

// ListFriends godoc
// @Summary List friends and pending invites
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Param include_invites query bool false "Include pending invites (default true)"
// @Success 200 {object} controllers.ListFriendsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /friends [get]
func (c *FriendController) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	includeInvites, err := helpers.ParseBoolParam(r, "include_invites", true)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	list, err := c.Service.ListFriends(r.Context(), userID, includeInvites)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}
