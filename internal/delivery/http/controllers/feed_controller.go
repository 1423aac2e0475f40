package controllers

import (
	"log/slog"
	"net/http"

	"stepout/internal/delivery/http/helpers"
	"stepout/internal/domain"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 100
)

// FeedSuccessResponse is the success response envelope for GET /feed (200).
type FeedSuccessResponse struct {
	Data  *domain.Feed      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type FeedController struct {
	Logger  *slog.Logger
	Service domain.FeedService
}

func NewFeedController(logger *slog.Logger, svc domain.FeedService) *FeedController {
	return &FeedController{
		Logger:  logger,
		Service: svc,
	}
}

// ListFeed godoc
// @Summary List the caller's feed
// @Description Merges owned, public and invited events, newest start first, each annotated with the caller's attendance. friends.source tells real friends from inferred contacts.
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max events (default 50, max 100)"
// @Param visibility query string false "public or invite-only"
// @Param from query string false "Earliest start (RFC 3339)"
// @Param to query string false "Latest start (RFC 3339)"
// @Param before query string false "Cursor: only events starting before this instant (RFC 3339)"
// @Success 200 {object} controllers.FeedSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /feed [get]
func (c *FeedController) ListFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	q := domain.EventListQuery{
		Limit:      helpers.ParseLimit(r, defaultFeedLimit, maxFeedLimit),
		Visibility: domain.Visibility(r.URL.Query().Get("visibility")),
	}
	var err error
	if q.From, err = helpers.ParseTimeParam(r, "from"); err == nil {
		if q.To, err = helpers.ParseTimeParam(r, "to"); err == nil {
			q.Before, err = helpers.ParseTimeParam(r, "before")
		}
	}
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	feed, err := c.Service.ListFeed(r.Context(), userID, q)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, feed)
}
