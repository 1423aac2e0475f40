package http

import (
	"log/slog"
	"net/http"

	"stepout/internal/delivery/http/controllers"
	"stepout/internal/delivery/http/middleware"
	"stepout/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Events  *controllers.EventController
	Feed    *controllers.FeedController
	Friends *controllers.FriendController
	Chats   *controllers.ChatController
	Health  *controllers.HealthController
}

// NewRouter registers every route. All routes except /health and /swagger/ require a bearer token.
func NewRouter(c Controllers, verifier domain.TokenVerifier, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)

	// Events
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(c.Events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(c.Events.DeleteEvent))
	mux.HandleFunc("POST /events/{eventID}/rsvp", auth(c.Events.RSVP))
	mux.HandleFunc("GET /events/{eventID}/rsvp", auth(c.Events.GetRSVP))
	mux.HandleFunc("POST /events/{eventID}/share", auth(c.Events.ShareEvent))

	// Feed
	mux.HandleFunc("GET /feed", auth(c.Feed.ListFeed))

	// Friends
	mux.HandleFunc("GET /friends", auth(c.Friends.ListFriends))
	mux.HandleFunc("POST /friends/requests", auth(c.Friends.SendFriendRequest))
	mux.HandleFunc("POST /friends/requests/{inviteID}/respond", auth(c.Friends.RespondToFriendRequest))
	mux.HandleFunc("POST /friends/invites", auth(c.Friends.InviteFriend))

	// Chats
	mux.HandleFunc("GET /chats", auth(c.Chats.ListChats))
	mux.HandleFunc("GET /chats/{chatID}/messages", auth(c.Chats.GetMessages))
	mux.HandleFunc("POST /chats/{chatID}/messages", auth(c.Chats.SendMessage))

	mux.HandleFunc("GET /health", c.Health.Health)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// Wrap applies the cross-cutting middleware chain around the router.
func Wrap(h http.Handler, allowedOrigins []string, logger *slog.Logger) http.Handler {
	return middleware.RequestID(middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, h)))
}
