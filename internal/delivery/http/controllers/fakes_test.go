package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stepout/internal/delivery/http/helpers"
	"stepout/internal/delivery/http/middleware"
	"stepout/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// newRequest builds a request with an optional JSON body and, when userID is set, an authenticated context.
func newRequest(method, target, body, userID string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	return req
}

// serve routes req through a mux so path values are populated.
func serve(pattern string, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Data  json.RawMessage   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	if data != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Error
}

type fakeEventService struct {
	event        *domain.Event
	fields       []string
	sharedCount  int
	err          error
	lastCaller   string
	lastEventID  string
	lastInput    domain.NewEventInput
	lastPatch    domain.EventPatch
	lastHard     bool
	lastShareIDs []string
}

func (f *fakeEventService) CreateEvent(_ context.Context, callerID string, in domain.NewEventInput) (*domain.Event, error) {
	f.lastCaller, f.lastInput = callerID, in
	return f.event, f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, callerID, eventID string, patch domain.EventPatch) (*domain.Event, []string, error) {
	f.lastCaller, f.lastEventID, f.lastPatch = callerID, eventID, patch
	return f.event, f.fields, f.err
}

func (f *fakeEventService) DeleteEvent(_ context.Context, callerID, eventID string, hard bool) (*domain.Event, error) {
	f.lastCaller, f.lastEventID, f.lastHard = callerID, eventID, hard
	return f.event, f.err
}

func (f *fakeEventService) ShareEvent(_ context.Context, callerID, eventID string, ids []string) (*domain.Event, int, error) {
	f.lastCaller, f.lastEventID, f.lastShareIDs = callerID, eventID, ids
	return f.event, f.sharedCount, f.err
}

type fakeMembershipService struct {
	member    *domain.EventMember
	status    domain.RSVPStatus
	err       error
	lastInput domain.RSVPInput
}

func (f *fakeMembershipService) RSVP(_ context.Context, _ string, in domain.RSVPInput) (*domain.EventMember, error) {
	f.lastInput = in
	return f.member, f.err
}

func (f *fakeMembershipService) Status(_ context.Context, _, _ string) (domain.RSVPStatus, error) {
	return f.status, f.err
}

type fakeFeedService struct {
	feed      *domain.Feed
	err       error
	lastQuery domain.EventListQuery
}

func (f *fakeFeedService) ListFeed(_ context.Context, _ string, q domain.EventListQuery) (*domain.Feed, error) {
	f.lastQuery = q
	return f.feed, f.err
}

type fakeFriendService struct {
	invite             *domain.FriendInvite
	list               *domain.FriendList
	err                error
	lastRecipient      string
	lastContact        domain.InviteContact
	lastAccept         bool
	lastIncludeInvites bool
}

func (f *fakeFriendService) InviteByContact(_ context.Context, _ string, c domain.InviteContact) (*domain.FriendInvite, error) {
	f.lastContact = c
	return f.invite, f.err
}

func (f *fakeFriendService) SendFriendRequest(_ context.Context, _, recipientID string) (*domain.FriendInvite, error) {
	f.lastRecipient = recipientID
	return f.invite, f.err
}

func (f *fakeFriendService) RespondToFriendRequest(_ context.Context, _, _ string, accept bool) (*domain.FriendInvite, error) {
	f.lastAccept = accept
	return f.invite, f.err
}

func (f *fakeFriendService) ListFriends(_ context.Context, _ string, includeInvites bool) (*domain.FriendList, error) {
	f.lastIncludeInvites = includeInvites
	return f.list, f.err
}

type fakeChatService struct {
	message    *domain.Message
	messages   []*domain.Message
	summaries  []*domain.ChatSummary
	err        error
	lastText   string
	lastLimit  int
	lastBefore *time.Time
}

func (f *fakeChatService) SendMessage(_ context.Context, _, _, text string) (*domain.Message, error) {
	f.lastText = text
	return f.message, f.err
}

func (f *fakeChatService) GetMessages(_ context.Context, _, _ string, limit int, before *time.Time) ([]*domain.Message, error) {
	f.lastLimit, f.lastBefore = limit, before
	return f.messages, f.err
}

func (f *fakeChatService) ListChats(_ context.Context, _ string) ([]*domain.ChatSummary, error) {
	return f.summaries, f.err
}

func (f *fakeChatService) PostSystemMessage(_ context.Context, _, _ string) (*domain.Message, error) {
	return f.message, f.err
}
