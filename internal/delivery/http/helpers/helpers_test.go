package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name   string `json:"name" validate:"required,max=5"`
	Status string `json:"status" validate:"omitempty,oneof=going declined"`
}

func (s sampleRequest) Validate() []string {
	if s.Name == "admin" {
		return []string{"name is reserved"}
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOK      bool
		wantMessage string
	}{
		{name: "valid", body: `{"name":"bob","status":"going"}`, wantOK: true},
		{name: "malformed json", body: `{"name":`, wantOK: false},
		{name: "unknown field", body: `{"name":"bob","extra":1}`, wantOK: false},
		{name: "missing required", body: `{}`, wantOK: false, wantMessage: "name is required"},
		{name: "too long", body: `{"name":"robert"}`, wantOK: false, wantMessage: "name must be at most 5"},
		{name: "bad enum", body: `{"name":"bob","status":"maybe"}`, wantOK: false, wantMessage: "status must be one of [going declined]"},
		{name: "custom rule", body: `{"name":"admin"}`, wantOK: false, wantMessage: "name is reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			var dest sampleRequest

			ok := DecodeAndValidate(rr, req, &dest)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var resp APIResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeBadRequest, resp.Error.Code)
			if tt.wantMessage != "" {
				assert.Contains(t, resp.Error.Message, tt.wantMessage)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"limit=10", 10},
		{"limit=0", 50},
		{"limit=abc", 50},
		{"limit=500", 100},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed?"+tt.query, nil)
			assert.Equal(t, tt.want, ParseLimit(req, 50, 100))
		})
	}
}

func TestParseTimeParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/feed?from=2025-06-01T10:00:00%2B02:00&bad=yesterday", nil)

	got, err := ParseTimeParam(req, "from")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, got.Location())

	got, err = ParseTimeParam(req, "to")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseTimeParam(req, "bad")
	require.Error(t, err)
}

func TestParseBoolParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/friends?include_invites=false&x=maybe", nil)

	v, err := ParseBoolParam(req, "include_invites", true)
	require.NoError(t, err)
	assert.False(t, v)

	v, err = ParseBoolParam(req, "missing", true)
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseBoolParam(req, "x", false)
	require.Error(t, err)
}
