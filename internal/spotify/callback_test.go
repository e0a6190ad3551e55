package spotify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackExchangesCode(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	}))
	defer endpoint.Close()

	m := newTestManager(t, nil, nil)
	m.tokenURL = endpoint.URL

	_, err := m.BeginAuthorization()
	require.NoError(t, err)

	m.mu.Lock()
	state := m.session.state
	m.mu.Unlock()

	l := NewCallbackListener(m, 0, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?code=abc&state="+state, nil)
	l.handleCallback(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Spotify connected")
	assert.True(t, m.Authenticated())
}

func TestCallbackRejectsForgedState(t *testing.T) {
	m := newTestManager(t, nil, nil)
	_, err := m.BeginAuthorization()
	require.NoError(t, err)

	l := NewCallbackListener(m, 0, testLogger())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?code=abc&state=forged", nil)
	l.handleCallback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, m.Authenticated())
}

func TestCallbackDenied(t *testing.T) {
	m := newTestManager(t, nil, nil)
	l := NewCallbackListener(m, 0, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?error=access_denied", nil)
	l.handleCallback(rec, req)

	assert.Contains(t, rec.Body.String(), "denied")
	assert.False(t, m.Authenticated())
}

func TestCallbackMissingCode(t *testing.T) {
	m := newTestManager(t, nil, nil)
	l := NewCallbackListener(m, 0, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	l.handleCallback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
