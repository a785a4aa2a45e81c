package googleanalytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/connector"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/vault"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeGoogle struct {
	server      *httptest.Server
	tokenStatus int
	tokenBody   string
	lastReport  map[string]any
	lastAuth    string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":3600}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenStatus)
		_, _ = w.Write([]byte(f.tokenBody))
	})
	mux.HandleFunc("/v1beta/properties/123:runReport", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&f.lastReport)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dimensionHeaders": [{"name": "date"}],
			"metricHeaders": [{"name": "activeUsers", "type": "TYPE_INTEGER"}, {"name": "sessions", "type": "TYPE_INTEGER"}],
			"rows": [
				{"dimensionValues": [{"value": "20240601"}], "metricValues": [{"value": "120"}, {"value": "150"}]},
				{"dimensionValues": [{"value": "20240602"}], "metricValues": [{"value": "135"}, {"value": "180"}]}
			]
		}`))
	})
	mux.HandleFunc("/v1beta/properties/404:runReport", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "User does not have sufficient permissions for this property.", "status": "PERMISSION_DENIED"}}`))
	})
	mux.HandleFunc("/v1beta/properties/7:runReport", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/v1alpha/accountSummaries", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"accountSummaries": [{
				"account": "accounts/1",
				"displayName": "Acme",
				"propertySummaries": [{"property": "properties/123", "displayName": "Acme Web"}]
			}]
		}`))
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(t *testing.T, f *fakeGoogle, opts ...Option) (*Client, *vault.Vault) {
	t.Helper()
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	store := vault.New(filepath.Join(t.TempDir(), "credentials.json"), key)

	opts = append([]Option{
		WithOAuthEndpoint(f.server.URL+"/auth", f.server.URL+"/token"),
		WithAPIEndpoints(f.server.URL+"/", f.server.URL+"/"),
		WithHTTPClient(f.server.Client()),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	client := NewClient("client-id", "client-secret", "http://localhost:5000/api/integrations/google/callback", store, opts...)
	return client, store
}

func storeToken(t *testing.T, store *vault.Vault, f *fakeGoogle, expiry time.Time) {
	t.Helper()
	require.NoError(t, store.Save("u1", models.ServiceGoogleAnalytics, models.GoogleToken{
		Token:        "stored-access",
		RefreshToken: "stored-refresh",
		TokenURI:     f.server.URL + "/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Scopes:       []string{ReadonlyScope},
		Expiry:       &expiry,
	}))
}

func TestAuthURL(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)

	authURL, err := client.AuthURL("u1")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, ReadonlyScope, q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))

	var state models.OAuthState
	found, err := store.Get("u1", models.StateKey(models.ServiceGoogleAnalytics), &state)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, state.State, q.Get("state"))
}

func TestHandleCallback_InvalidState(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)

	_, err := client.AuthURL("u1")
	require.NoError(t, err)

	_, err = client.HandleCallback(context.Background(), "u1", "code", "not-the-state")
	assert.ErrorIs(t, err, connector.ErrInvalidState)

	var token models.GoogleToken
	found, err := store.Get("u1", models.ServiceGoogleAnalytics, &token)
	require.NoError(t, err)
	assert.False(t, found, "no token must be stored")
}

func TestHandleCallback_Success(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)

	authURL, err := client.AuthURL("u1")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	msg, err := client.HandleCallback(context.Background(), "u1", "auth-code", u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "Successfully authenticated with Google Analytics", msg)

	var token models.GoogleToken
	found, err := store.Get("u1", models.ServiceGoogleAnalytics, &token)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new-access", token.Token)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.Equal(t, []string{ReadonlyScope}, token.Scopes)
	require.NotNil(t, token.Expiry)

	// State is single use.
	var state models.OAuthState
	found, err = store.Get("u1", models.StateKey(models.ServiceGoogleAnalytics), &state)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHandleCallback_ProviderError(t *testing.T) {
	f := newFakeGoogle(t)
	f.tokenStatus = http.StatusBadRequest
	f.tokenBody = `{"error":"invalid_grant","error_description":"Malformed auth code."}`
	client, store := newTestClient(t, f)

	authURL, err := client.AuthURL("u1")
	require.NoError(t, err)
	u, _ := url.Parse(authURL)

	_, err = client.HandleCallback(context.Background(), "u1", "bad-code", u.Query().Get("state"))
	var perr *connector.ProviderError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, "Malformed auth code.", perr.Message)

	var token models.GoogleToken
	found, err := store.Get("u1", models.ServiceGoogleAnalytics, &token)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFetchData_NoCredentials(t *testing.T) {
	f := newFakeGoogle(t)
	client, _ := newTestClient(t, f)

	_, err := client.FetchData(context.Background(), "u1", ReportQuery{PropertyID: "123"})
	assert.ErrorIs(t, err, connector.ErrNoCredentials)
}

func TestFetchData_ReshapesRows(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)
	storeToken(t, store, f, time.Now().Add(time.Hour))

	report, err := client.FetchData(context.Background(), "u1", ReportQuery{PropertyID: "123"})
	require.NoError(t, err)

	assert.Equal(t, []string{"date"}, report.Dimensions)
	assert.Equal(t, []string{"activeUsers", "sessions"}, report.Metrics)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, map[string]string{"date": "20240601", "activeUsers": "120", "sessions": "150"}, report.Rows[0])

	assert.Equal(t, "Bearer stored-access", f.lastAuth)

	// Defaults: last 30 days and the standard metric set.
	ranges := f.lastReport["dateRanges"].([]any)
	dr := ranges[0].(map[string]any)
	assert.Equal(t, "2024-05-16", dr["startDate"])
	assert.Equal(t, "2024-06-15", dr["endDate"])
	assert.Len(t, f.lastReport["metrics"], len(DefaultMetrics))
}

func TestFetchData_RefreshesExpiredToken(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)
	storeToken(t, store, f, time.Now().Add(-time.Hour))

	_, err := client.FetchData(context.Background(), "u1", ReportQuery{PropertyID: "123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer new-access", f.lastAuth)

	var token models.GoogleToken
	_, err = store.Get("u1", models.ServiceGoogleAnalytics, &token)
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.Token, "refreshed token is written back")
}

func TestFetchData_ProviderError(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)
	storeToken(t, store, f, time.Now().Add(time.Hour))

	_, err := client.FetchData(context.Background(), "u1", ReportQuery{PropertyID: "404"})
	var perr *connector.ProviderError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.True(t, strings.Contains(perr.Message, "sufficient permissions"))
}

func TestFetchData_HonoursClientTimeout(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f, WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	storeToken(t, store, f, time.Now().Add(time.Hour))

	start := time.Now()
	_, err := client.FetchData(context.Background(), "u1", ReportQuery{PropertyID: "7"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestListProperties(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)
	storeToken(t, store, f, time.Now().Add(time.Hour))

	props, err := client.ListProperties(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, models.AnalyticsProperty{PropertyID: "123", DisplayName: "Acme Web", Account: "Acme"}, props[0])
}

func TestDisconnect(t *testing.T) {
	f := newFakeGoogle(t)
	client, store := newTestClient(t, f)
	storeToken(t, store, f, time.Now().Add(time.Hour))

	require.NoError(t, client.Disconnect("u1"))

	var token models.GoogleToken
	found, err := store.Get("u1", models.ServiceGoogleAnalytics, &token)
	require.NoError(t, err)
	assert.False(t, found)

	// Disconnecting twice is harmless.
	require.NoError(t, client.Disconnect("u1"))
}
