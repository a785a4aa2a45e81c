package metaads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/connector"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
)

const (
	GraphVersion = "v16.0"
	providerName = "Meta"
	dateLayout   = "2006-01-02"
	maxPages     = 50
)

var (
	Scopes        = []string{"ads_read", "ads_management", "business_management"}
	DefaultFields = []string{"campaign_name", "impressions", "clicks", "spend", "ctr", "cpc", "reach", "frequency"}
)

type Client struct {
	appID       string
	appSecret   string
	redirectURL string
	dialogURL   string
	graphURL    string
	store       connector.Store
	httpClient  *http.Client
	stateTTL    time.Duration
	now         func() time.Time
}

type Option func(*Client)

// WithHTTPClient sets the client used for every Graph API request
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoints overrides the OAuth dialog and Graph API base URLs
func WithEndpoints(dialogURL, graphURL string) Option {
	return func(c *Client) {
		c.dialogURL = dialogURL
		c.graphURL = strings.TrimRight(graphURL, "/")
	}
}

func WithStateTTL(ttl time.Duration) Option {
	return func(c *Client) { c.stateTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(appID, appSecret, redirectURL string, store connector.Store, opts ...Option) *Client {
	c := &Client{
		appID:       appID,
		appSecret:   appSecret,
		redirectURL: redirectURL,
		dialogURL:   "https://www.facebook.com/" + GraphVersion + "/dialog/oauth",
		graphURL:    "https://graph.facebook.com/" + GraphVersion,
		store:       store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		stateTTL: 10 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthURL stores a fresh state token for userID and returns the Facebook
// login dialog URL.
func (c *Client) AuthURL(userID string) (string, error) {
	state, err := connector.BeginState(c.store, userID, models.ServiceMetaAds, c.now())
	if err != nil {
		return "", err
	}

	cfg := oauth2.Config{
		ClientID:    c.appID,
		RedirectURL: c.redirectURL,
		// Meta expects a comma separated scope list
		Scopes:   []string{strings.Join(Scopes, ",")},
		Endpoint: oauth2.Endpoint{AuthURL: c.dialogURL},
	}
	return cfg.AuthCodeURL(state), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// HandleCallback verifies state, exchanges the code for a short-lived token,
// trades that for a long-lived token and stores it.
func (c *Client) HandleCallback(ctx context.Context, userID, code, state string) (string, error) {
	if err := connector.ConsumeState(c.store, userID, models.ServiceMetaAds, state, c.now(), c.stateTTL); err != nil {
		return "", err
	}

	// Exchange authorization code for access token
	var short tokenResponse
	err := c.get(ctx, "/oauth/access_token", url.Values{
		"client_id":     {c.appID},
		"redirect_uri":  {c.redirectURL},
		"client_secret": {c.appSecret},
		"code":          {code},
	}, &short)
	if err != nil {
		return "", err
	}

	// Get long-lived access token
	var long tokenResponse
	err = c.get(ctx, "/oauth/access_token", url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {c.appID},
		"client_secret":     {c.appSecret},
		"fb_exchange_token": {short.AccessToken},
	}, &long)
	if err != nil {
		return "", err
	}

	tokenType := long.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	record := models.MetaToken{
		AccessToken: long.AccessToken,
		TokenType:   tokenType,
		ExpiresIn:   long.ExpiresIn,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.Save(userID, models.ServiceMetaAds, record); err != nil {
		return "", fmt.Errorf("failed to save credentials: %w", err)
	}

	logging.Info().Str("user_id", userID).Int64("expires_in", long.ExpiresIn).Msg("meta ads connected")
	return "Successfully authenticated with Meta Ads", nil
}

// InsightsQuery selects campaign-level insights. Empty fields take the
// defaults: the last 30 days and DefaultFields.
type InsightsQuery struct {
	AccountID string
	StartDate string
	EndDate   string
	Fields    []string
}

// FetchData returns campaign insights for an ad account, one record per row,
// following pagination cursors.
func (c *Client) FetchData(ctx context.Context, userID string, q InsightsQuery) ([]map[string]any, error) {
	if q.AccountID == "" {
		return nil, fmt.Errorf("account_id is required")
	}
	q = c.withDefaults(q)

	hc, err := c.authorizedClient(userID)
	if err != nil {
		return nil, err
	}

	timeRange, err := json.Marshal(map[string]string{"since": q.StartDate, "until": q.EndDate})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal time range: %w", err)
	}
	params := url.Values{
		"fields":     {strings.Join(q.Fields, ",")},
		"time_range": {string(timeRange)},
		"level":      {"campaign"},
	}
	next := c.graphURL + "/act_" + strings.TrimPrefix(q.AccountID, "act_") + "/insights?" + params.Encode()

	records := []map[string]any{}
	for page := 0; next != "" && page < maxPages; page++ {
		var resp struct {
			Data   []map[string]any `json:"data"`
			Paging struct {
				Next string `json:"next"`
			} `json:"paging"`
		}
		if err := c.do(ctx, hc, next, &resp); err != nil {
			return nil, err
		}
		records = append(records, resp.Data...)
		next = resp.Paging.Next
		if next != "" && !c.sameOrigin(next) {
			return nil, &connector.ProviderError{Provider: providerName, Message: "paging URL points outside the Graph API"}
		}
	}

	return records, nil
}

// ListAdAccounts returns the ad accounts the token can read
func (c *Client) ListAdAccounts(ctx context.Context, userID string) ([]models.AdAccount, error) {
	hc, err := c.authorizedClient(userID)
	if err != nil {
		return nil, err
	}

	params := url.Values{"fields": {"name,account_id,account_status"}}
	var resp struct {
		Data []models.AdAccount `json:"data"`
	}
	if err := c.do(ctx, hc, c.graphURL+"/me/adaccounts?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []models.AdAccount{}
	}
	return resp.Data, nil
}

// Disconnect removes the stored token
func (c *Client) Disconnect(userID string) error {
	if _, err := c.store.Delete(userID, models.ServiceMetaAds); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// authorizedClient returns an HTTP client that sends the stored access token
func (c *Client) authorizedClient(userID string) (*http.Client, error) {
	var record models.MetaToken
	found, err := c.store.Get(userID, models.ServiceMetaAds, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if !found {
		return nil, connector.ErrNoCredentials
	}

	token := &oauth2.Token{AccessToken: record.AccessToken, TokenType: "Bearer"}
	return &http.Client{
		Transport: &oauth2.Transport{Base: c.httpClient.Transport, Source: oauth2.StaticTokenSource(token)},
		Timeout:   c.httpClient.Timeout,
	}, nil
}

// sameOrigin reports whether rawURL has the scheme and host of the Graph API
// base URL. The authorized client attaches the bearer token to every request.
func (c *Client) sameOrigin(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.graphURL)
	if err != nil {
		return false
	}
	return u.Scheme == base.Scheme && u.Host == base.Host
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, c.httpClient, c.graphURL+path+"?"+params.Encode(), out)
}

func (c *Client) do(ctx context.Context, hc *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Graph API errors carry {"error": {"message": ...}} regardless of status
	var apiErr struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
		return &connector.ProviderError{Provider: providerName, Message: apiErr.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return &connector.ProviderError{
			Provider: providerName,
			Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse API response: %w", err)
	}
	return nil
}

func (c *Client) withDefaults(q InsightsQuery) InsightsQuery {
	now := c.now()
	if q.StartDate == "" {
		q.StartDate = now.AddDate(0, 0, -30).Format(dateLayout)
	}
	if q.EndDate == "" {
		q.EndDate = now.Format(dateLayout)
	}
	if len(q.Fields) == 0 {
		q.Fields = DefaultFields
	}
	return q
}
