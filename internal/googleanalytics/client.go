package googleanalytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	analyticsadmin "google.golang.org/api/analyticsadmin/v1alpha"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/connector"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
)

const (
	ReadonlyScope = "https://www.googleapis.com/auth/analytics.readonly"
	providerName  = "Google Analytics"
	dateLayout    = "2006-01-02"
)

var (
	DefaultMetrics    = []string{"activeUsers", "screenPageViews", "sessions", "engagementRate"}
	DefaultDimensions = []string{"date"}
)

type Client struct {
	oauthConfig *oauth2.Config
	store       connector.Store
	httpClient  *http.Client
	stateTTL    time.Duration
	now         func() time.Time
	dataURL     string // optional API base overrides
	adminURL    string
}

type Option func(*Client)

// WithHTTPClient sets the client used for token exchange and API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithOAuthEndpoint overrides Google's authorization and token URLs
func WithOAuthEndpoint(authURL, tokenURL string) Option {
	return func(c *Client) {
		c.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

// WithAPIEndpoints overrides the Data API and Admin API base URLs
func WithAPIEndpoints(dataURL, adminURL string) Option {
	return func(c *Client) {
		c.dataURL = dataURL
		c.adminURL = adminURL
	}
}

// WithStateTTL bounds how long an authorization state stays valid
func WithStateTTL(ttl time.Duration) Option {
	return func(c *Client) { c.stateTTL = ttl }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(clientID, clientSecret, redirectURL string, store connector.Store, opts ...Option) *Client {
	c := &Client{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{ReadonlyScope},
			Endpoint:     google.Endpoint,
		},
		store:      store,
		httpClient: http.DefaultClient,
		stateTTL:   10 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthURL stores a fresh state token for userID and returns the consent URL
func (c *Client) AuthURL(userID string) (string, error) {
	state, err := connector.BeginState(c.store, userID, models.ServiceGoogleAnalytics, c.now())
	if err != nil {
		return "", err
	}

	return c.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// HandleCallback verifies state, exchanges the authorization code and stores
// the resulting token.
func (c *Client) HandleCallback(ctx context.Context, userID, code, state string) (string, error) {
	if err := connector.ConsumeState(c.store, userID, models.ServiceGoogleAnalytics, state, c.now(), c.stateTTL); err != nil {
		return "", err
	}

	// Exchange authorization code for tokens
	token, err := c.oauthConfig.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return "", providerError(err)
	}

	record := models.GoogleToken{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     c.oauthConfig.Endpoint.TokenURL,
		ClientID:     c.oauthConfig.ClientID,
		ClientSecret: c.oauthConfig.ClientSecret,
		Scopes:       c.oauthConfig.Scopes,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		record.Expiry = &expiry
	}

	if err := c.store.Save(userID, models.ServiceGoogleAnalytics, record); err != nil {
		return "", fmt.Errorf("failed to save credentials: %w", err)
	}

	logging.Info().Str("user_id", userID).Msg("google analytics connected")
	return "Successfully authenticated with Google Analytics", nil
}

// ReportQuery selects a Data API report. Empty fields take the defaults:
// the last 30 days, DefaultMetrics and DefaultDimensions.
type ReportQuery struct {
	PropertyID string
	StartDate  string
	EndDate    string
	Metrics    []string
	Dimensions []string
}

// FetchData runs a report for a GA4 property and reshapes the rows into maps
// keyed by dimension and metric name.
func (c *Client) FetchData(ctx context.Context, userID string, q ReportQuery) (*models.AnalyticsReport, error) {
	if q.PropertyID == "" {
		return nil, fmt.Errorf("property_id is required")
	}
	q = c.withDefaults(q)

	ts, err := c.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Create Analytics Data service
	opts := []option.ClientOption{option.WithHTTPClient(c.authorizedClient(ts))}
	if c.dataURL != "" {
		opts = append(opts, option.WithEndpoint(c.dataURL))
	}
	svc, err := analyticsdata.NewService(c.withHTTPClient(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Analytics Data service: %w", err)
	}

	req := &analyticsdata.RunReportRequest{
		DateRanges: []*analyticsdata.DateRange{{StartDate: q.StartDate, EndDate: q.EndDate}},
	}
	for _, m := range q.Metrics {
		req.Metrics = append(req.Metrics, &analyticsdata.Metric{Name: m})
	}
	for _, d := range q.Dimensions {
		req.Dimensions = append(req.Dimensions, &analyticsdata.Dimension{Name: d})
	}

	resp, err := svc.Properties.RunReport("properties/"+q.PropertyID, req).Context(ctx).Do()
	if err != nil {
		return nil, providerError(err)
	}

	return toReport(resp), nil
}

// ListProperties returns the GA4 properties visible through the user's
// account summaries.
func (c *Client) ListProperties(ctx context.Context, userID string) ([]models.AnalyticsProperty, error) {
	ts, err := c.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithHTTPClient(c.authorizedClient(ts))}
	if c.adminURL != "" {
		opts = append(opts, option.WithEndpoint(c.adminURL))
	}
	svc, err := analyticsadmin.NewService(c.withHTTPClient(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Analytics Admin service: %w", err)
	}

	properties := []models.AnalyticsProperty{}
	err = svc.AccountSummaries.List().Pages(ctx, func(page *analyticsadmin.GoogleAnalyticsAdminV1alphaListAccountSummariesResponse) error {
		for _, account := range page.AccountSummaries {
			for _, p := range account.PropertySummaries {
				properties = append(properties, models.AnalyticsProperty{
					PropertyID:  strings.TrimPrefix(p.Property, "properties/"),
					DisplayName: p.DisplayName,
					Account:     account.DisplayName,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, providerError(err)
	}

	return properties, nil
}

// Disconnect removes the stored token
func (c *Client) Disconnect(userID string) error {
	if _, err := c.store.Delete(userID, models.ServiceGoogleAnalytics); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// tokenSource builds a refreshing token source from the stored record. When
// the access token is refreshed the new token is written back to the vault.
func (c *Client) tokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	var record models.GoogleToken
	found, err := c.store.Get(userID, models.ServiceGoogleAnalytics, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if !found {
		return nil, connector.ErrNoCredentials
	}

	cfg := *c.oauthConfig
	if record.ClientID != "" {
		cfg.ClientID = record.ClientID
		cfg.ClientSecret = record.ClientSecret
	}
	if record.TokenURI != "" {
		cfg.Endpoint.TokenURL = record.TokenURI
	}

	token := &oauth2.Token{
		AccessToken:  record.Token,
		RefreshToken: record.RefreshToken,
		TokenType:    "Bearer",
	}
	if record.Expiry != nil {
		token.Expiry = *record.Expiry
	}

	return &persistingTokenSource{
		base:   cfg.TokenSource(c.withHTTPClient(ctx), token),
		last:   record.Token,
		record: record,
		save: func(r models.GoogleToken) error {
			return c.store.Save(userID, models.ServiceGoogleAnalytics, r)
		},
	}, nil
}

func (c *Client) withDefaults(q ReportQuery) ReportQuery {
	now := c.now()
	if q.StartDate == "" {
		q.StartDate = now.AddDate(0, 0, -30).Format(dateLayout)
	}
	if q.EndDate == "" {
		q.EndDate = now.Format(dateLayout)
	}
	if len(q.Metrics) == 0 {
		q.Metrics = DefaultMetrics
	}
	if len(q.Dimensions) == 0 {
		q.Dimensions = DefaultDimensions
	}
	return q
}

// authorizedClient sends requests through ts while keeping the configured
// transport and timeout.
func (c *Client) authorizedClient(ts oauth2.TokenSource) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{Base: c.httpClient.Transport, Source: ts},
		Timeout:   c.httpClient.Timeout,
	}
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func toReport(resp *analyticsdata.RunReportResponse) *models.AnalyticsReport {
	report := &models.AnalyticsReport{
		Dimensions: make([]string, 0, len(resp.DimensionHeaders)),
		Metrics:    make([]string, 0, len(resp.MetricHeaders)),
		Rows:       make([]map[string]string, 0, len(resp.Rows)),
	}
	for _, h := range resp.DimensionHeaders {
		report.Dimensions = append(report.Dimensions, h.Name)
	}
	for _, h := range resp.MetricHeaders {
		report.Metrics = append(report.Metrics, h.Name)
	}

	for _, row := range resp.Rows {
		data := make(map[string]string, len(row.DimensionValues)+len(row.MetricValues))
		for i, v := range row.DimensionValues {
			if i < len(report.Dimensions) {
				data[report.Dimensions[i]] = v.Value
			}
		}
		for i, v := range row.MetricValues {
			if i < len(report.Metrics) {
				data[report.Metrics[i]] = v.Value
			}
		}
		report.Rows = append(report.Rows, data)
	}
	return report
}

// providerError extracts the human-readable message from Google API and
// OAuth errors.
func providerError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &connector.ProviderError{Provider: providerName, Message: apiErr.Message}
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := retrieveErr.ErrorDescription
		if msg == "" {
			msg = retrieveErr.ErrorCode
		}
		if msg == "" {
			msg = string(retrieveErr.Body)
		}
		return &connector.ProviderError{Provider: providerName, Message: msg}
	}
	return &connector.ProviderError{Provider: providerName, Message: err.Error()}
}

type persistingTokenSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	last   string
	record models.GoogleToken
	save   func(models.GoogleToken) error
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken == s.last {
		return token, nil
	}

	s.last = token.AccessToken
	s.record.Token = token.AccessToken
	if token.RefreshToken != "" {
		s.record.RefreshToken = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		s.record.Expiry = &expiry
	}
	if err := s.save(s.record); err != nil {
		logging.Warn().Err(err).Msg("failed to persist refreshed google token")
	}
	return token, nil
}
