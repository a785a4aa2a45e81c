package models

import "time"

// Vault service names
const (
	ServiceGoogleAnalytics = "google_analytics"
	ServiceMetaAds         = "meta_ads"
)

// Services lists every configured integration in display order
var Services = []string{ServiceGoogleAnalytics, ServiceMetaAds}

// StateKey returns the vault service name that holds the pending OAuth state
func StateKey(service string) string {
	return service + "_state"
}

// OAuthState is the anti-forgery token stored between begin and complete auth
type OAuthState struct {
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the state is older than ttl. A zero ttl never expires.
func (s OAuthState) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(s.CreatedAt) > ttl
}

// GoogleToken is the credential record stored under ServiceGoogleAnalytics
type GoogleToken struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Scopes       []string   `json:"scopes"`
	Expiry       *time.Time `json:"expiry"`
}

// MetaToken is the credential record stored under ServiceMetaAds
type MetaToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"` // seconds
	CreatedAt   time.Time `json:"created_at"`
}

// ExpiresAt returns created_at + expires_in, or the zero time when the
// provider did not report a lifetime.
func (t MetaToken) ExpiresAt() time.Time {
	if t.ExpiresIn <= 0 || t.CreatedAt.IsZero() {
		return time.Time{}
	}
	return t.CreatedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}
