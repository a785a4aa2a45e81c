package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an application account. App-level OAuth client credentials live on
// the row; per-user provider tokens live in the credential vault.
type User struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Email              string    `gorm:"column:email;uniqueIndex;not null"`
	Name               string    `gorm:"column:name;not null"`
	PasswordHash       string    `gorm:"column:password_hash;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
	GoogleClientID     string    `gorm:"column:google_client_id"`
	GoogleClientSecret string    `gorm:"column:google_client_secret"`
	MetaAppID          string    `gorm:"column:meta_app_id"`
	MetaAppSecret      string    `gorm:"column:meta_app_secret"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// SetPassword replaces the stored hash with a bcrypt hash of password
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Profile is the public JSON view of a user
type Profile struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
	}
}

type GoogleAnalyticsSettings struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri,omitempty"`
}

type MetaAdsSettings struct {
	AppID       string `json:"appId"`
	AppSecret   string `json:"appSecret"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

// IntegrationSettings holds the app-level client credentials a user registered
// with each provider. Nil blocks in an update request are left untouched.
type IntegrationSettings struct {
	GoogleAnalytics *GoogleAnalyticsSettings `json:"googleAnalytics"`
	MetaAds         *MetaAdsSettings         `json:"metaAds"`
}

func (u *User) IntegrationSettings() IntegrationSettings {
	return IntegrationSettings{
		GoogleAnalytics: &GoogleAnalyticsSettings{
			ClientID:     u.GoogleClientID,
			ClientSecret: u.GoogleClientSecret,
		},
		MetaAds: &MetaAdsSettings{
			AppID:     u.MetaAppID,
			AppSecret: u.MetaAppSecret,
		},
	}
}

func (u *User) ApplyIntegrationSettings(s IntegrationSettings) {
	if s.GoogleAnalytics != nil {
		u.GoogleClientID = s.GoogleAnalytics.ClientID
		u.GoogleClientSecret = s.GoogleAnalytics.ClientSecret
	}
	if s.MetaAds != nil {
		u.MetaAppID = s.MetaAds.AppID
		u.MetaAppSecret = s.MetaAds.AppSecret
	}
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
