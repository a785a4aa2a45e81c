package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/auth"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/repository"
)

type mockUserRepository struct {
	createFunc     func(ctx context.Context, user *models.User) error
	getByEmailFunc func(ctx context.Context, email string) (*models.User, error)
	updateFunc     func(ctx context.Context, user *models.User) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *models.User) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, user)
	}
	return nil
}

// newMemoryRepo backs the mock with a map keyed by email
func newMemoryRepo() (*mockUserRepository, map[string]*models.User) {
	users := map[string]*models.User{}
	return &mockUserRepository{
		createFunc: func(ctx context.Context, user *models.User) error {
			if _, ok := users[user.Email]; ok {
				return repository.ErrEmailTaken
			}
			u := *user
			users[user.Email] = &u
			return nil
		},
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			u, ok := users[email]
			if !ok {
				return nil, repository.ErrUserNotFound
			}
			c := *u
			return &c, nil
		},
		updateFunc: func(ctx context.Context, user *models.User) error {
			if _, ok := users[user.Email]; !ok {
				return repository.ErrUserNotFound
			}
			u := *user
			users[user.Email] = &u
			return nil
		},
	}, users
}

func newTestService(t *testing.T) (*UserService, map[string]*models.User, *auth.JWTManager) {
	t.Helper()
	jwtManager, err := auth.NewJWTManager("this_is_a_very_long_secret_key_for_testing_purposes_12345", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	repo, users := newMemoryRepo()
	svc := NewUserService(repo, jwtManager, RedirectURIs{
		Google: "http://localhost:5000/api/integrations/google/callback",
		Meta:   "http://localhost:5000/api/integrations/meta/callback",
	})
	return svc, users, jwtManager
}

func TestUserService_Register(t *testing.T) {
	svc, users, _ := newTestService(t)

	user, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID == "" {
		t.Error("expected generated user ID")
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret" {
		t.Error("expected password to be hashed")
	}
	if len(users) != 1 {
		t.Errorf("expected 1 stored user, got %d", len(users))
	}
}

func TestUserService_Register_Duplicate(t *testing.T) {
	svc, users, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), "Ada Again", "ada@example.com", "other")
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected exactly 1 stored user, got %d", len(users))
	}
	if users["ada@example.com"].Name != "Ada" {
		t.Error("original user must be unchanged")
	}
}

func TestUserService_Register_MissingFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name, email, password string
	}{
		{"", "ada@example.com", "secret"},
		{"Ada", "", "secret"},
		{"Ada", "ada@example.com", ""},
		{"Ada", "   ", "secret"},
	}
	for _, tt := range tests {
		_, err := svc.Register(context.Background(), tt.name, tt.email, tt.password)
		if !errors.Is(err, ErrMissingFields) {
			t.Errorf("Register(%q, %q, %q) error = %v, want ErrMissingFields", tt.name, tt.email, tt.password, err)
		}
	}
}

func TestUserService_Login(t *testing.T) {
	svc, _, jwtManager := newTestService(t)
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := svc.Login(context.Background(), "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	email, err := jwtManager.Validate(result.AccessToken, auth.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if email != "ada@example.com" {
		t.Errorf("access token subject = %q, want ada@example.com", email)
	}
	email, err = jwtManager.Validate(result.RefreshToken, auth.RefreshToken)
	if err != nil {
		t.Fatalf("refresh token invalid: %v", err)
	}
	if email != "ada@example.com" {
		t.Errorf("refresh token subject = %q, want ada@example.com", email)
	}
	if result.User.Name != "Ada" {
		t.Errorf("user name = %q, want Ada", result.User.Name)
	}
}

func TestUserService_Login_Failures(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "wrong password", email: "ada@example.com", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown user", email: "bob@example.com", password: "secret", wantErr: ErrUserNotFound},
		{name: "missing password", email: "ada@example.com", password: "", wantErr: ErrMissingFields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUserService_Login_RepositoryError(t *testing.T) {
	repo := &mockUserRepository{
		getByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	jwtManager, _ := auth.NewJWTManager("this_is_a_very_long_secret_key_for_testing_purposes_12345", time.Hour, time.Hour)
	svc := NewUserService(repo, jwtManager, RedirectURIs{})

	_, err := svc.Login(context.Background(), "ada@example.com", "secret")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("repository failure must not look like an auth failure: %v", err)
	}
}

func TestUserService_Refresh(t *testing.T) {
	svc, _, jwtManager := newTestService(t)
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Refresh(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if email, err := jwtManager.Validate(token, auth.AccessToken); err != nil || email != "ada@example.com" {
		t.Errorf("refreshed token: email = %q, err = %v", email, err)
	}

	if _, err := svc.Refresh(context.Background(), "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Refresh(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	name := "Ada Lovelace"
	password := "new-secret"
	profile, err := svc.UpdateProfile(context.Background(), "ada@example.com", ProfileUpdate{Name: &name, Password: &password})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile.Name != "Ada Lovelace" {
		t.Errorf("profile name = %q, want Ada Lovelace", profile.Name)
	}

	if _, err := svc.Login(context.Background(), "ada@example.com", "new-secret"); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), "ada@example.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}
}

func TestUserService_UpdateProfile_NameOnly(t *testing.T) {
	svc, users, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	hash := users["ada@example.com"].PasswordHash

	name := "Countess"
	if _, err := svc.UpdateProfile(context.Background(), "ada@example.com", ProfileUpdate{Name: &name}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if users["ada@example.com"].PasswordHash != hash {
		t.Error("password hash changed on a name-only update")
	}

	if _, err := svc.UpdateProfile(context.Background(), "ghost@example.com", ProfileUpdate{Name: &name}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("UpdateProfile(unknown) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserService_Settings(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := svc.SaveSettings(context.Background(), "ada@example.com", models.IntegrationSettings{
		GoogleAnalytics: &models.GoogleAnalyticsSettings{ClientID: "gid", ClientSecret: "gsecret"},
	})
	if err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}

	settings, err := svc.Settings(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if settings.GoogleAnalytics.ClientID != "gid" || settings.GoogleAnalytics.ClientSecret != "gsecret" {
		t.Errorf("google settings = %+v", settings.GoogleAnalytics)
	}
	if settings.GoogleAnalytics.RedirectURI != "http://localhost:5000/api/integrations/google/callback" {
		t.Errorf("google redirect = %q", settings.GoogleAnalytics.RedirectURI)
	}
	if settings.MetaAds.AppID != "" {
		t.Errorf("meta settings should be empty, got %+v", settings.MetaAds)
	}
	if settings.MetaAds.RedirectURI != "http://localhost:5000/api/integrations/meta/callback" {
		t.Errorf("meta redirect = %q", settings.MetaAds.RedirectURI)
	}
}

func TestUserService_TestConnections(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "Ada", "ada@example.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	var missing *MissingCredentialsError
	err := svc.TestGoogle(context.Background(), "ada@example.com")
	if !errors.As(err, &missing) {
		t.Fatalf("TestGoogle() error = %v, want MissingCredentialsError", err)
	}
	if missing.Message() != "Missing Google Analytics credentials" {
		t.Errorf("message = %q", missing.Message())
	}

	err = svc.TestMeta(context.Background(), "ada@example.com")
	if !errors.As(err, &missing) || missing.Message() != "Missing Meta Ads credentials" {
		t.Fatalf("TestMeta() error = %v", err)
	}

	err = svc.SaveSettings(context.Background(), "ada@example.com", models.IntegrationSettings{
		MetaAds: &models.MetaAdsSettings{AppID: "app", AppSecret: "shh"},
	})
	if err != nil {
		t.Fatalf("SaveSettings() error = %v", err)
	}
	if err := svc.TestMeta(context.Background(), "ada@example.com"); err != nil {
		t.Errorf("TestMeta() after save error = %v", err)
	}
}
