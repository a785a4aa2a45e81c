package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/repository"
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrEmailExists        = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// MissingCredentialsError reports that a provider has no app credentials
// configured in the user's settings.
type MissingCredentialsError struct {
	Provider string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing %s credentials", e.Provider)
}

// Message is the user-facing form of the error
func (e *MissingCredentialsError) Message() string {
	return fmt.Sprintf("Missing %s credentials", e.Provider)
}

// UserRepository interface for dependency injection
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// TokenIssuer signs bearer tokens for a user's email
type TokenIssuer interface {
	GenerateAccessToken(email string) (string, error)
	GenerateRefreshToken(email string) (string, error)
}

// RedirectURIs are reported back with the settings so the user can register
// them with each provider.
type RedirectURIs struct {
	Google string
	Meta   string
}

type UserService struct {
	users     UserRepository
	tokens    TokenIssuer
	redirects RedirectURIs
}

func NewUserService(users UserRepository, tokens TokenIssuer, redirects RedirectURIs) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		redirects: redirects,
	}
}

// LoginResult is returned by a successful login
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// ProfileUpdate carries the optional fields of a profile update
type ProfileUpdate struct {
	Name     *string
	Password *string
}

// Register creates a user. All fields are required and the email must be unused.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user := &models.User{
		ID:    uuid.NewString(),
		Email: email,
		Name:  name,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.Info().Str("email", email).Msg("user registered")
	return user, nil
}

// Login checks the password and issues an access and a refresh token
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.getUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		logging.Warn().Str("email", email).Msg("login failed: invalid password")
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.GenerateAccessToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	logging.Info().Str("email", email).Msg("user logged in")
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh issues a new access token for the holder of a valid refresh token
func (s *UserService) Refresh(ctx context.Context, email string) (string, error) {
	if _, err := s.getUser(ctx, email); err != nil {
		return "", err
	}
	access, err := s.tokens.GenerateAccessToken(email)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return access, nil
}

func (s *UserService) Profile(ctx context.Context, email string) (models.Profile, error) {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return models.Profile{}, err
	}
	return user.Profile(), nil
}

// UpdateProfile changes the name and/or password; absent fields are kept
func (s *UserService) UpdateProfile(ctx context.Context, email string, update ProfileUpdate) (models.Profile, error) {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return models.Profile{}, err
	}

	if update.Name != nil {
		if *update.Name == "" {
			return models.Profile{}, ErrMissingFields
		}
		user.Name = *update.Name
	}
	if update.Password != nil {
		if *update.Password == "" {
			return models.Profile{}, ErrMissingFields
		}
		if err := user.SetPassword(*update.Password); err != nil {
			return models.Profile{}, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.Profile{}, ErrUserNotFound
		}
		return models.Profile{}, fmt.Errorf("failed to update profile: %w", err)
	}

	logging.Info().Str("email", email).Msg("profile updated")
	return user.Profile(), nil
}

// Settings returns the stored provider app credentials plus the callback
// URIs to register with each provider.
func (s *UserService) Settings(ctx context.Context, email string) (models.IntegrationSettings, error) {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return models.IntegrationSettings{}, err
	}

	settings := user.IntegrationSettings()
	settings.GoogleAnalytics.RedirectURI = s.redirects.Google
	settings.MetaAds.RedirectURI = s.redirects.Meta
	return settings, nil
}

func (s *UserService) SaveSettings(ctx context.Context, email string, settings models.IntegrationSettings) error {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return err
	}

	user.ApplyIntegrationSettings(settings)
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	logging.Info().Str("email", email).Msg("integration settings saved")
	return nil
}

// TestGoogle checks that Google Analytics app credentials are configured
func (s *UserService) TestGoogle(ctx context.Context, email string) error {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return err
	}
	if user.GoogleClientID == "" || user.GoogleClientSecret == "" {
		return &MissingCredentialsError{Provider: "Google Analytics"}
	}
	return nil
}

// TestMeta checks that Meta Ads app credentials are configured
func (s *UserService) TestMeta(ctx context.Context, email string) error {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return err
	}
	if user.MetaAppID == "" || user.MetaAppSecret == "" {
		return &MissingCredentialsError{Provider: "Meta Ads"}
	}
	return nil
}

// User looks up the account behind a token subject
func (s *UserService) User(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, email)
}

func (s *UserService) getUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
