// Package integrations derives per-user integration status from the
// credential vault and shapes provider data for charts.
package integrations

import (
	"time"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
)

const (
	tokenExpired          = "Token expired"
	credentialsUnreadable = "Credentials unavailable"
)

// Reader is the read side of the credential vault
type Reader interface {
	Get(userID, service string, out any) (bool, error)
}

type StatusService struct {
	store Reader
	now   func() time.Time
}

func NewStatusService(store Reader) *StatusService {
	return &StatusService{store: store, now: time.Now}
}

// Status reports, for every known service, whether a token is stored and
// whether it has expired. A vault read failure is logged and reported as a
// fixed message in the entry's error field instead of failing the call.
func (s *StatusService) Status(userID string) map[string]models.IntegrationStatus {
	now := s.now()
	return map[string]models.IntegrationStatus{
		models.ServiceGoogleAnalytics: s.googleStatus(userID, now),
		models.ServiceMetaAds:         s.metaStatus(userID, now),
	}
}

func (s *StatusService) googleStatus(userID string, now time.Time) models.IntegrationStatus {
	var token models.GoogleToken
	found, err := s.store.Get(userID, models.ServiceGoogleAnalytics, &token)
	if err != nil {
		return readFailure(userID, models.ServiceGoogleAnalytics, err)
	}
	if !found {
		return models.IntegrationStatus{}
	}

	status := models.IntegrationStatus{Connected: true}
	if token.Expiry != nil && !token.Expiry.IsZero() && token.Expiry.Before(now) {
		status.Error = strPtr(tokenExpired)
	}
	return status
}

func (s *StatusService) metaStatus(userID string, now time.Time) models.IntegrationStatus {
	var token models.MetaToken
	found, err := s.store.Get(userID, models.ServiceMetaAds, &token)
	if err != nil {
		return readFailure(userID, models.ServiceMetaAds, err)
	}
	if !found {
		return models.IntegrationStatus{}
	}

	status := models.IntegrationStatus{Connected: true}
	if expiresAt := token.ExpiresAt(); !expiresAt.IsZero() && expiresAt.Before(now) {
		status.Error = strPtr(tokenExpired)
	}
	return status
}

func readFailure(userID, service string, err error) models.IntegrationStatus {
	logging.Error().Err(err).Str("user_id", userID).Str("service", service).Msg("failed to read credentials")
	return models.IntegrationStatus{Error: strPtr(credentialsUnreadable)}
}

func strPtr(s string) *string {
	return &s
}
