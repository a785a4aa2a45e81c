package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/connector"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/service"
)

// respondError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a generic 500 with fallback as the message.
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", c.Request.URL.Path).Str("email", currentEmail(c)).Msg(fallback)
		msg = fallback
	}
	c.JSON(status, gin.H{"error": msg})
}

func classify(err error) (int, string) {
	var providerErr *connector.ProviderError
	var missingCreds *service.MissingCredentialsError

	switch {
	case errors.Is(err, service.ErrMissingFields):
		return http.StatusBadRequest, "Missing required fields"
	case errors.Is(err, service.ErrEmailExists):
		return http.StatusBadRequest, "Email already exists"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrNotCSV):
		return http.StatusBadRequest, "Only CSV files are allowed"
	case errors.Is(err, service.ErrTooFewColumns):
		return http.StatusBadRequest, "CSV file must have at least two columns"
	case errors.Is(err, connector.ErrInvalidState):
		return http.StatusBadRequest, "Invalid state parameter"
	case errors.Is(err, connector.ErrNoCredentials):
		return http.StatusNotFound, "No credentials found"
	case errors.As(err, &providerErr):
		return http.StatusBadRequest, providerErr.Error()
	case errors.As(err, &missingCreds):
		return http.StatusBadRequest, missingCreds.Message()
	default:
		return http.StatusInternalServerError, ""
	}
}
