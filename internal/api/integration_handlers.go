package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/googleanalytics"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/integrations"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/metaads"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/service"
)

type callbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// userID resolves the authenticated user's ID, writing an error response
// and returning false when it cannot.
func (s *Server) userID(c *gin.Context) (string, bool) {
	user, err := s.users.User(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, err, "Failed to load user")
		return "", false
	}
	return user.ID, true
}

func (s *Server) integrationStatus(c *gin.Context) {
	id, ok := s.userID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.status.Status(id))
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.users.Settings(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, err, "Failed to retrieve settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) saveSettings(c *gin.Context) {
	var req models.IntegrationSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data received"})
		return
	}
	if err := s.users.SaveSettings(c.Request.Context(), currentEmail(c), req); err != nil {
		respondError(c, err, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings saved successfully"})
}

func (s *Server) testGoogle(c *gin.Context) {
	s.testConnection(c, s.users.TestGoogle, "Google Analytics")
}

func (s *Server) testMeta(c *gin.Context) {
	s.testConnection(c, s.users.TestMeta, "Meta Ads")
}

func (s *Server) testConnection(c *gin.Context, check func(ctx context.Context, email string) error, provider string) {
	err := check(c.Request.Context(), currentEmail(c))
	if err != nil {
		var missing *service.MissingCredentialsError
		switch {
		case errors.As(err, &missing):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": missing.Message()})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		default:
			respondError(c, err, "Failed to connect to "+provider+" API")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully connected to " + provider + " API",
	})
}

func (s *Server) googleAuth(c *gin.Context) {
	s.beginAuth(c, s.google.AuthURL)
}

func (s *Server) metaAuth(c *gin.Context) {
	s.beginAuth(c, s.meta.AuthURL)
}

func (s *Server) beginAuth(c *gin.Context, authURL func(userID string) (string, error)) {
	id, ok := s.userID(c)
	if !ok {
		return
	}
	u, err := authURL(id)
	if err != nil {
		respondError(c, err, "Failed to start authorization")
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": u})
}

func (s *Server) googleCallback(c *gin.Context) {
	s.completeAuth(c, s.google.HandleCallback)
}

func (s *Server) metaCallback(c *gin.Context) {
	s.completeAuth(c, s.meta.HandleCallback)
}

func (s *Server) completeAuth(c *gin.Context, handle func(ctx context.Context, userID, code, state string) (string, error)) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" || req.State == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing code or state"})
		return
	}

	id, ok := s.userID(c)
	if !ok {
		return
	}

	message, err := handle(c.Request.Context(), id, req.Code, req.State)
	if err != nil {
		status, msg := classify(err)
		if status == http.StatusInternalServerError {
			respondError(c, err, "Authorization failed")
			return
		}
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}

func (s *Server) googleProperties(c *gin.Context) {
	id, ok := s.userID(c)
	if !ok {
		return
	}
	props, err := s.google.ListProperties(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to list properties")
		return
	}
	c.JSON(http.StatusOK, props)
}

func (s *Server) googleData(c *gin.Context) {
	var report *models.AnalyticsReport
	if c.Query("demo") == "true" {
		sample := integrations.SampleAnalytics()
		report = &sample
	} else {
		propertyID := c.Query("property_id")
		if propertyID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "property_id is required"})
			return
		}
		id, ok := s.userID(c)
		if !ok {
			return
		}

		var err error
		report, err = s.google.FetchData(c.Request.Context(), id, googleanalytics.ReportQuery{
			PropertyID: propertyID,
			StartDate:  c.Query("start_date"),
			EndDate:    c.Query("end_date"),
			Metrics:    splitList(c.Query("metrics")),
			Dimensions: splitList(c.Query("dimensions")),
		})
		if err != nil {
			respondError(c, err, "Failed to fetch Google Analytics data")
			return
		}
	}

	if c.Query("format") == "chart" {
		chart, ok := integrations.FormatChartData(*report, c.DefaultQuery("chart_type", "line"))
		if !ok {
			chart = models.ChartData{Labels: []string{}, Datasets: []models.ChartDataset{}}
		}
		c.JSON(http.StatusOK, chart)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) metaAccounts(c *gin.Context) {
	id, ok := s.userID(c)
	if !ok {
		return
	}
	accounts, err := s.meta.ListAdAccounts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to list ad accounts")
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (s *Server) metaInsights(c *gin.Context) {
	if c.Query("demo") == "true" {
		c.JSON(http.StatusOK, integrations.SampleInsights())
		return
	}

	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_id is required"})
		return
	}
	id, ok := s.userID(c)
	if !ok {
		return
	}

	records, err := s.meta.FetchData(c.Request.Context(), id, metaads.InsightsQuery{
		AccountID: accountID,
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Fields:    splitList(c.Query("fields")),
	})
	if err != nil {
		respondError(c, err, "Failed to fetch Meta Ads data")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) googleDisconnect(c *gin.Context) {
	s.disconnect(c, s.google.Disconnect)
}

func (s *Server) metaDisconnect(c *gin.Context) {
	s.disconnect(c, s.meta.Disconnect)
}

func (s *Server) disconnect(c *gin.Context, disconnect func(userID string) error) {
	id, ok := s.userID(c)
	if !ok {
		return
	}
	if err := disconnect(id); err != nil {
		respondError(c, err, "Failed to disconnect")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// splitList parses a comma separated query value, dropping empty items
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
