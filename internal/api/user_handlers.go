package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/logging"
	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/service"
)

type profileRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

func (s *Server) getProfile(c *gin.Context) {
	profile, err := s.users.Profile(c.Request.Context(), currentEmail(c))
	if err != nil {
		respondError(c, err, "Failed to retrieve profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No data received"})
		return
	}

	profile, err := s.users.UpdateProfile(c.Request.Context(), currentEmail(c), service.ProfileUpdate{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    profile,
	})
}

// multipartOverhead leaves room for boundaries and part headers around the file
const multipartOverhead = 1 << 20

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxUploadSize+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		case errors.Is(err, http.ErrMissingFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		}
		return
	}
	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("failed to open upload: %w", err), "Failed to process file")
		return
	}
	defer file.Close()

	if err := service.CheckCSVName(header.Filename); err != nil {
		logging.Warn().Str("filename", header.Filename).Msg("rejected upload: not a CSV file")
		respondError(c, err, "Failed to process file")
		return
	}

	rows, err := service.ParseCSV(file)
	if err != nil {
		respondError(c, err, "Failed to process file")
		return
	}

	logging.Info().Str("filename", header.Filename).Int("rows", len(rows)).Msg("file uploaded and processed")
	c.JSON(http.StatusOK, rows)
}
