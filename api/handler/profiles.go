package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/gofetch/engine"
	"github.com/use-agent/gofetch/models"
)

// ProfileAdmin is the store surface the admin CRUD needs.
type ProfileAdmin interface {
	Get(ctx context.Context, domain string) (*models.DomainProfile, error)
	Upsert(ctx context.Context, profile *models.DomainProfile) error
	Delete(ctx context.Context, domain string) (bool, error)
	All(ctx context.Context) ([]models.DomainProfile, error)
}

// ListProfiles returns the handler for GET /api/domain-profiles.
func ListProfiles(st ProfileAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		profiles, err := st.All(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		if profiles == nil {
			profiles = []models.DomainProfile{}
		}
		c.JSON(http.StatusOK, models.ProfilesResponse{Profiles: profiles, Count: len(profiles)})
	}
}

// GetProfile returns the handler for GET /api/domain-profiles/:domain.
func GetProfile(st ProfileAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		domain := canonicalDomain(c.Param("domain"))
		profile, err := st.Get(c.Request.Context(), domain)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		if profile == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no profile for " + domain})
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// UpsertProfile returns the handler for POST /api/domain-profiles. Lets an
// operator pin a known-good configuration without waiting for escalation.
func UpsertProfile(st ProfileAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile models.DomainProfile
		if err := c.ShouldBindJSON(&profile); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		profile.Domain = canonicalDomain(profile.Domain)
		if profile.Domain == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "domain is required"})
			return
		}
		if profile.RenderDelayMs < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "renderDelayMs must be non-negative"})
			return
		}

		if err := st.Upsert(c.Request.Context(), &profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		stored, err := st.Get(c.Request.Context(), profile.Domain)
		if err != nil || stored == nil {
			c.JSON(http.StatusOK, profile)
			return
		}
		c.JSON(http.StatusOK, stored)
	}
}

// DeleteProfile returns the handler for DELETE /api/domain-profiles/:domain.
func DeleteProfile(st ProfileAdmin) gin.HandlerFunc {
	return func(c *gin.Context) {
		domain := canonicalDomain(c.Param("domain"))
		existed, err := st.Delete(c.Request.Context(), domain)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		if !existed {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "no profile for " + domain})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "domain": domain})
	}
}

// canonicalDomain normalizes an operator-supplied domain the same way fetch
// URLs are keyed.
func canonicalDomain(domain string) string {
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return engine.ExtractDomain(domain)
}
