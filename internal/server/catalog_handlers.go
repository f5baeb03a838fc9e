package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/appplaybook/backend/internal/access"
	"github.com/appplaybook/backend/internal/catalog"
)

// caseStudyView is the public projection of a case study. Locked entries
// keep their card metadata so the catalog grid can render a teaser, but
// the section tree and long-form content are stripped server-side.
type caseStudyView struct {
	ID              string             `json:"id"`
	Slug            string             `json:"slug"`
	Title           string             `json:"title"`
	Category        string             `json:"category"`
	Revenue         string             `json:"revenue"`
	Downloads       string             `json:"downloads"`
	FounderType     string             `json:"founder_type"`
	BusinessModel   string             `json:"business_model"`
	IsFree          bool               `json:"is_free"`
	Description     string             `json:"description"`
	AppIcon         string             `json:"app_icon"`
	Rating          float64            `json:"rating"`
	OnboardingSteps int                `json:"onboarding_steps"`
	Developer       string             `json:"developer"`
	Content         string             `json:"content,omitempty"`
	PublishedAt     time.Time          `json:"published_at"`
	Locked          bool               `json:"locked"`
	Sections        []*catalog.Section `json:"sections,omitempty"`
}

func projectCaseStudy(study *catalog.CaseStudy, unlocked bool) caseStudyView {
	view := caseStudyView{
		ID:              study.ID,
		Slug:            study.Slug,
		Title:           study.Title,
		Category:        study.Category,
		Revenue:         study.Revenue,
		Downloads:       study.Downloads,
		FounderType:     study.FounderType,
		BusinessModel:   study.BusinessModel,
		IsFree:          study.IsFree,
		Description:     study.Description,
		AppIcon:         study.AppIcon,
		Rating:          study.Rating,
		OnboardingSteps: study.OnboardingSteps,
		Developer:       study.Developer,
		PublishedAt:     study.PublishedAt,
		Locked:          !unlocked,
	}
	if unlocked {
		view.Content = study.Content
		view.Sections = study.Sections
	}
	return view
}

func (h *httpHandler) handleListCaseStudies(c *gin.Context) {
	studies := h.catalog.List(c.Request.Context(), catalog.Filter{})

	user := currentUser(c)
	views := make([]caseStudyView, 0, len(studies))
	for _, study := range studies {
		views = append(views, projectCaseStudy(study, access.Evaluate(study.IsFree, user)))
	}
	c.JSON(http.StatusOK, gin.H{"case_studies": views})
}

func (h *httpHandler) handleGetCaseStudy(c *gin.Context) {
	study, err := h.catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("case study fetch failed", zap.String("slug", c.Param("slug")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch_failed"})
		return
	}

	c.JSON(http.StatusOK, projectCaseStudy(study, access.Evaluate(study.IsFree, currentUser(c))))
}

func (h *httpHandler) handleEventStream(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	stream, cleanup := h.events.Subscribe(c.Request.Context())
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			c.SSEvent(contentEventHeartbeat, gin.H{"time": time.Now().UTC().Unix()})
			c.Writer.Flush()
		case event, ok := <-stream:
			if !ok {
				return
			}
			c.SSEvent(event.EventType, gin.H{
				"case_study_id": event.CaseStudyID,
				"slug":          event.Slug,
				"time":          event.Timestamp.UTC().Unix(),
			})
			c.Writer.Flush()
		}
	}
}
