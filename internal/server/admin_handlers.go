package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/appplaybook/backend/internal/catalog"
	"github.com/appplaybook/backend/internal/storage"
)

func (h *httpHandler) handleAdminListCaseStudies(c *gin.Context) {
	studies := h.catalog.List(c.Request.Context(), catalog.Filter{})
	c.JSON(http.StatusOK, gin.H{"case_studies": studies})
}

func (h *httpHandler) handleAdminGetCaseStudy(c *gin.Context) {
	study, err := h.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch_failed"})
		return
	}
	c.JSON(http.StatusOK, study)
}

func (h *httpHandler) handleAdminCreateCaseStudy(c *gin.Context) {
	var input catalog.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	study, err := h.catalog.Create(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidSlug) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_slug"})
			return
		}
		h.logger.Error("case study creation failed", zap.String("slug", input.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
		return
	}

	h.publishContentEvent(study)
	c.JSON(http.StatusCreated, study)
}

func (h *httpHandler) handleAdminUpdateCaseStudy(c *gin.Context) {
	var input catalog.Input
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	study, err := h.catalog.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		case errors.Is(err, catalog.ErrInvalidSlug):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_slug"})
		default:
			h.logger.Error("case study update failed", zap.String("case_study_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
		}
		return
	}

	h.publishContentEvent(study)
	c.JSON(http.StatusOK, study)
}

func (h *httpHandler) handleAdminDeleteCaseStudy(c *gin.Context) {
	id := c.Param("id")
	err := h.catalog.Delete(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("case study deletion failed", zap.String("case_study_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}

	if h.events != nil {
		h.events.Publish(ContentEvent{
			EventType:   ContentEventCaseStudyChanged,
			CaseStudyID: id,
			Timestamp:   time.Now().UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleUploadScreenshot(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if fileHeader.Size > storage.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_too_large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.uploader.Save(data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": "file_too_large"})
		case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrEmptyFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_file_type"})
		default:
			h.logger.Error("screenshot upload failed", zap.String("file", fileHeader.Filename), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) publishContentEvent(study *catalog.CaseStudy) {
	if h.events == nil || study == nil {
		return
	}
	h.events.Publish(ContentEvent{
		EventType:   ContentEventCaseStudyChanged,
		CaseStudyID: study.ID,
		Slug:        study.Slug,
		Timestamp:   time.Now().UTC(),
	})
}
