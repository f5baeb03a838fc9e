package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/appplaybook/backend/internal/billing"
)

// maxWebhookBytes bounds the webhook body read; provider events are small.
const maxWebhookBytes = 1 << 20

func (h *httpHandler) handleCheckout(c *gin.Context) {
	priceType := c.PostForm("priceType")
	if priceType == "" {
		var body struct {
			PriceType string `json:"priceType"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			priceType = body.PriceType
		}
	}

	plan, err := billing.ParsePlan(priceType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_price_type"})
		return
	}

	user := currentUser(c)
	redirectURL, err := h.billing.StartCheckout(c.Request.Context(), user.ID, plan)
	if err != nil {
		h.logger.Error("checkout start failed", zap.String("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout_failed"})
		return
	}

	c.Redirect(http.StatusSeeOther, redirectURL)
}

// handleStripeWebhook reads the raw body before any parsing: signature
// verification hashes the exact bytes the provider sent.
func (h *httpHandler) handleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err = h.billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, billing.ErrInvalidSignature) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
		return
	}
	if err != nil {
		h.logger.Error("webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
