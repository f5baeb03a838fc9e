package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/appplaybook/backend/internal/access"
	"github.com/appplaybook/backend/internal/auth"
	"github.com/appplaybook/backend/internal/billing"
	"github.com/appplaybook/backend/internal/catalog"
	"github.com/appplaybook/backend/internal/storage"
	"github.com/appplaybook/backend/internal/users"
)

const userContextKey = "appplaybook_user"

var (
	errMissingVerifier       = errors.New("token verifier dependency required")
	errMissingUsersService   = errors.New("users service dependency required")
	errMissingCatalogService = errors.New("catalog service dependency required")
	errMissingEvaluator      = errors.New("access evaluator dependency required")
)

// TokenVerifier validates a request's access token and returns its claims.
type TokenVerifier interface {
	VerifyRequest(r *http.Request) (auth.ProviderClaims, error)
}

// Dependencies wires the HTTP layer to the domain services. Billing,
// Uploader and StaticDirectory are optional: their routes are only
// registered when the dependency is present.
type Dependencies struct {
	Verifier        TokenVerifier
	Users           *users.Service
	Catalog         *catalog.Service
	Access          *access.Evaluator
	Billing         *billing.Service
	Uploader        *storage.Uploader
	Events          *ContentEventDispatcher
	StaticDirectory string
	StaticBasePath  string
	Logger          *zap.Logger
}

// NewHTTPHandler assembles the API router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Verifier == nil {
		return nil, errMissingVerifier
	}
	if deps.Users == nil {
		return nil, errMissingUsersService
	}
	if deps.Catalog == nil {
		return nil, errMissingCatalogService
	}
	if deps.Access == nil {
		return nil, errMissingEvaluator
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "Stripe-Signature"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		verifier: deps.Verifier,
		users:    deps.Users,
		catalog:  deps.Catalog,
		access:   deps.Access,
		billing:  deps.Billing,
		uploader: deps.Uploader,
		events:   deps.Events,
		logger:   logger,
	}

	api := router.Group("/api")
	api.Use(handler.authenticate)

	api.GET("/case-studies", handler.handleListCaseStudies)
	api.GET("/case-studies/:slug", handler.handleGetCaseStudy)
	api.GET("/me", handler.requireUser, handler.handleCurrentUser)
	api.GET("/events", handler.requireUser, handler.handleEventStream)

	if deps.Billing != nil {
		api.POST("/checkout", handler.requireUser, handler.handleCheckout)
		api.POST("/webhooks/stripe", handler.handleStripeWebhook)
	}

	admin := api.Group("/admin")
	admin.Use(handler.requireUser, handler.requireAdmin)
	admin.GET("/case-studies", handler.handleAdminListCaseStudies)
	admin.POST("/case-studies", handler.handleAdminCreateCaseStudy)
	admin.GET("/case-studies/:id", handler.handleAdminGetCaseStudy)
	admin.PUT("/case-studies/:id", handler.handleAdminUpdateCaseStudy)
	admin.DELETE("/case-studies/:id", handler.handleAdminDeleteCaseStudy)
	if deps.Uploader != nil {
		admin.POST("/upload-screenshot", handler.handleUploadScreenshot)
	}

	if deps.StaticDirectory != "" {
		basePath := deps.StaticBasePath
		if basePath == "" {
			basePath = "/uploads"
		}
		router.Static(basePath, deps.StaticDirectory)
	}

	return router, nil
}

type httpHandler struct {
	verifier TokenVerifier
	users    *users.Service
	catalog  *catalog.Service
	access   *access.Evaluator
	billing  *billing.Service
	uploader *storage.Uploader
	events   *ContentEventDispatcher
	logger   *zap.Logger
}

// authenticate resolves the request's user when a valid token is present
// and continues anonymously otherwise. It never aborts: gating is the job
// of requireUser and requireAdmin, and the public catalog routes serve
// anonymous visitors the locked projection.
func (h *httpHandler) authenticate(c *gin.Context) {
	claims, err := h.verifier.VerifyRequest(c.Request)
	if err != nil {
		c.Next()
		return
	}
	user, err := h.users.Resolve(c.Request.Context(), claims)
	if err != nil {
		h.logger.Warn("user resolution failed", zap.String("subject", claims.Subject), zap.Error(err))
		c.Next()
		return
	}
	c.Set(userContextKey, user)
	c.Next()
}

func (h *httpHandler) requireUser(c *gin.Context) {
	if currentUser(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (h *httpHandler) requireAdmin(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !user.IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) *users.User {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, ok := value.(*users.User)
	if !ok {
		return nil
	}
	return user
}

func (h *httpHandler) handleCurrentUser(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"id":                  user.ID,
		"email":               user.Email,
		"subscription_status": user.SubscriptionStatus,
		"is_admin":            user.IsAdmin,
	})
}
