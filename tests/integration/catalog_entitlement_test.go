package integration

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	stripe "github.com/stripe/stripe-go/v78"
	stripewebhook "github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"

	"github.com/appplaybook/backend/internal/access"
	"github.com/appplaybook/backend/internal/auth"
	"github.com/appplaybook/backend/internal/billing"
	"github.com/appplaybook/backend/internal/catalog"
	"github.com/appplaybook/backend/internal/database"
	"github.com/appplaybook/backend/internal/server"
	"github.com/appplaybook/backend/internal/storage"
	"github.com/appplaybook/backend/internal/users"
)

const (
	issuer        = "https://auth.example.com/v1"
	webhookSecret = "whsec_integration"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type gateway struct{}

func (gateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	return "cus_integration", nil
}

func (gateway) CreateCheckoutSession(ctx context.Context, spec billing.CheckoutSpec) (string, error) {
	return "https://checkout.example.com/session", nil
}

type stack struct {
	handler    http.Handler
	privateKey *rsa.PrivateKey
	users      *users.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{map[string]string{
			"kty": "RSA",
			"alg": "RS256",
			"kid": "integration-key",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(privateKey.PublicKey.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privateKey.PublicKey.E)).Bytes()),
		}}})
	}))
	t.Cleanup(jwksServer.Close)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "integration.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	verifier, err := auth.NewProviderVerifier(auth.ProviderVerifierConfig{
		Issuer:     issuer,
		JWKSURL:    jwksServer.URL,
		HTTPClient: jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("failed to build verifier: %v", err)
	}

	userService := users.NewService(users.ServiceConfig{Database: db})
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Database:   db,
		IDProvider: catalog.NewUUIDProvider(),
	})
	if err != nil {
		t.Fatalf("failed to build catalog service: %v", err)
	}
	billingService, err := billing.NewService(billing.ServiceConfig{
		Gateway:       gateway{},
		Users:         userService,
		WebhookSecret: webhookSecret,
		AppBaseURL:    "https://appplaybook.example.com",
	})
	if err != nil {
		t.Fatalf("failed to build billing service: %v", err)
	}
	store, err := storage.NewDiskStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	uploader, err := storage.NewUploader(storage.UploaderConfig{Store: store})
	if err != nil {
		t.Fatalf("failed to build uploader: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Verifier: verifier,
		Users:    userService,
		Catalog:  catalogService,
		Access:   access.NewEvaluator(access.EvaluatorConfig{Users: userService}),
		Billing:  billingService,
		Uploader: uploader,
		Events:   server.NewContentEventDispatcher(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return &stack{handler: handler, privateKey: privateKey, users: userService}
}

func (s *stack) tokenFor(t *testing.T, subject, email string) string {
	t.Helper()
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"aud":   "authenticated",
		"iss":   issuer,
		"sub":   subject,
		"email": email,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
	})
	token.Header["kid"] = "integration-key"
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func (s *stack) do(t *testing.T, method, target, token string, body string, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func TestAdminPublishReaderPurchaseFlow(t *testing.T) {
	testStack := newStack(t)
	ctx := context.Background()

	adminToken := testStack.tokenFor(t, "admin-1", "admin@example.com")
	readerToken := testStack.tokenFor(t, "reader-1", "reader@example.com")

	// First authenticated request provisions each identity on the free tier.
	if code := testStack.do(t, http.MethodGet, "/api/me", adminToken, "", "").Code; code != http.StatusOK {
		t.Fatalf("expected admin provisioning, got %d", code)
	}
	if code := testStack.do(t, http.MethodGet, "/api/me", readerToken, "", "").Code; code != http.StatusOK {
		t.Fatalf("expected reader provisioning, got %d", code)
	}

	// The admin surface is closed until the flag is granted out of band.
	if code := testStack.do(t, http.MethodPost, "/api/admin/case-studies", adminToken, "{}", "application/json").Code; code != http.StatusForbidden {
		t.Fatalf("expected 403 before admin grant, got %d", code)
	}
	if err := testStack.users.SetAdmin(ctx, "admin-1", true); err != nil {
		t.Fatalf("admin grant failed: %v", err)
	}

	// Admin publishes a locked case study with a nested tree.
	input := catalog.Input{
		Slug:   "headway",
		Title:  "Headway",
		IsFree: false,
		Sections: []catalog.SectionInput{
			{
				SectionID:    "onboarding",
				SectionLabel: "Onboarding",
				Accordions:   []catalog.AccordionInput{{Title: "Quiz flow", Content: "See [Screen 1]"}},
				Screenshots:  []catalog.ScreenshotInput{{URL: "/uploads/quiz.png"}},
			},
		},
	}
	payload, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	created := testStack.do(t, http.MethodPost, "/api/admin/case-studies", adminToken, string(payload), "application/json")
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}

	// The reader sees the card but not the content.
	lockedView := testStack.do(t, http.MethodGet, "/api/case-studies/headway", readerToken, "", "")
	if lockedView.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", lockedView.Code)
	}
	if !strings.Contains(lockedView.Body.String(), `"locked":true`) {
		t.Fatalf("expected locked view, got %s", lockedView.Body.String())
	}

	// Checkout redirects to the hosted session.
	checkout := testStack.do(t, http.MethodPost, "/api/checkout", readerToken, "priceType=lifetime", "application/x-www-form-urlencoded")
	if checkout.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", checkout.Code, checkout.Body.String())
	}

	// The provider confirms the purchase over the webhook.
	event := fmt.Sprintf(`{"type":"checkout.session.completed","api_version":%q,"data":{"object":{"metadata":{"user_id":"reader-1","price_type":"lifetime"}}}}`, stripe.APIVersion)
	now := time.Now()
	signature := stripewebhook.ComputeSignature(now, []byte(event), webhookSecret)
	request := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(event))
	request.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature)))
	recorder := httptest.NewRecorder()
	testStack.handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected webhook 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	// Entitlement unlocks the content without a new session.
	unlockedView := testStack.do(t, http.MethodGet, "/api/case-studies/headway", readerToken, "", "")
	if !strings.Contains(unlockedView.Body.String(), `"locked":false`) {
		t.Fatalf("expected unlocked view, got %s", unlockedView.Body.String())
	}
	if !strings.Contains(unlockedView.Body.String(), "Quiz flow") {
		t.Fatalf("expected accordion content in unlocked view")
	}
}
