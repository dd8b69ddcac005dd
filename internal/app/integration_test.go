package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/staycert-backend/config"
	"github.com/ikkim/staycert-backend/internal/app/controller"
	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/internal/app/service"
	"github.com/ikkim/staycert-backend/internal/db"
	"github.com/ikkim/staycert-backend/internal/metrics"
	"github.com/ikkim/staycert-backend/internal/middleware"
	"github.com/ikkim/staycert-backend/internal/router"
	"github.com/ikkim/staycert-backend/internal/storage"
	"github.com/ikkim/staycert-backend/internal/websocket"
	"github.com/ikkim/staycert-backend/pkg/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "integration-secret"

type fakePresigner struct{}

func (fakePresigner) GeneratePresignedURL(filename, contentType, folder string) (*storage.PresignedURLResponse, error) {
	key := folder + "/" + filename
	return &storage.PresignedURLResponse{
		UploadURL: "https://bucket.example.com/upload/" + key,
		FileURL:   "https://cdn.example.com/" + key,
		Key:       key,
	}, nil
}

func (fakePresigner) ValidateContentType(contentType string, allowedTypes []string) error {
	for _, t := range allowedTypes {
		if t == contentType {
			return nil
		}
	}
	return fmt.Errorf("content type %s is not allowed", contentType)
}

type TestServer struct {
	Router   *gin.Engine
	DB       *gorm.DB
	Tokens   map[model.UserRole]string
	Other    string
	Template *model.CertificateTemplate
	Items    []model.ChecklistItem
	TypeID   uint
}

func setupIntegrationTest(t *testing.T) *TestServer {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := websocket.NewHub()

	userRepo := repository.NewUserRepository(testDB)
	propertyTypeRepo := repository.NewPropertyTypeRepository(testDB)
	appRepo := repository.NewApplicationRepository(testDB)
	templateRepo := repository.NewTemplateRepository(testDB)
	certRepo := repository.NewCertificationRepository(testDB)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(testDB), hub)
	audit := service.NewAuditService(repository.NewAuditRepository(testDB))
	documents := service.NewDocumentService(repository.NewDocumentRepository(testDB))
	payments := service.NewPaymentService(repository.NewPaymentRepository(testDB), appRepo)

	issuer := service.NewCertificationIssuer(appRepo, templateRepo, certRepo, documents, payments, nil,
		notifications, audit, m, service.IssuerConfig{VerificationBaseURL: "https://verify.example.com"})
	applications := service.NewApplicationService(appRepo, propertyTypeRepo, repository.NewChecklistRepository(testDB),
		userRepo, documents, notifications, audit, m)
	reviews := service.NewReviewService(appRepo, userRepo, documents, issuer, notifications, audit, m)
	certifications := service.NewCertificationService(certRepo, appRepo, notifications, audit, m,
		service.LifecycleConfig{DefaultValidityMonths: 12, ExpiryWarningDays: 30})

	r := router.NewRouter(
		controller.NewApplicationController(applications, payments),
		controller.NewReviewController(reviews, issuer),
		controller.NewCertificationController(certifications),
		controller.NewTemplateController(service.NewTemplateService(templateRepo, propertyTypeRepo, audit),
			service.NewCatalogueService(propertyTypeRepo)),
		controller.NewNotificationController(notifications, hub, cfg.CORS.AllowedOrigins),
		controller.NewUploadController(fakePresigner{}, applications),
		middleware.NewAuthMiddleware(testJWTSecret),
		reg,
		cfg,
	)

	server := &TestServer{
		Router: r.Setup(),
		DB:     testDB,
		Tokens: make(map[model.UserRole]string),
	}

	for _, role := range []model.UserRole{model.RoleHost, model.RoleReviewer, model.RoleAdmin} {
		server.Tokens[role] = createUserWithToken(t, testDB, string(role)+"@example.com", role)
	}
	server.Other = createUserWithToken(t, testDB, "other@example.com", model.RoleHost)

	pt := &model.PropertyType{Name: "Apartment"}
	require.NoError(t, testDB.Create(pt).Error)
	server.TypeID = pt.ID
	for i, name := range []string{"Smoke detector", "Fire extinguisher"} {
		item := model.ChecklistItem{PropertyTypeID: pt.ID, Name: name, SortOrder: i + 1}
		require.NoError(t, testDB.Create(&item).Error)
		server.Items = append(server.Items, item)
	}
	server.Template = &model.CertificateTemplate{PropertyTypeID: pt.ID, Name: "Apartment", ValidityMonths: 12, IsActive: true}
	require.NoError(t, testDB.Create(server.Template).Error)

	return server
}

func createUserWithToken(t *testing.T, testDB *gorm.DB, email string, role model.UserRole) string {
	user := &model.User{Email: email, Name: email, Role: role}
	require.NoError(t, testDB.Create(user).Error)
	tokens, err := util.GenerateTokenPair(user.ID, email, string(role), testJWTSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return tokens.AccessToken
}

func (s *TestServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *TestServer) createDraft(t *testing.T) uint {
	w := s.do(t, http.MethodPost, "/api/v1/applications", s.Tokens[model.RoleHost], gin.H{
		"property_name":    "Harbour View",
		"property_type_id": s.TypeID,
		"address":          "12 Quay Street",
		"bedrooms":         2,
		"bathrooms":        1,
		"max_guests":       4,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	app := decode(t, w)["application"].(map[string]interface{})
	return uint(app["id"].(float64))
}

func TestIntegration_CertificationFlow(t *testing.T) {
	s := setupIntegrationTest(t)
	host := s.Tokens[model.RoleHost]
	reviewer := s.Tokens[model.RoleReviewer]

	id := s.createDraft(t)
	base := fmt.Sprintf("/api/v1/applications/%d", id)

	w := s.do(t, http.MethodPut, base+"/step", host, gin.H{"step": "COMPLIANCE_CHECKLIST"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	t.Run("incomplete checklist blocks the step", func(t *testing.T) {
		w := s.do(t, http.MethodPut, base+"/step", host, gin.H{
			"step":      "DOCUMENT_UPLOAD",
			"checklist": []gin.H{{"id": s.Items[0].ID, "checked": true}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "CHECKLIST_INCOMPLETE", body["error"])
		assert.Equal(t, []interface{}{"Fire extinguisher"}, body["details"])
	})

	t.Run("malformed checklist", func(t *testing.T) {
		w := s.do(t, http.MethodPut, base+"/step", host, gin.H{"step": "DOCUMENT_UPLOAD", "checklist": "A,B"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "CHECKLIST_INVALID_FORMAT", decode(t, w)["error"])
	})

	w = s.do(t, http.MethodPut, base+"/step", host, gin.H{
		"step": "DOCUMENT_UPLOAD",
		"checklist": []gin.H{
			{"id": s.Items[0].ID, "checked": true},
			{"name": "fire extinguisher", "checked": true},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/documents/presigned-url", host, gin.H{
		"filename": "deed.pdf", "content_type": "application/pdf",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w)["file_url"], fmt.Sprintf("documents/%d/", id))

	documents := make([]gin.H, 0, len(model.RequiredDocumentTypes))
	for _, dt := range model.RequiredDocumentTypes {
		documents = append(documents, gin.H{
			"document_type": dt,
			"file_name":     string(dt) + ".pdf",
			"file_url":      "https://cdn.example.com/" + string(dt) + ".pdf",
		})
	}
	w = s.do(t, http.MethodPut, base+"/step", host, gin.H{"step": "PAYMENT", "documents": documents})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, base+"/steps/SUBMISSION/validation", host, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["is_complete"])

	w = s.do(t, http.MethodPost, base+"/submit", host, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "SUBMITTED", decode(t, w)["application"].(map[string]interface{})["status"])

	w = s.do(t, http.MethodGet, "/api/v1/reviews/queue", reviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reviews/%d/assign", id), reviewer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "UNDER_REVIEW", decode(t, w)["application"].(map[string]interface{})["status"])

	w = s.do(t, http.MethodPost, base+"/payments", reviewer, gin.H{"amount": 150, "status": "COMPLETED"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reviews/%d/decision", id), reviewer, gin.H{
		"decision": "approve", "notes": "all good",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	outcome := decode(t, w)
	assert.Equal(t, false, outcome["partial_failure"])
	cert := outcome["certification"].(map[string]interface{})
	number := cert["certificate_number"].(string)
	assert.Regexp(t, `^CERT-\d{4}-\d{6}$`, number)

	w = s.do(t, http.MethodGet, "/api/v1/verify/"+number, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	verified := decode(t, w)
	assert.Equal(t, true, verified["valid"])
	assert.Equal(t, "Harbour View", verified["property_name"])

	w = s.do(t, http.MethodGet, base+"/certification", host, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/certification", reviewer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CERTIFICATION_ALREADY_EXISTS", decode(t, w)["error"])

	certID := uint(cert["id"].(float64))
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/certifications/%d/revoke", certID), reviewer, gin.H{"reason": "complaint upheld"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/verify/"+number, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["is_revoked"])

	w = s.do(t, http.MethodGet, "/api/v1/notifications", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["notifications"])

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "staycert_certifications_issued_total 1")
}

func TestIntegration_AccessControl(t *testing.T) {
	s := setupIntegrationTest(t)
	id := s.createDraft(t)
	base := fmt.Sprintf("/api/v1/applications/%d", id)

	w := s.do(t, http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, base, s.Other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "AUTHZ_OWNER_ONLY", decode(t, w)["error"])

	w = s.do(t, http.MethodGet, base, s.Tokens[model.RoleReviewer], nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/applications/abc", s.Tokens[model.RoleHost], nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_INVALID_ID", decode(t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/v1/reviews/queue", s.Tokens[model.RoleHost], nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/applications", s.Tokens[model.RoleReviewer], gin.H{"property_type_id": s.TypeID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/templates", s.Tokens[model.RoleReviewer], gin.H{
		"property_type_id": s.TypeID, "name": "x", "validity_months": 6,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/certifications/bulk/revoke", s.Tokens[model.RoleReviewer], gin.H{
		"ids": []uint{1}, "reason": "x",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, base+"/step", s.Tokens[model.RoleHost], gin.H{"step": "PAYMENT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "APPLICATION_STEP_SKIP", decode(t, w)["error"])

	w = s.do(t, http.MethodDelete, base, s.Tokens[model.RoleHost], nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIntegration_TemplatesAndExpiry(t *testing.T) {
	s := setupIntegrationTest(t)
	admin := s.Tokens[model.RoleAdmin]

	w := s.do(t, http.MethodPost, "/api/v1/templates", admin, gin.H{
		"property_type_id": s.TypeID, "name": "Apartment 2027", "validity_months": 24, "activate": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/templates?property_type_id=%d", s.TypeID), s.Tokens[model.RoleReviewer], nil)
	require.Equal(t, http.StatusOK, w.Code)
	templates := decode(t, w)["templates"].([]interface{})
	require.Len(t, templates, 2)
	active := 0
	for _, tpl := range templates {
		if tpl.(map[string]interface{})["is_active"] == true {
			active++
		}
	}
	assert.Equal(t, 1, active)

	w = s.do(t, http.MethodGet, "/api/v1/templates", s.Tokens[model.RoleReviewer], nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/certifications/expiry-check?warning_days=15", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(15), decode(t, w)["warning_days"])

	w = s.do(t, http.MethodGet, "/api/v1/property-types", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/property-types/%d/checklist", s.TypeID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 2)

	w = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
