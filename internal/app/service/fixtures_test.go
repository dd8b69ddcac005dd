package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/repository"
	"github.com/ikkim/staycert-backend/internal/app/workflow"
	"github.com/ikkim/staycert-backend/internal/db"
	"github.com/ikkim/staycert-backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type notifyCall struct {
	UserID  uint
	Event   model.NotificationType
	Payload NotificationPayload
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) Notify(userID uint, event model.NotificationType, payload NotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{UserID: userID, Event: event, Payload: payload})
}

func (n *recordingNotifier) eventsFor(userID uint) []model.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	var events []model.NotificationType
	for _, c := range n.calls {
		if c.UserID == userID {
			events = append(events, c.Event)
		}
	}
	return events
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAuditor) Record(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAuditor) actions() []model.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]model.AuditAction, 0, len(a.entries))
	for _, e := range a.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

type serviceFixture struct {
	db       *gorm.DB
	metrics  *metrics.Metrics
	notifier *recordingNotifier
	auditor  *recordingAuditor

	appRepo      repository.ApplicationRepository
	certRepo     repository.CertificationRepository
	templateRepo repository.TemplateRepository

	documents DocumentService
	payments  PaymentService
	apps      ApplicationService
	reviews   ReviewService
	issuer    *certificationIssuer
	certs     CertificationService
	templates TemplateService

	propertyType *model.PropertyType
	items        []model.ChecklistItem
	template     *model.CertificateTemplate

	host     model.Actor
	other    model.Actor
	reviewer model.Actor
	admin    model.Actor
}

func newServiceFixture(t *testing.T) *serviceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	f := &serviceFixture{
		db:       testDB,
		metrics:  metrics.New(prometheus.NewRegistry()),
		notifier: &recordingNotifier{},
		auditor:  &recordingAuditor{},
	}

	f.host = createActor(t, testDB, "host@example.com", model.RoleHost)
	f.other = createActor(t, testDB, "other@example.com", model.RoleHost)
	f.reviewer = createActor(t, testDB, "reviewer@example.com", model.RoleReviewer)
	f.admin = createActor(t, testDB, "admin@example.com", model.RoleAdmin)

	f.propertyType = &model.PropertyType{Name: "Apartment"}
	require.NoError(t, testDB.Create(f.propertyType).Error)
	for i, name := range []string{"Smoke detector", "Fire extinguisher", "First aid kit"} {
		item := model.ChecklistItem{PropertyTypeID: f.propertyType.ID, Name: name, SortOrder: i + 1}
		require.NoError(t, testDB.Create(&item).Error)
		f.items = append(f.items, item)
	}
	f.template = &model.CertificateTemplate{
		PropertyTypeID: f.propertyType.ID,
		Name:           "Apartment standard",
		ValidityMonths: 12,
		IsActive:       true,
	}
	require.NoError(t, testDB.Create(f.template).Error)

	userRepo := repository.NewUserRepository(testDB)
	propertyTypeRepo := repository.NewPropertyTypeRepository(testDB)
	f.appRepo = repository.NewApplicationRepository(testDB)
	f.certRepo = repository.NewCertificationRepository(testDB)
	f.templateRepo = repository.NewTemplateRepository(testDB)

	f.documents = NewDocumentService(repository.NewDocumentRepository(testDB))
	f.payments = NewPaymentService(repository.NewPaymentRepository(testDB), f.appRepo)
	f.apps = NewApplicationService(f.appRepo, propertyTypeRepo, repository.NewChecklistRepository(testDB),
		userRepo, f.documents, f.notifier, f.auditor, f.metrics)
	f.issuer = NewCertificationIssuer(f.appRepo, f.templateRepo, f.certRepo, f.documents, f.payments, nil,
		f.notifier, f.auditor, f.metrics, IssuerConfig{VerificationBaseURL: "https://verify.example.com"}).(*certificationIssuer)
	f.reviews = NewReviewService(f.appRepo, userRepo, f.documents, f.issuer, f.notifier, f.auditor, f.metrics)
	f.certs = NewCertificationService(f.certRepo, f.appRepo, f.notifier, f.auditor, f.metrics,
		LifecycleConfig{DefaultValidityMonths: 12, ExpiryWarningDays: 30})
	f.templates = NewTemplateService(f.templateRepo, propertyTypeRepo, f.auditor)
	return f
}

func createActor(t *testing.T, testDB *gorm.DB, email string, role model.UserRole) model.Actor {
	user := &model.User{Email: email, Name: email, Role: role}
	require.NoError(t, testDB.Create(user).Error)
	return model.Actor{UserID: user.ID, Role: role}
}

func (f *serviceFixture) validDetails() model.PropertyDetails {
	return model.PropertyDetails{
		PropertyName:   "Harbour View",
		PropertyTypeID: f.propertyType.ID,
		Address:        "12 Quay Street",
		City:           "Dublin",
		Bedrooms:       2,
		Bathrooms:      1,
		MaxGuests:      4,
	}
}

func (f *serviceFixture) fullChecklist() *workflow.ChecklistSubmission {
	values := make(map[string]bool, len(f.items))
	for _, item := range f.items {
		values[item.Name] = true
	}
	sub := workflow.ChecklistFromMap(values)
	return &sub
}

func requiredDocuments() []DocumentInput {
	docs := make([]DocumentInput, 0, len(model.RequiredDocumentTypes))
	for _, t := range model.RequiredDocumentTypes {
		docs = append(docs, DocumentInput{
			DocumentType: t,
			FileName:     string(t) + ".pdf",
			FileURL:      fmt.Sprintf("https://files.example.com/%s.pdf", t),
		})
	}
	return docs
}

// submittedApplication walks a new draft through every step to SUBMITTED.
func (f *serviceFixture) submittedApplication(t *testing.T) *model.Application {
	app, err := f.apps.Create(f.validDetails(), f.host.UserID)
	require.NoError(t, err)

	steps := []struct {
		step model.ApplicationStep
		data StepData
	}{
		{model.StepComplianceChecklist, StepData{}},
		{model.StepDocumentUpload, StepData{Checklist: f.fullChecklist()}},
		{model.StepPayment, StepData{Documents: requiredDocuments()}},
		{model.StepSubmission, StepData{}},
	}
	for _, s := range steps {
		app, err = f.apps.UpdateStep(app.ID, s.step, s.data, f.host)
		require.NoError(t, err, "step %s", s.step)
	}
	require.Equal(t, model.ApplicationStatusSubmitted, app.Status)
	return app
}

// underReviewApplication returns a submitted application assigned to the fixture reviewer.
func (f *serviceFixture) underReviewApplication(t *testing.T) *model.Application {
	app := f.submittedApplication(t)
	app, err := f.reviews.AssignReviewer(app.ID, 0, f.reviewer)
	require.NoError(t, err)
	return app
}

func (f *serviceFixture) recordCompletedPayment(t *testing.T, applicationID uint) {
	_, err := f.payments.RecordPayment(applicationID, RecordPaymentInput{
		Amount: 150,
		Status: model.PaymentStatusCompleted,
	})
	require.NoError(t, err)
}

// approvedApplication writes an APPROVED application with documents and, optionally, a completed payment.
func (f *serviceFixture) approvedApplication(t *testing.T, paid bool) *model.Application {
	app := &model.Application{
		HostID:          f.host.UserID,
		Status:          model.ApplicationStatusApproved,
		CurrentStep:     model.StepSubmission,
		PropertyDetails: f.validDetails(),
	}
	require.NoError(t, f.appRepo.Create(app))
	_, err := f.documents.AddDocuments(app.ID, requiredDocuments())
	require.NoError(t, err)
	if paid {
		f.recordCompletedPayment(t, app.ID)
	}
	return app
}

// issuedCertification issues a certification for a fresh approved and paid application.
func (f *serviceFixture) issuedCertification(t *testing.T) *model.Certification {
	app := f.approvedApplication(t, true)
	cert, err := f.issuer.GenerateCertification(app.ID, f.reviewer.UserID)
	require.NoError(t, err)
	return cert
}

// insertCertification writes an ACTIVE certification expiring at expiresAt for a fresh application.
func (f *serviceFixture) insertCertification(t *testing.T, number string, expiresAt time.Time) *model.Certification {
	app := f.approvedApplication(t, false)
	cert := &model.Certification{
		ApplicationID:     app.ID,
		TemplateID:        f.template.ID,
		HostID:            app.HostID,
		CertificateNumber: number,
		VerificationToken: "token-" + number,
		Status:            model.CertificationStatusActive,
		IssuedAt:          expiresAt.AddDate(-1, 0, 0),
		ExpiresAt:         expiresAt,
	}
	require.NoError(t, f.certRepo.CreateAndBind(cert))
	return cert
}
