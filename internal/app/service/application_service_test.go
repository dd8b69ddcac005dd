package service

import (
	"errors"
	"strconv"
	"testing"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/app/workflow"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationService_Create(t *testing.T) {
	f := newServiceFixture(t)

	t.Run("incomplete details still create a draft", func(t *testing.T) {
		app, err := f.apps.Create(model.PropertyDetails{PropertyTypeID: f.propertyType.ID}, f.host.UserID)
		require.NoError(t, err)
		assert.Equal(t, model.ApplicationStatusDraft, app.Status)
		assert.Equal(t, model.StepPropertyDetails, app.CurrentStep)

		v, err := f.apps.ValidateStep(app.ID, model.StepPropertyDetails, f.host)
		require.NoError(t, err)
		assert.False(t, v.IsComplete)
		assert.ElementsMatch(t, []string{"property_name", "address", "bedrooms", "bathrooms", "max_guests"}, v.Missing)
		assert.True(t, errors.Is(v.Err(), workflow.ErrPropertyDetailsIncomplete))
	})

	t.Run("unknown property type", func(t *testing.T) {
		details := f.validDetails()
		details.PropertyTypeID = 9999
		_, err := f.apps.Create(details, f.host.UserID)
		assert.True(t, errors.Is(err, ErrPropertyTypeNotFound))
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("missing property type", func(t *testing.T) {
		details := f.validDetails()
		details.PropertyTypeID = 0
		_, err := f.apps.Create(details, f.host.UserID)
		assert.True(t, errors.Is(err, ErrPropertyTypeNotFound))
	})

	assert.Contains(t, f.auditor.actions(), model.AuditActionApplicationCreated)
}

func TestApplicationService_Ownership(t *testing.T) {
	f := newServiceFixture(t)
	app, err := f.apps.Create(f.validDetails(), f.host.UserID)
	require.NoError(t, err)

	_, err = f.apps.Get(app.ID, f.other)
	assert.True(t, errors.Is(err, ErrApplicationForbidden))

	_, err = f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{}, f.other)
	assert.True(t, errors.Is(err, ErrApplicationForbidden))

	got, err := f.apps.Get(app.ID, f.reviewer)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	_, err = f.apps.Get(424242, f.host)
	assert.True(t, errors.Is(err, ErrApplicationNotFound))
}

func TestApplicationService_UpdateStep_Transitions(t *testing.T) {
	f := newServiceFixture(t)
	app, err := f.apps.Create(f.validDetails(), f.host.UserID)
	require.NoError(t, err)

	t.Run("skipping ahead is rejected", func(t *testing.T) {
		_, err := f.apps.UpdateStep(app.ID, model.StepDocumentUpload, StepData{}, f.host)
		assert.True(t, errors.Is(err, workflow.ErrStepSkip))
	})

	t.Run("unknown step is rejected", func(t *testing.T) {
		_, err := f.apps.UpdateStep(app.ID, model.ApplicationStep("SHIPPING"), StepData{}, f.host)
		assert.True(t, errors.Is(err, workflow.ErrInvalidStep))
	})

	t.Run("forward move validates the current step", func(t *testing.T) {
		incomplete := f.validDetails()
		incomplete.Bedrooms = 0
		_, err := f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{PropertyDetails: &incomplete}, f.host)
		require.Error(t, err)
		assert.True(t, errors.Is(err, workflow.ErrPropertyDetailsIncomplete))

		reloaded, err := f.apps.Get(app.ID, f.host)
		require.NoError(t, err)
		assert.Equal(t, 2, reloaded.PropertyDetails.Bedrooms, "rejected update must not be persisted")
	})

	t.Run("rejected move keeps its documents out", func(t *testing.T) {
		incomplete := f.validDetails()
		incomplete.Bedrooms = 0
		_, err := f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{
			PropertyDetails: &incomplete,
			Documents:       requiredDocuments(),
		}, f.host)
		require.Error(t, err)
		assert.True(t, errors.Is(err, workflow.ErrPropertyDetailsIncomplete))

		uploaded, err := f.documents.DocumentTypesUploaded(app.ID)
		require.NoError(t, err)
		assert.Empty(t, uploaded)
	})

	t.Run("advance and move back", func(t *testing.T) {
		updated, err := f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{}, f.host)
		require.NoError(t, err)
		assert.Equal(t, model.StepComplianceChecklist, updated.CurrentStep)

		edited := f.validDetails()
		edited.PropertyName = "Harbour View Loft"
		updated, err = f.apps.UpdateStep(app.ID, model.StepPropertyDetails, StepData{PropertyDetails: &edited}, f.host)
		require.NoError(t, err)
		assert.Equal(t, model.StepPropertyDetails, updated.CurrentStep)
		assert.Equal(t, "Harbour View Loft", updated.PropertyDetails.PropertyName)
	})

	t.Run("changing to a missing property type is rejected", func(t *testing.T) {
		details := f.validDetails()
		details.PropertyTypeID = 777
		_, err := f.apps.UpdateStep(app.ID, model.StepPropertyDetails, StepData{PropertyDetails: &details}, f.host)
		assert.True(t, errors.Is(err, ErrPropertyTypeNotFound))
	})
}

func TestApplicationService_ChecklistStep(t *testing.T) {
	f := newServiceFixture(t)
	app, err := f.apps.Create(f.validDetails(), f.host.UserID)
	require.NoError(t, err)
	_, err = f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{}, f.host)
	require.NoError(t, err)

	byID := workflow.ChecklistFromMap(map[string]bool{
		strconv.FormatUint(uint64(f.items[0].ID), 10): true,
		strconv.FormatUint(uint64(f.items[1].ID), 10): true,
	})
	byName := workflow.ChecklistFromMap(map[string]bool{
		f.items[0].Name: true,
		f.items[1].Name: true,
	})

	for name, sub := range map[string]workflow.ChecklistSubmission{"by id": byID, "by name": byName} {
		sub := sub
		t.Run(name, func(t *testing.T) {
			_, err := f.apps.UpdateStep(app.ID, model.StepDocumentUpload, StepData{Checklist: &sub}, f.host)
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ChecklistIncomplete, appErr.Code)
			assert.Equal(t, []string{"First aid kit"}, appErr.Details)
		})
	}

	t.Run("incomplete checklist is not persisted", func(t *testing.T) {
		updated, err := f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{Checklist: &byName}, f.host)
		require.NoError(t, err)
		assert.Equal(t, model.StepComplianceChecklist, updated.CurrentStep)
		assert.Empty(t, updated.ChecklistRecords)

		v, err := f.apps.ValidateStep(app.ID, model.StepComplianceChecklist, f.host)
		require.NoError(t, err)
		assert.False(t, v.IsComplete)
		assert.Len(t, v.Missing, 3)
	})

	t.Run("complete checklist advances and is a full replace", func(t *testing.T) {
		updated, err := f.apps.UpdateStep(app.ID, model.StepDocumentUpload, StepData{Checklist: f.fullChecklist()}, f.host)
		require.NoError(t, err)
		assert.Equal(t, model.StepDocumentUpload, updated.CurrentStep)

		var count int64
		require.NoError(t, f.db.Model(&model.ComplianceChecklistRecord{}).Where("application_id = ?", app.ID).Count(&count).Error)
		assert.Equal(t, int64(3), count)

		v, err := f.apps.ValidateStep(app.ID, model.StepComplianceChecklist, f.host)
		require.NoError(t, err)
		assert.True(t, v.IsComplete)
	})

	t.Run("moving back with an incomplete checklist keeps the stored one", func(t *testing.T) {
		_, err := f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{Checklist: &byID}, f.host)
		require.NoError(t, err)

		v, err := f.apps.ValidateStep(app.ID, model.StepComplianceChecklist, f.host)
		require.NoError(t, err)
		assert.True(t, v.IsComplete)
	})
}

func TestApplicationService_DocumentStepAndShortcut(t *testing.T) {
	f := newServiceFixture(t)
	app, err := f.apps.Create(f.validDetails(), f.host.UserID)
	require.NoError(t, err)
	_, err = f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{}, f.host)
	require.NoError(t, err)
	_, err = f.apps.UpdateStep(app.ID, model.StepDocumentUpload, StepData{Checklist: f.fullChecklist()}, f.host)
	require.NoError(t, err)

	partial := requiredDocuments()[:2]
	_, err = f.apps.UpdateStep(app.ID, model.StepPayment, StepData{Documents: partial}, f.host)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDocumentsIncomplete))
	uploaded, err := f.documents.DocumentTypesUploaded(app.ID)
	require.NoError(t, err)
	assert.Empty(t, uploaded)

	_, err = f.apps.UpdateStep(app.ID, model.StepDocumentUpload, StepData{
		Documents: []DocumentInput{{DocumentType: "PASSPORT_SCAN", FileURL: "https://files.example.com/x.pdf"}},
	}, f.host)
	assert.True(t, errors.Is(err, ErrInvalidDocumentType))

	// DOCUMENT_UPLOAD may jump straight to SUBMISSION
	submitted, err := f.apps.UpdateStep(app.ID, model.StepSubmission, StepData{Documents: requiredDocuments()}, f.host)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusSubmitted, submitted.Status)
	assert.Equal(t, model.StepSubmission, submitted.CurrentStep)
	require.NotNil(t, submitted.SubmittedAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ApplicationsSubmitted))
	assert.Contains(t, f.notifier.eventsFor(f.reviewer.UserID), model.NotificationTypeApplicationSubmitted)
	assert.Contains(t, f.notifier.eventsFor(f.admin.UserID), model.NotificationTypeApplicationSubmitted)
	assert.Empty(t, f.notifier.eventsFor(f.other.UserID))
	assert.Contains(t, f.auditor.actions(), model.AuditActionApplicationSubmitted)
}

func TestApplicationService_NotEditableAfterSubmission(t *testing.T) {
	f := newServiceFixture(t)
	app := f.submittedApplication(t)

	for _, step := range workflow.Steps() {
		_, err := f.apps.UpdateStep(app.ID, step, StepData{}, f.host)
		assert.True(t, errors.Is(err, ErrApplicationNotEditable), "step %s", step)
	}
	_, err := f.apps.Submit(app.ID, f.host)
	assert.True(t, errors.Is(err, ErrApplicationNotEditable))
}

func TestApplicationService_Submit(t *testing.T) {
	f := newServiceFixture(t)

	t.Run("incomplete application cannot be submitted", func(t *testing.T) {
		app, err := f.apps.Create(f.validDetails(), f.host.UserID)
		require.NoError(t, err)
		_, err = f.apps.Submit(app.ID, f.host)
		require.Error(t, err)
		assert.True(t, errors.Is(err, workflow.ErrChecklistIncomplete))
	})

	t.Run("only the owner submits", func(t *testing.T) {
		app, err := f.apps.Create(f.validDetails(), f.host.UserID)
		require.NoError(t, err)
		_, err = f.apps.Submit(app.ID, f.reviewer)
		assert.True(t, errors.Is(err, ErrApplicationForbidden))
	})

	t.Run("complete application is submitted", func(t *testing.T) {
		app, err := f.apps.Create(f.validDetails(), f.host.UserID)
		require.NoError(t, err)
		_, err = f.apps.UpdateStep(app.ID, model.StepComplianceChecklist, StepData{}, f.host)
		require.NoError(t, err)
		_, err = f.apps.UpdateStep(app.ID, model.StepDocumentUpload, StepData{Checklist: f.fullChecklist()}, f.host)
		require.NoError(t, err)
		_, err = f.apps.UpdateStep(app.ID, model.StepDocumentUpload, StepData{Documents: requiredDocuments()}, f.host)
		require.NoError(t, err)

		submitted, err := f.apps.Submit(app.ID, f.host)
		require.NoError(t, err)
		assert.Equal(t, model.ApplicationStatusSubmitted, submitted.Status)
		assert.Equal(t, model.StepSubmission, submitted.CurrentStep)
		assert.NotNil(t, submitted.SubmittedAt)
	})
}

func TestApplicationService_Delete(t *testing.T) {
	f := newServiceFixture(t)

	draft, err := f.apps.Create(f.validDetails(), f.host.UserID)
	require.NoError(t, err)

	err = f.apps.Delete(draft.ID, f.other)
	assert.True(t, errors.Is(err, ErrApplicationForbidden))

	require.NoError(t, f.apps.Delete(draft.ID, f.host))
	_, err = f.apps.Get(draft.ID, f.host)
	assert.True(t, errors.Is(err, ErrApplicationNotFound))

	submitted := f.submittedApplication(t)
	err = f.apps.Delete(submitted.ID, f.host)
	assert.True(t, errors.Is(err, ErrApplicationNotEditable))

	require.NoError(t, f.apps.Delete(submitted.ID, f.reviewer))

	var deleted model.Application
	require.NoError(t, f.db.Unscoped().First(&deleted, submitted.ID).Error)
	assert.True(t, deleted.DeletedAt.Valid)
}

func TestApplicationService_ListForHost(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.apps.Create(f.validDetails(), f.host.UserID)
	require.NoError(t, err)
	_, err = f.apps.Create(f.validDetails(), f.other.UserID)
	require.NoError(t, err)

	apps, err := f.apps.ListForHost(f.host.UserID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, f.host.UserID, apps[0].HostID)
}
