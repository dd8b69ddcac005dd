package repository

import (
	"testing"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepository_FindTypesIsDistinct(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewDocumentRepository(testDB)
	pt, _ := createPropertyType(t, testDB, "apartment")
	app := createApplication(t, testDB, 1, pt.ID, model.ApplicationStatusDraft)

	require.NoError(t, repo.Create([]model.ApplicationDocument{
		{ApplicationID: app.ID, DocumentType: model.DocumentTypeSafetyPermit, FileURL: "u1"},
		{ApplicationID: app.ID, DocumentType: model.DocumentTypeIDDocument, FileURL: "u2"},
		{ApplicationID: app.ID, DocumentType: model.DocumentTypeSafetyPermit, FileURL: "u3"},
	}))
	require.NoError(t, repo.Create(nil))

	types, err := repo.FindTypesByApplicationID(app.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.DocumentType{model.DocumentTypeIDDocument, model.DocumentTypeSafetyPermit}, types)

	docs, err := repo.FindByApplicationID(app.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestPaymentRepository_HasCompleted(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewPaymentRepository(testDB)

	ok, err := repo.HasCompleted(1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Create(&model.Payment{ApplicationID: 1, Amount: 50, Status: model.PaymentStatusFailed}))
	ok, err = repo.HasCompleted(1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Create(&model.Payment{ApplicationID: 1, Amount: 50, Status: model.PaymentStatusCompleted}))
	ok, err = repo.HasCompleted(1)
	require.NoError(t, err)
	assert.True(t, ok)

	payments, err := repo.FindByApplicationID(1)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}
