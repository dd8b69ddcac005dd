package repository

import (
	"testing"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	"github.com/ikkim/staycert-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepoTest(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	return testDB
}

func createPropertyType(t *testing.T, testDB *gorm.DB, name string, items ...string) (*model.PropertyType, []model.ChecklistItem) {
	pt := &model.PropertyType{Name: name}
	require.NoError(t, testDB.Create(pt).Error)

	var created []model.ChecklistItem
	for i, itemName := range items {
		item := model.ChecklistItem{PropertyTypeID: pt.ID, Name: itemName, SortOrder: i + 1}
		require.NoError(t, testDB.Create(&item).Error)
		created = append(created, item)
	}
	return pt, created
}

func createApplication(t *testing.T, testDB *gorm.DB, hostID, propertyTypeID uint, status model.ApplicationStatus) *model.Application {
	app := &model.Application{
		HostID:      hostID,
		Status:      status,
		CurrentStep: model.StepPropertyDetails,
		PropertyDetails: model.PropertyDetails{
			PropertyName:   "Test Property",
			PropertyTypeID: propertyTypeID,
			Address:        "1 Test Street",
			Bedrooms:       1,
			Bathrooms:      1,
			MaxGuests:      2,
		},
	}
	require.NoError(t, testDB.Create(app).Error)
	return app
}

func newCertification(applicationID uint, number, token string, expiresAt time.Time) *model.Certification {
	return &model.Certification{
		ApplicationID:     applicationID,
		TemplateID:        1,
		HostID:            1,
		CertificateNumber: number,
		VerificationToken: token,
		Status:            model.CertificationStatusActive,
		IssuedAt:          expiresAt.AddDate(-1, 0, 0),
		ExpiresAt:         expiresAt,
	}
}
