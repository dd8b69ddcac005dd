package repository

import (
	"testing"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificationRepository_CreateAndBind(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCertificationRepository(testDB)
	pt, _ := createPropertyType(t, testDB, "apartment")
	app := createApplication(t, testDB, 1, pt.ID, model.ApplicationStatusApproved)

	cert := newCertification(app.ID, "CERT-2026-123456", "token-a", time.Now().UTC().AddDate(1, 0, 0))
	require.NoError(t, repo.CreateAndBind(cert))
	assert.NotZero(t, cert.ID)

	var reloaded model.Application
	require.NoError(t, testDB.First(&reloaded, app.ID).Error)
	require.NotNil(t, reloaded.CertificationID)
	assert.Equal(t, cert.ID, *reloaded.CertificationID)

	exists, err := repo.ExistsForApplication(app.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCertificationRepository_UniqueViolationsAreDistinguishable(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCertificationRepository(testDB)
	pt, _ := createPropertyType(t, testDB, "house")
	first := createApplication(t, testDB, 1, pt.ID, model.ApplicationStatusApproved)
	second := createApplication(t, testDB, 2, pt.ID, model.ApplicationStatusApproved)
	expires := time.Now().UTC().AddDate(1, 0, 0)

	require.NoError(t, repo.CreateAndBind(newCertification(first.ID, "CERT-2026-000001", "t1", expires)))

	dupApp := newCertification(first.ID, "CERT-2026-000002", "t2", expires)
	err := repo.CreateAndBind(dupApp)
	require.Error(t, err)
	assert.True(t, apperrors.IsUniqueViolation(err, "application_id"))
	assert.Zero(t, dupApp.ID)

	dupNumber := newCertification(second.ID, "CERT-2026-000001", "t3", expires)
	err = repo.CreateAndBind(dupNumber)
	require.Error(t, err)
	assert.True(t, apperrors.IsUniqueViolation(err, "certificate_number"))
	assert.False(t, apperrors.IsUniqueViolation(err, "application_id"))

	var count int64
	testDB.Model(&model.Certification{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var reloaded model.Application
	require.NoError(t, testDB.First(&reloaded, second.ID).Error)
	assert.Nil(t, reloaded.CertificationID, "failed insert must not bind the application")
}

func TestCertificationRepository_FindByVerificationCode(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCertificationRepository(testDB)
	pt, _ := createPropertyType(t, testDB, "villa")
	app := createApplication(t, testDB, 1, pt.ID, model.ApplicationStatusApproved)
	cert := newCertification(app.ID, "CERT-2026-654321", "secret-token", time.Now().UTC().AddDate(1, 0, 0))
	require.NoError(t, repo.CreateAndBind(cert))

	byToken, err := repo.FindByVerificationCode("secret-token")
	require.NoError(t, err)
	assert.Equal(t, cert.ID, byToken.ID)

	byNumber, err := repo.FindByVerificationCode("CERT-2026-654321")
	require.NoError(t, err)
	assert.Equal(t, cert.ID, byNumber.ID)

	_, err = repo.FindByVerificationCode("nope")
	assert.Error(t, err)
}

func TestCertificationRepository_RevokeAndRenew(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCertificationRepository(testDB)
	pt, _ := createPropertyType(t, testDB, "cabin")
	app := createApplication(t, testDB, 1, pt.ID, model.ApplicationStatusApproved)
	now := time.Now().UTC()
	cert := newCertification(app.ID, "CERT-2026-111111", "tok", now.AddDate(0, 6, 0))
	require.NoError(t, repo.CreateAndBind(cert))

	ok, err := repo.Revoke(cert.ID, 9, "fraud", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Revoke(cert.ID, 9, "again", now)
	require.NoError(t, err)
	assert.False(t, ok)

	revoked, err := repo.FindByID(cert.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificationStatusRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedBy)
	assert.Equal(t, uint(9), *revoked.RevokedBy)
	assert.Equal(t, "fraud", revoked.RevocationReason)

	newExpiry := now.AddDate(1, 0, 0)
	require.NoError(t, repo.Renew(cert.ID, newExpiry, now))

	renewed, err := repo.FindByID(cert.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificationStatusActive, renewed.Status)
	assert.Nil(t, renewed.RevokedAt)
	assert.Nil(t, renewed.RevokedBy)
	assert.Empty(t, renewed.RevocationReason)
	assert.WithinDuration(t, newExpiry, renewed.ExpiresAt, time.Second)
}

func TestCertificationRepository_ExpirySweepQueries(t *testing.T) {
	testDB := setupRepoTest(t)
	repo := NewCertificationRepository(testDB)
	pt, _ := createPropertyType(t, testDB, "loft")
	now := time.Now().UTC()

	past := createApplication(t, testDB, 1, pt.ID, model.ApplicationStatusApproved)
	soon := createApplication(t, testDB, 2, pt.ID, model.ApplicationStatusApproved)
	later := createApplication(t, testDB, 3, pt.ID, model.ApplicationStatusApproved)

	a := newCertification(past.ID, "CERT-2026-000010", "a", now.AddDate(0, 0, -1))
	b := newCertification(soon.ID, "CERT-2026-000011", "b", now.AddDate(0, 0, 10))
	c := newCertification(later.ID, "CERT-2026-000012", "c", now.AddDate(0, 3, 0))
	for _, cert := range []*model.Certification{a, b, c} {
		require.NoError(t, repo.CreateAndBind(cert))
	}

	found, err := repo.FindActiveExpiringBefore(now.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, a.ID, found[0].ID)
	assert.Equal(t, b.ID, found[1].ID)

	require.NoError(t, testDB.Model(&model.Certification{}).Where("id = ?", c.ID).
		Update("status", model.CertificationStatusRevoked).Error)

	marked, err := repo.MarkExpired([]uint{a.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID}, marked, "revoked rows are not moved")

	marked, err = repo.MarkExpired([]uint{a.ID})
	require.NoError(t, err)
	assert.Empty(t, marked)

	marked, err = repo.MarkExpired(nil)
	require.NoError(t, err)
	assert.Empty(t, marked)

	reloaded, err := repo.FindByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CertificationStatusRevoked, reloaded.Status)
}
