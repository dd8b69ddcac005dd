package model

import (
	"time"

	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentTypeIDDocument           DocumentType = "ID_DOCUMENT"
	DocumentTypeSafetyPermit         DocumentType = "SAFETY_PERMIT"
	DocumentTypeInsuranceCertificate DocumentType = "INSURANCE_CERTIFICATE"
	DocumentTypePropertyDeed         DocumentType = "PROPERTY_DEED"
	DocumentTypeOther                DocumentType = "OTHER"
)

// RequiredDocumentTypes must all be uploaded before a certification can be issued.
var RequiredDocumentTypes = []DocumentType{
	DocumentTypeIDDocument,
	DocumentTypeSafetyPermit,
	DocumentTypeInsuranceCertificate,
	DocumentTypePropertyDeed,
}

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeIDDocument, DocumentTypeSafetyPermit, DocumentTypeInsuranceCertificate,
		DocumentTypePropertyDeed, DocumentTypeOther:
		return true
	}
	return false
}

// ApplicationDocument records metadata of an uploaded file; the bytes live in object storage.
type ApplicationDocument struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	ApplicationID uint           `gorm:"not null;index" json:"application_id"`
	DocumentType  DocumentType   `gorm:"type:varchar(40);not null;index" json:"document_type"`
	FileName      string         `gorm:"type:varchar(255)" json:"file_name"`
	FileURL       string         `gorm:"type:text;not null" json:"file_url"`
	CreatedAt     time.Time      `json:"created_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ApplicationDocument) TableName() string {
	return "application_documents"
}
