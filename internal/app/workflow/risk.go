package workflow

import (
	"fmt"
	"time"

	"github.com/ikkim/staycert-backend/internal/app/model"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	riskWeightDetails   = 2
	riskWeightDocument  = 2
	riskWeightStale     = 1
	staleApplicationAge = 30 * 24 * time.Hour
	riskHighThreshold   = 6
	riskMediumThreshold = 3
)

type RiskInput struct {
	Details       model.PropertyDetails
	UploadedTypes []model.DocumentType
	CreatedAt     time.Time
	Now           time.Time
}

type RiskAssessment struct {
	Score   int       `json:"score"`
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors"`
}

// AssessRisk scores an application for reviewers. Informational only.
func AssessRisk(in RiskInput) RiskAssessment {
	a := RiskAssessment{Factors: []string{}}

	if missing := MissingPropertyDetails(in.Details); len(missing) > 0 {
		a.Score += riskWeightDetails
		a.Factors = append(a.Factors, fmt.Sprintf("incomplete property details: %v", missing))
	}

	uploaded := make(map[model.DocumentType]bool, len(in.UploadedTypes))
	for _, t := range in.UploadedTypes {
		uploaded[t] = true
	}
	for _, required := range model.RequiredDocumentTypes {
		if !uploaded[required] {
			a.Score += riskWeightDocument
			a.Factors = append(a.Factors, "missing document: "+string(required))
		}
	}

	if !in.CreatedAt.IsZero() && in.Now.Sub(in.CreatedAt) > staleApplicationAge {
		a.Score += riskWeightStale
		a.Factors = append(a.Factors, "application older than 30 days")
	}

	switch {
	case a.Score >= riskHighThreshold:
		a.Level = RiskHigh
	case a.Score >= riskMediumThreshold:
		a.Level = RiskMedium
	default:
		a.Level = RiskLow
	}
	return a
}
