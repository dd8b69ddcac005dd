// Package workflow holds the side-effect-free rules of the certification flow:
// step and status transition tables, checklist normalization, property-details
// validation and risk scoring.
package workflow

import (
	"fmt"

	"github.com/ikkim/staycert-backend/internal/app/model"
	apperrors "github.com/ikkim/staycert-backend/internal/errors"
)

var stepOrder = []model.ApplicationStep{
	model.StepPropertyDetails,
	model.StepComplianceChecklist,
	model.StepDocumentUpload,
	model.StepPayment,
	model.StepSubmission,
}

// stepShortcuts lists forward jumps allowed in addition to the immediate successor.
var stepShortcuts = map[model.ApplicationStep]model.ApplicationStep{
	model.StepDocumentUpload: model.StepSubmission,
}

var (
	ErrInvalidStep = apperrors.Validation(apperrors.ApplicationInvalidStep, "unknown application step")
	ErrStepSkip    = apperrors.Validation(apperrors.ApplicationStepSkip, "cannot skip application steps")
)

// Steps returns the fixed step order.
func Steps() []model.ApplicationStep {
	return append([]model.ApplicationStep(nil), stepOrder...)
}

// StepIndex returns the position of step in the fixed order, or -1.
func StepIndex(step model.ApplicationStep) int {
	for i, s := range stepOrder {
		if s == step {
			return i
		}
	}
	return -1
}

func IsValidStep(step model.ApplicationStep) bool {
	return StepIndex(step) >= 0
}

// IsForward reports whether to lies after from.
func IsForward(from, to model.ApplicationStep) bool {
	return StepIndex(to) > StepIndex(from)
}

// ValidateStepTransition checks a move of currentStep from -> to.
// Staying put and moving backward are always allowed; forward moves go to the
// immediate successor or through a listed shortcut.
func ValidateStepTransition(from, to model.ApplicationStep) error {
	fromIdx, toIdx := StepIndex(from), StepIndex(to)
	if fromIdx < 0 {
		return ErrInvalidStep.WithDetails(string(from))
	}
	if toIdx < 0 {
		return ErrInvalidStep.WithDetails(string(to))
	}
	if toIdx <= fromIdx+1 {
		return nil
	}
	if shortcut, ok := stepShortcuts[from]; ok && shortcut == to {
		return nil
	}
	return ErrStepSkip.WithDetails(fmt.Sprintf("%s -> %s", from, to))
}

// StepsBefore returns every step that precedes step, in order.
func StepsBefore(step model.ApplicationStep) []model.ApplicationStep {
	idx := StepIndex(step)
	if idx <= 0 {
		return nil
	}
	return append([]model.ApplicationStep(nil), stepOrder[:idx]...)
}
