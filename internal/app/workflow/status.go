package workflow

import (
	"github.com/ikkim/staycert-backend/internal/app/model"
)

type Event string

const (
	EventSubmit          Event = "submit"
	EventAssign          Event = "assign"
	EventApprove         Event = "approve"
	EventReject          Event = "reject"
	EventRequestMoreInfo Event = "request_more_info"
)

type transitionKey struct {
	from  model.ApplicationStatus
	event Event
}

var statusTransitions = map[transitionKey]model.ApplicationStatus{
	{model.ApplicationStatusDraft, EventSubmit}:                model.ApplicationStatusSubmitted,
	{model.ApplicationStatusSubmitted, EventAssign}:            model.ApplicationStatusUnderReview,
	{model.ApplicationStatusUnderReview, EventAssign}:          model.ApplicationStatusUnderReview,
	{model.ApplicationStatusMoreInfoRequested, EventAssign}:    model.ApplicationStatusUnderReview,
	{model.ApplicationStatusUnderReview, EventApprove}:         model.ApplicationStatusApproved,
	{model.ApplicationStatusUnderReview, EventReject}:          model.ApplicationStatusRejected,
	{model.ApplicationStatusUnderReview, EventRequestMoreInfo}: model.ApplicationStatusMoreInfoRequested,
}

// NextStatus looks up the status reached from `from` on event.
func NextStatus(from model.ApplicationStatus, event Event) (model.ApplicationStatus, bool) {
	to, ok := statusTransitions[transitionKey{from, event}]
	return to, ok
}

// IsTerminal reports whether no event leads out of status.
func IsTerminal(status model.ApplicationStatus) bool {
	for key := range statusTransitions {
		if key.from == status {
			return false
		}
	}
	return true
}

// Decision is a reviewer verdict on an application under review.
type Decision string

const (
	DecisionApprove         Decision = "approve"
	DecisionReject          Decision = "reject"
	DecisionRequestMoreInfo Decision = "request_more_info"
)

// Event maps a decision to its status event; ok is false for unknown decisions.
func (d Decision) Event() (Event, bool) {
	switch d {
	case DecisionApprove:
		return EventApprove, true
	case DecisionReject:
		return EventReject, true
	case DecisionRequestMoreInfo:
		return EventRequestMoreInfo, true
	}
	return "", false
}
