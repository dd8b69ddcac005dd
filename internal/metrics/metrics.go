package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the certification workflow counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ApplicationsSubmitted    prometheus.Counter
	ReviewDecisions          *prometheus.CounterVec
	CertificationsIssued     prometheus.Counter
	IssuanceFailures         *prometheus.CounterVec
	CertificateNumberCollide prometheus.Counter
	CertificationsRevoked    prometheus.Counter
	CertificationsRenewed    prometheus.Counter
	CertificationsExpired    prometheus.Counter
}

// New registers all counters with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ApplicationsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "staycert_applications_submitted_total",
			Help: "Applications moved from DRAFT to SUBMITTED",
		}),
		ReviewDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "staycert_review_decisions_total",
			Help: "Reviewer decisions by outcome",
		}, []string{"decision"}), // approve, reject, request_more_info
		CertificationsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "staycert_certifications_issued_total",
			Help: "Certifications created",
		}),
		IssuanceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "staycert_certification_issuance_failures_total",
			Help: "Failed issuance attempts by error code",
		}, []string{"reason"}),
		CertificateNumberCollide: factory.NewCounter(prometheus.CounterOpts{
			Name: "staycert_certificate_number_collisions_total",
			Help: "Certificate number candidates rejected by the unique constraint",
		}),
		CertificationsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "staycert_certifications_revoked_total",
			Help: "Certifications revoked",
		}),
		CertificationsRenewed: factory.NewCounter(prometheus.CounterOpts{
			Name: "staycert_certifications_renewed_total",
			Help: "Certifications renewed",
		}),
		CertificationsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "staycert_certifications_expired_total",
			Help: "Certifications moved to EXPIRED by the sweep",
		}),
	}
}

func (m *Metrics) IncSubmitted() {
	if m != nil {
		m.ApplicationsSubmitted.Inc()
	}
}

func (m *Metrics) IncDecision(decision string) {
	if m != nil {
		m.ReviewDecisions.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) IncIssued() {
	if m != nil {
		m.CertificationsIssued.Inc()
	}
}

func (m *Metrics) IncIssuanceFailure(reason string) {
	if m != nil {
		m.IssuanceFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncNumberCollision() {
	if m != nil {
		m.CertificateNumberCollide.Inc()
	}
}

func (m *Metrics) IncRevoked() {
	if m != nil {
		m.CertificationsRevoked.Inc()
	}
}

func (m *Metrics) IncRenewed() {
	if m != nil {
		m.CertificationsRenewed.Inc()
	}
}

func (m *Metrics) AddExpired(n int64) {
	if m != nil && n > 0 {
		m.CertificationsExpired.Add(float64(n))
	}
}
