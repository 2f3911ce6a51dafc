package signup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serviceMetrics struct {
	signupsAccepted      prometheus.Counter
	signupsRejectedFull  prometheus.Counter
	signupConflicts      prometheus.Counter
	compensations        prometheus.Counter
	compensationFailures prometheus.Counter
	withdrawals          prometheus.Counter
	withdrawalsStale     prometheus.Counter
}

// newServiceMetrics builds the coordinator's counters. A nil registerer
// creates unregistered counters, which keeps tests quiet.
func newServiceMetrics(registry prometheus.Registerer) *serviceMetrics {
	factory := promauto.With(registry)
	return &serviceMetrics{
		signupsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "signupd_signups_accepted_total",
			Help: "Signups that created a volunteer record and updated the slot",
		}),
		signupsRejectedFull: factory.NewCounter(prometheus.CounterOpts{
			Name: "signupd_signups_rejected_full_total",
			Help: "Signups rejected because the slot was full or held",
		}),
		signupConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "signupd_signup_conflicts_total",
			Help: "Signups that lost the conditional slot update race",
		}),
		compensations: factory.NewCounter(prometheus.CounterOpts{
			Name: "signupd_signup_compensations_total",
			Help: "Compensating volunteer-record deletes after a failed slot update",
		}),
		compensationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "signupd_signup_compensation_failures_total",
			Help: "Compensating deletes that themselves failed",
		}),
		withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "signupd_withdrawals_total",
			Help: "Volunteer withdrawals that removed a signup record",
		}),
		withdrawalsStale: factory.NewCounter(prometheus.CounterOpts{
			Name: "signupd_withdrawals_stale_counts_total",
			Help: "Withdrawals where the slot counter update failed after record removal",
		}),
	}
}
