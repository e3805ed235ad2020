package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	joinsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_joins_resolved_total",
		Help: "Member joins successfully attributed to an inviter.",
	})
	attributionMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_attribution_misses_total",
		Help: "Member joins with no usable invite diff or no known inviter.",
	})
	awardsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_awards_granted_total",
		Help: "Role-based point grants applied, by award kind.",
	}, []string{"kind"})
	awardsRevoked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_awards_revoked_total",
		Help: "Role-based point revocations applied, by award kind.",
	}, []string{"kind"})
	adminAdjustments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_admin_adjustments_total",
		Help: "Admin point overrides applied.",
	})
	monthlyResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_monthly_resets_total",
		Help: "Monthly reset jobs completed.",
	})
	notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_notify_failures_total",
		Help: "Monthly report deliveries that failed (reset still proceeds).",
	})
)
