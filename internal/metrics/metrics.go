package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchOutcomes counts finished discovery runs by terminal state and failure reason.
	SearchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_search_outcomes_total",
		Help: "Number of discovery runs by terminal state (ready|failed) and failure reason",
	}, []string{"state", "reason"})

	// SearchTransitions counts every pipeline state entered.
	SearchTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_search_transitions_total",
		Help: "Number of discovery pipeline state transitions by target state",
	}, []string{"state"})

	// SearchCandidates observes how many places survive each pipeline stage.
	SearchCandidates = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_search_candidates",
		Help:    "Number of candidate places per discovery run, before (provider) and after (filtered) band filtering",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"stage"})
)

var (
	// ProviderRequests counts gateway calls by provider operation and provider status.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_provider_requests_total",
		Help: "Number of place provider calls by operation (search|details) and provider status",
	}, []string{"operation", "status"})

	// OutgoingLatency tracks the latency of outgoing HTTP requests made through the pooled client.
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_provider_request_duration_seconds",
		Help:    "Latency of outgoing HTTP requests to place, location and feed providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})
)

var (
	// WishlistMutations counts add/remove calls and whether they changed the persisted set.
	WishlistMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_wishlist_mutations_total",
		Help: "Number of wishlist mutations by operation (add|remove) and whether the set changed",
	}, []string{"op", "changed"})

	// WishlistSize is the number of place ids in the persisted wishlist.
	WishlistSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "explorer_wishlist_size",
		Help: "Number of places currently saved in the wishlist",
	})

	// HydrationResults counts per-id detail hydration outcomes.
	HydrationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_hydration_results_total",
		Help: "Number of wishlist detail fetches by result (ok|failed)",
	}, []string{"result"})

	// ActiveViews is the number of live wishlist subscriptions.
	ActiveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "explorer_wishlist_views_active",
		Help: "Number of wishlist views currently subscribed to change notifications",
	})
)

var (
	// TransitStopsLoaded is the number of stops indexed from the GTFS static feed.
	TransitStopsLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "explorer_transit_stops_loaded",
		Help: "Number of transit stops indexed from the GTFS static feed",
	}, []string{"feed"})

	// TransitFeedAge is the time since the GTFS static feed was last indexed.
	TransitFeedAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "explorer_transit_feed_age_seconds",
		Help: "Seconds since the GTFS static feed was last indexed successfully",
	})
)
