package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_query_cache_lookups_total",
			Help: "Query cache lookups by cache name and result (hit, miss, expired).",
		},
		[]string{"cache", "result"},
	)

	QueryCacheClearsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_query_cache_clears_total",
			Help: "Number of full query cache invalidations.",
		},
		[]string{"cache"},
	)

	CollectionMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_collection_mutations_total",
			Help: "Successful mutations of persistent collections by collection and operation.",
		},
		[]string{"collection", "operation"},
	)

	CollectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_collection_size",
			Help: "Current number of entries in each persistent collection.",
		},
		[]string{"collection"},
	)

	StorageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_storage_failures_total",
			Help: "Durable storage reads or writes that failed and were recovered locally.",
		},
		[]string{"key", "operation"},
	)

	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_events_total",
			Help: "Session lifecycle events (login, logout, expired, restored, restore_expired).",
		},
		[]string{"event"},
	)

	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_orders_total",
			Help: "Order creation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_catalog_query_duration_seconds",
			Help:    "Latency of catalog queries, labelled by whether they were served from cache.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"served_from"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		},
		[]string{"route", "status"},
	)
)

// IncrementCacheLookup records a query cache lookup result.
func IncrementCacheLookup(cache, result string) {
	QueryCacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// IncrementCacheClear records a full cache invalidation.
func IncrementCacheClear(cache string) {
	QueryCacheClearsTotal.WithLabelValues(cache).Inc()
}

// IncrementCollectionMutation records a successful add/update/remove/clear.
func IncrementCollectionMutation(collection, operation string) {
	CollectionMutationsTotal.WithLabelValues(collection, operation).Inc()
}

// SetCollectionSize publishes the number of entries in a collection.
func SetCollectionSize(collection string, size int) {
	CollectionSize.WithLabelValues(collection).Set(float64(size))
}

// IncrementStorageFailure records a swallowed storage error.
func IncrementStorageFailure(key, operation string) {
	StorageFailuresTotal.WithLabelValues(key, operation).Inc()
}

// IncrementSessionEvent records a session lifecycle transition.
func IncrementSessionEvent(event string) {
	SessionEventsTotal.WithLabelValues(event).Inc()
}

// IncrementOrders records an order creation outcome (created, rejected, failed).
func IncrementOrders(outcome string) {
	OrdersTotal.WithLabelValues(outcome).Inc()
}

// ObserveCatalogQuery records the duration of a catalog query in seconds.
func ObserveCatalogQuery(servedFrom string, seconds float64) {
	CatalogQueryDuration.WithLabelValues(servedFrom).Observe(seconds)
}

// IncrementHTTPRequest records one served HTTP request.
func IncrementHTTPRequest(route, status string) {
	HTTPRequestsTotal.WithLabelValues(route, status).Inc()
}
