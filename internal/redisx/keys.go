package redisx

import "time"

const (
	// Cache of the order summary projection: order:summary:{order_id} -> JSON
	KeyOrderSummary = "order:summary:%d"

	// Dedup of event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLSummaryCache = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)
