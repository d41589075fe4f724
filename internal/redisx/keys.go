package redisx

import "time"

const (
	// Cached product listing per serialized filter: products:{"search":...,"category":...}
	KeyProductsQuery = "products:%s"

	// Cached category view: products:category:{category}
	KeyProductsCategory = "products:category:%s"

	// Prefix shared by both listing key families; invalidation scans it.
	PrefixProducts = "products:"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLProductCache = time.Hour
	TTLDedup        = 48 * time.Hour
)
