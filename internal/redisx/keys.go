package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"order_id","user_id","status","updated_at"}
	KeyOrderStatus = "order_status:%s"

	// Catalog list with per-location stock, dropped on every successful reservation.
	KeyCatalogProducts = "catalog:products"
	// Bumped on every reservation; a list read before the bump is never cached.
	KeyCatalogVersion = "catalog:products:version"

	// Chat history per order (list of JSON messages) and its pub/sub channel.
	KeyChatHistory = "chat:history:%s"
	KeyChatRoom    = "chat:room:%s"

	// Dedup consumer: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache     = 5 * time.Minute
	TTLCatalogProducts = 30 * time.Second
	TTLChatHistory     = 7 * 24 * time.Hour
	TTLDedup           = 24 * time.Hour
)
