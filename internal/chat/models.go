// Package chat is the notification sink: per-order message history kept in
// Redis and fanned out on a Redis channel per order.
package chat

import "time"

const (
	RoleSystem = "system"
	SystemName = "System"
)

type Message struct {
	OrderID string    `json:"order_id"`
	Role    string    `json:"sender_role"`
	Name    string    `json:"sender_name"`
	Content string    `json:"content"`
	Time    time.Time `json:"timestamp"`
}

// NotifyRequest is the body of POST /chat/system_notify.
type NotifyRequest struct {
	OrderID string `json:"order_id"`
	Content string `json:"content"`
}
