// Package queue defines message payloads exchanged over the message broker.
package queue

// PurchaseFinalizedEvent is published when a purchase session is
// successfully finalized. It carries enough information for downstream
// consumers to log, notify, or feed analytics without querying the
// primary database.
type PurchaseFinalizedEvent struct {
	PurchaseID  uint64 `json:"purchase_id"`
	ListID      uint64 `json:"list_id"`
	ListName    string `json:"list_name"`
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	TotalCents  int64  `json:"total_cents"`
	TotalItems  int    `json:"total_items"`
	FinalizedAt string `json:"finalized_at"`
}
