package domain

import "time"

// Delivery outcomes recorded in the delivery log.
const (
	DeliverySucceeded      = "succeeded"
	DeliveryDispatchFailed = "dispatch_failed"
)

// Delivery is an audit record of one dispatch attempt. It carries routing
// metadata only; the submitted name, address, and message body are not stored.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RequestID: correlation id of the HTTP request that triggered the dispatch.
//   - ClientKey: rate-limit identifier of the caller (e.g. "ip:203.0.113.7").
//   - Outcome: DeliverySucceeded or DeliveryDispatchFailed.
//   - FailedStep: which send failed ("notification" or "confirmation"), empty on success.
//   - DurationMS: wall time spent dispatching.
type Delivery struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	RequestID  string    `json:"request_id"  gorm:"type:varchar(64);index"`
	ClientKey  string    `json:"client_key"  gorm:"type:varchar(128);not null;index:idx_delivery_client,priority:1"`
	Outcome    string    `json:"outcome"     gorm:"type:varchar(32);not null;check:outcome IN ('succeeded','dispatch_failed')"`
	FailedStep string    `json:"failed_step,omitempty" gorm:"type:varchar(32)"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"  gorm:"index:idx_delivery_client,priority:2"`
}

// TableName returns the database table name for Delivery.
func (Delivery) TableName() string { return "deliveries" }
