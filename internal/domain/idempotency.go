package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// IdempotencyPending is the Status of a record whose submission is still
// being dispatched. Completed records carry the HTTP status of the reply.
const IdempotencyPending = 0

// Idempotency tracks one submission keyed by (client_key, key). A pending
// record reserves the key while the emails are sent; a completed record lets
// a client safely retry a POST without sending the emails a second time.
// Fingerprint binds the key to the submitted content.
type Idempotency struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ClientKey   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:1"`
	Key         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_client_key,priority:2"`
	Fingerprint string    `gorm:"type:TEXT NOT NULL DEFAULT ''"`
	DeliveryID  string    `gorm:"type:TEXT NOT NULL"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	Message     string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Pending reports whether the submission is still in flight.
func (i Idempotency) Pending() bool { return i.Status == IdempotencyPending }

// Fingerprint returns a hex SHA-256 digest of the submission fields.
// Each field is length-prefixed so that moving text between fields changes
// the digest.
func (s ContactSubmission) Fingerprint() string {
	h := sha256.New()
	for _, f := range []string{s.Name, s.Email, s.Subject, s.Message} {
		h.Write([]byte(strconv.Itoa(len(f))))
		h.Write([]byte{':'})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
