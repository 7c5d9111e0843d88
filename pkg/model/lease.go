package model

import "time"

// Lease is a named, time-bounded claim. Sweeper replicas take one per run so
// only a single replica scans at a time.
type Lease struct {
	ID        string    `bson:"_id" json:"id"`
	Holder    string    `bson:"holder" json:"holder"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
