// Package certstore provides a SQLite-backed catalog of certificates
// keyed by SHA-256 fingerprint. The catalog stores display metadata
// alongside the PEM encoding, so listing never re-parses and retrieval
// reconstructs a handle from the stored bytes.
package certstore

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ErrNotFound reports a fingerprint with no catalog entry.
var ErrNotFound = errors.New("certstore: certificate not found")

// Record is one catalog row.
type Record struct {
	Fingerprint string         `db:"fingerprint_sha256"`
	Serial      string         `db:"serial_number"`
	Subject     string         `db:"subject"`
	Issuer      string         `db:"issuer"`
	NotBefore   time.Time      `db:"not_before"`
	NotAfter    time.Time      `db:"not_after"`
	IsCA        bool           `db:"is_ca"`
	SANsJSON    types.JSONText `db:"sans"`
	PEM         string         `db:"pem"`
}
