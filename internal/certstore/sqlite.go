package certstore

import (
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "modernc.org/sqlite"

	"github.com/sensiblebit/x509kit"
)

// Catalog is an open certificate catalog backed by SQLite.
type Catalog struct {
	db *sqlx.DB
}

// Open opens (or creates) the catalog at dbPath. An empty path opens an
// in-memory catalog that is discarded on Close.
func Open(dbPath string) (*Catalog, error) {
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	if dbPath != "" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close releases the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func initSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS certificates (
			fingerprint_sha256 text PRIMARY KEY,
			serial_number      text NOT NULL,
			subject            text NOT NULL,
			issuer             text NOT NULL,
			not_before         timestamp NOT NULL,
			not_after          timestamp NOT NULL,
			is_ca              integer NOT NULL,
			sans               text,
			pem                blob NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating certificates table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_certificates_subject ON certificates (subject);
	`)
	if err != nil {
		return fmt.Errorf("creating subject index: %w", err)
	}
	return nil
}

// Put inserts the certificate behind the handle. Re-inserting an already
// cataloged certificate is a no-op; the fingerprint is the identity.
func (c *Catalog) Put(cert *x509kit.Certificate) error {
	parsed, err := x509.ParseCertificate(cert.Raw())
	if err != nil {
		return fmt.Errorf("reading certificate fields: %w", err)
	}

	sans := append([]string(nil), parsed.DNSNames...)
	sans = append(sans, parsed.EmailAddresses...)
	for _, ip := range parsed.IPAddresses {
		sans = append(sans, ip.String())
	}
	for _, uri := range parsed.URIs {
		sans = append(sans, uri.String())
	}
	sansJSON, err := json.Marshal(sans)
	if err != nil {
		return fmt.Errorf("encoding SANs: %w", err)
	}

	row := Record{
		Fingerprint: cert.Fingerprint256(),
		Serial:      cert.SerialNumber(),
		Subject:     cert.Subject(),
		Issuer:      cert.Issuer(),
		NotBefore:   parsed.NotBefore.UTC(),
		NotAfter:    parsed.NotAfter.UTC(),
		IsCA:        cert.CheckCA(),
		SANsJSON:    types.JSONText(sansJSON),
		PEM:         cert.PEM(),
	}
	result, err := c.db.NamedExec(`
		INSERT OR IGNORE INTO certificates (fingerprint_sha256, serial_number, subject, issuer, not_before, not_after, is_ca, sans, pem)
		VALUES (:fingerprint_sha256, :serial_number, :subject, :issuer, :not_before, :not_after, :is_ca, :sans, :pem)
	`, row)
	if err != nil {
		return fmt.Errorf("inserting certificate: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		slog.Debug("certificate already cataloged", "fingerprint", row.Fingerprint)
	}
	return nil
}

// GetByFingerprint reconstructs a handle for the cataloged certificate
// with the given SHA-256 fingerprint, bound to ctx.
func (c *Catalog) GetByFingerprint(ctx *x509kit.Context, fingerprint string) (*x509kit.Certificate, error) {
	var pemData string
	err := c.db.Get(&pemData, "SELECT pem FROM certificates WHERE fingerprint_sha256 = ?", fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying certificate: %w", err)
	}
	return x509kit.Parse(ctx, []byte(pemData))
}

// List returns every catalog row ordered by expiry, soonest first.
func (c *Catalog) List() ([]Record, error) {
	var rows []Record
	if err := c.db.Select(&rows, "SELECT * FROM certificates ORDER BY not_after, fingerprint_sha256"); err != nil {
		return nil, fmt.Errorf("listing certificates: %w", err)
	}
	return rows, nil
}

// Count returns the number of cataloged certificates.
func (c *Catalog) Count() (int, error) {
	var n int
	if err := c.db.Get(&n, "SELECT COUNT(*) FROM certificates"); err != nil {
		return 0, fmt.Errorf("counting certificates: %w", err)
	}
	return n, nil
}
