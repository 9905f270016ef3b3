package x509kit

import (
	"crypto"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// KeyType tags a KeyObject as holding public or private key material.
type KeyType int

const (
	// KeyTypePublic marks a key object holding only a public key.
	KeyTypePublic KeyType = iota
	// KeyTypePrivate marks a key object holding a private key (and its
	// derivable public component).
	KeyTypePrivate
)

func (t KeyType) String() string {
	switch t {
	case KeyTypePublic:
		return "public"
	case KeyTypePrivate:
		return "private"
	default:
		return fmt.Sprintf("KeyType(%d)", int(t))
	}
}

// KeyObject is an opaque handle over asymmetric key material with an
// observable key-type tag. Certificate operations that consume keys
// (CheckPrivateKey, Verify) require the matching tag and treat a
// mismatch as a precondition violation.
type KeyObject struct {
	typ  KeyType
	pub  crypto.PublicKey
	priv crypto.PrivateKey
}

// NewPublicKeyObject wraps a public key.
func NewPublicKeyObject(pub crypto.PublicKey) *KeyObject {
	return &KeyObject{typ: KeyTypePublic, pub: pub}
}

// NewPrivateKeyObject wraps a private key, deriving its public component
// when the key implements crypto.Signer (all standard key types do).
func NewPrivateKeyObject(priv crypto.PrivateKey) *KeyObject {
	k := &KeyObject{typ: KeyTypePrivate, priv: normalizeKey(priv)}
	if signer, ok := k.priv.(crypto.Signer); ok {
		k.pub = signer.Public()
	}
	return k
}

// Type returns the key-type tag.
func (k *KeyObject) Type() KeyType { return k.typ }

// Public returns the public key material. For private key objects this
// is the derived public component.
func (k *KeyObject) Public() crypto.PublicKey { return k.pub }

// Private returns the private key material, or nil for public key
// objects.
func (k *KeyObject) Private() crypto.PrivateKey { return k.priv }

// normalizeKey converts non-standard private key representations to
// their canonical Go form. Currently this dereferences
// *ed25519.PrivateKey (returned by ssh.ParseRawPrivateKey) to the value
// type, so downstream type switches only need one case.
func normalizeKey(key crypto.PrivateKey) crypto.PrivateKey {
	if ptr, ok := key.(*ed25519.PrivateKey); ok {
		return *ptr
	}
	return key
}

// ParsePublicKeyPEM parses a PEM-encoded PKIX public key into a public
// KeyObject.
func ParsePublicKeyPEM(pemData []byte) (*KeyObject, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found in public key data")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("expected PUBLIC KEY PEM block, got %q", block.Type)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return NewPublicKeyObject(pub), nil
}

// ParsePrivateKeyPEM parses a PEM-encoded private key (PKCS#1, PKCS#8,
// EC, or OpenSSH) into a private KeyObject. For "PRIVATE KEY" blocks it
// tries PKCS#8 first, then falls back to PKCS#1 and EC parsers to handle
// mislabeled keys.
func ParsePrivateKeyPEM(pemData []byte) (*KeyObject, error) {
	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, err
	}
	return NewPrivateKeyObject(key), nil
}

func parsePrivateKey(pemData []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found in private key data")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
			return key, nil
		}
		if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
			return key, nil
		}
		if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
			return key, nil
		}
		return nil, errors.New("parsing PRIVATE KEY block with any known format")
	case "OPENSSH PRIVATE KEY":
		// OpenSSH format uses a proprietary encoding; delegate to x/crypto/ssh
		key, err := ssh.ParseRawPrivateKey(pemData)
		if err != nil {
			return nil, fmt.Errorf("parsing OpenSSH private key: %w", err)
		}
		return normalizeKey(key), nil
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// ParsePrivateKeyPEMWithPasswords tries to parse a PEM-encoded private
// key, first unencrypted, then decrypting a legacy RFC 1423 or OpenSSH
// encrypted block with each password in order. Returns the first
// successfully decrypted key.
func ParsePrivateKeyPEMWithPasswords(pemData []byte, passwords []string) (*KeyObject, error) {
	if key, err := ParsePrivateKeyPEM(pemData); err == nil {
		return key, nil
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found in private key data")
	}

	// OpenSSH keys use their own encryption format, not legacy RFC 1423
	if block.Type == "OPENSSH PRIVATE KEY" {
		for _, password := range passwords {
			if password == "" {
				continue // already tried unencrypted above
			}
			key, err := ssh.ParseRawPrivateKeyWithPassphrase(pemData, []byte(password))
			if err == nil {
				return NewPrivateKeyObject(key), nil
			}
		}
		return nil, errors.New("parsing OpenSSH private key with any provided password")
	}

	//nolint:staticcheck // x509.IsEncryptedPEMBlock is deprecated but needed for legacy encrypted PEM support
	if !x509.IsEncryptedPEMBlock(block) {
		// Not encrypted and unencrypted parse failed; return the original error
		_, err := parsePrivateKey(pemData)
		return nil, err
	}

	for _, password := range passwords {
		//nolint:staticcheck // x509.DecryptPEMBlock is deprecated but needed for legacy encrypted PEM support
		decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			continue
		}

		clearPEM := pem.EncodeToMemory(&pem.Block{
			Type:  block.Type,
			Bytes: decrypted,
		})
		if key, err := ParsePrivateKeyPEM(clearPEM); err == nil {
			return key, nil
		}
	}

	return nil, errors.New("decrypting private key with any provided password")
}
