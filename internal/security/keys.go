package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidKey is returned when PEM content or the key type is not usable for signing.
var ErrInvalidKey = errors.New("invalid key")

// LoadPEM returns s as PEM bytes when it is inline PEM (escaped "\n" sequences from env files
// are expanded), otherwise reads the file at path s.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

func decodeBlock(s string) (*pem.Block, error) {
	raw, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey parses an RSA or ECDSA private key in PKCS#1, PKCS#8 or SEC1 form.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodeBlock(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok || KeyAlg(signer.Public()) == "" {
		return nil, ErrInvalidKey
	}
	return signer, nil
}

// ParsePublicKey parses an RSA or ECDSA public key in PKCS#1 or PKIX form.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodeBlock(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if KeyAlg(key) == "" {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// LoadKeyPair resolves the signing key and verification key from config values.
// privateSrc may be empty for verify-only deployments. When publicSrc is empty the
// public key is derived from the private key.
func LoadKeyPair(privateSrc, publicSrc string) (crypto.Signer, crypto.PublicKey, error) {
	var signer crypto.Signer
	if strings.TrimSpace(privateSrc) != "" {
		s, err := ParsePrivateKey(privateSrc)
		if err != nil {
			return nil, nil, fmt.Errorf("private key: %w", err)
		}
		signer = s
	}
	if strings.TrimSpace(publicSrc) == "" {
		if signer == nil {
			return nil, nil, fmt.Errorf("public key: %w", ErrInvalidKey)
		}
		return signer, signer.Public(), nil
	}
	pub, err := ParsePublicKey(publicSrc)
	if err != nil {
		return nil, nil, fmt.Errorf("public key: %w", err)
	}
	if signer != nil && KeyAlg(signer.Public()) != KeyAlg(pub) {
		return nil, nil, fmt.Errorf("key pair algorithm mismatch: %w", ErrInvalidKey)
	}
	return signer, pub, nil
}

// KeyAlg returns the JWT algorithm for pub: RS256 for RSA, ES256 for ECDSA, empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}
