package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
)

// DER prefixes of Ed25519 keys as the ledger encodes them in hex.
const (
	privateKeyPrefix = "302e020100300506032b657004220420"
	publicKeyPrefix  = "302a300506032b6570032100"
)

var (
	privateKeyPattern = regexp.MustCompile(`^` + privateKeyPrefix + `[0-9a-fA-F]{64}$`)
	publicKeyPattern  = regexp.MustCompile(`^` + publicKeyPrefix + `[0-9a-fA-F]{64}$`)
	accountIDPattern  = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

var (
	ErrMalformedPrivateKey = errors.New("ledger: malformed private key")
	ErrMalformedPublicKey  = errors.New("ledger: malformed public key")
	ErrMalformedAccountID  = errors.New("ledger: malformed account id")
)

// KeyPair is an Ed25519 key pair in DER hex encoding.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
}

// GenerateKeyPair creates a fresh Ed25519 key pair locally.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		PrivateKey: EncodePrivateKey(priv),
		PublicKey:  EncodePublicKey(pub),
	}, nil
}

func EncodePrivateKey(key ed25519.PrivateKey) string {
	return privateKeyPrefix + hex.EncodeToString(key.Seed())
}

func EncodePublicKey(key ed25519.PublicKey) string {
	return publicKeyPrefix + hex.EncodeToString(key)
}

// ParsePrivateKey decodes a DER hex private key.
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	if !ValidPrivateKey(s) {
		return nil, ErrMalformedPrivateKey
	}
	seed, err := hex.DecodeString(s[len(privateKeyPrefix):])
	if err != nil {
		return nil, ErrMalformedPrivateKey
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// ParsePublicKey decodes a DER hex public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	if !ValidPublicKey(s) {
		return nil, ErrMalformedPublicKey
	}
	raw, err := hex.DecodeString(s[len(publicKeyPrefix):])
	if err != nil {
		return nil, ErrMalformedPublicKey
	}
	return ed25519.PublicKey(raw), nil
}

// MatchingPair reports whether the public key belongs to the private key.
func MatchingPair(privateKey, publicKey string) bool {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return false
	}
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return false
	}
	return pub.Equal(priv.Public())
}

func ValidPrivateKey(s string) bool { return privateKeyPattern.MatchString(s) }
func ValidPublicKey(s string) bool  { return publicKeyPattern.MatchString(s) }

// ValidateAccountID checks the shard.realm.num shape of an account id.
func ValidateAccountID(id string) error {
	if !accountIDPattern.MatchString(id) {
		return ErrMalformedAccountID
	}
	return nil
}
