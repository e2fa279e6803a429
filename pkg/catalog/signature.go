package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Credentials is the public/private key pair issued by the catalog.
type Credentials struct {
	PublicKey  string `json:"MARVEL_PUBLIC_KEY"`
	PrivateKey string `json:"MARVEL_PRIVATE_KEY"`
}

// Validate checks that both keys are present.
func (c Credentials) Validate() error {
	if c.PublicKey == "" {
		return errors.New("public key is required")
	}
	if c.PrivateKey == "" {
		return errors.New("private key is required")
	}
	return nil
}

// Signature authenticates server-side catalog requests.
// One signature is computed per run and reused for every page.
type Signature struct {
	APIKey    string
	Timestamp string
	Hash      string
}

// NewSignature computes md5(ts + privateKey + publicKey) for the given time.
func NewSignature(creds Credentials, at time.Time) Signature {
	ts := strconv.FormatInt(at.Unix(), 10)
	sum := md5.Sum([]byte(ts + creds.PrivateKey + creds.PublicKey))
	return Signature{
		APIKey:    creds.PublicKey,
		Timestamp: ts,
		Hash:      hex.EncodeToString(sum[:]),
	}
}
