package types

import (
	"crypto/rand"
	"encoding/base64"
)

// base64Id generates opaque, URL-safe random ids. It is used for the
// client's engine-assigned id.
type base64Id struct {
	sequence *Yeast
}

var defaultBase64Id = &base64Id{sequence: NewYeast()}

// Base64Id returns the package-level id generator.
func Base64Id() *base64Id {
	return defaultBase64Id
}

// GenerateId returns a fresh opaque id: 15 random bytes, base64-url encoded
// without padding, prefixed with a Yeast timestamp token. The ids do not sort
// by creation order as strings, since the Yeast alphabet is not in byte order.
func (b *base64Id) GenerateId() (string, error) {
	buf := make([]byte, 15)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return b.sequence.Yeast() + base64.RawURLEncoding.EncodeToString(buf), nil
}
