package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
)

// Admin checks credentials for the single configured administrator. The
// plain password is hashed once and never kept.
type Admin struct {
	username string
	hash     string
}

func NewAdmin(username, password string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("admin username and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Admin{username: username, hash: hash}, nil
}

func (a *Admin) Username() string { return a.username }

func (a *Admin) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	passOK := VerifyPassword(password, a.hash)
	return userOK && passOK
}

// RandomToken returns n random bytes, URL-safe base64 encoded.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
