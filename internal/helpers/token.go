package helpers

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"easemyday/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
)

var argonParams = argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  32,
	KeyLength:   32,
}

func CreateHash(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, &argonParams)
	if err != nil {
		return "", errors.New("can not create hash password")
	}

	return hash, nil
}

// CompareHash never returns an error for a malformed hash; it simply doesn't match.
func CompareHash(value string, hash string) bool {
	if hash == "" {
		return false
	}
	match, err := argon2id.ComparePasswordAndHash(value, hash)
	return err == nil && match
}

const (
	secretCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// No 0/O or 1/I: invite codes get read aloud and typed in.
	inviteCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateSecret returns a random alphanumeric string of the given length.
func GenerateSecret(length int) (string, error) {
	return randomString(length, secretCharset)
}

func GenerateInviteCode(length int) (string, error) {
	return randomString(length, inviteCharset)
}

func randomString(length int, charset string) (string, error) {
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		out[i] = charset[n.Int64()]
	}
	return string(out), nil
}

func GetUserClaims(c context.Context) (models.UserClaims, error) {
	value, ok := c.Value(models.UserClaimKey{}).(models.UserClaims)
	if !ok {
		return models.UserClaims{}, errors.New("invalid user claims")
	}
	return value, nil
}

// IsDomainAllowed returns true when no restriction is configured or the email's
// domain is in the list.
func IsDomainAllowed(email string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range domains {
		if strings.ToLower(allowed) == domain {
			return true
		}
	}
	return false
}

// ParseUUIDs converts chi URL params into uuids, failing on the first malformed one.
func ParseUUIDs(values []string) (uuid.UUIDs, bool) {
	ids := make(uuid.UUIDs, 0, len(values))
	for _, value := range values {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// GetVisitorID returns the visitor id set by the visitor middleware.
func GetVisitorID(c context.Context) (string, error) {
	value, ok := c.Value(models.VisitorKey{}).(string)
	if !ok || value == "" {
		return "", errors.New("missing visitor")
	}
	return value, nil
}
