package token

import (
	"errors"
	"hash/fnv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles a participant can request when joining the media transport.
const (
	RoleBroadcaster = "broadcaster"
	RoleAudience    = "audience"
)

// ErrInvalidRole is returned when the requested role is not recognised.
var ErrInvalidRole = errors.New("invalid rtc role")

// Claims carried by an RTC access token.
type Claims struct {
	jwt.RegisteredClaims
	AppID   string `json:"app_id"`
	Channel string `json:"channel"`
	Role    string `json:"role"`
	UID     uint32 `json:"uid"`
}

// Builder issues signed, time-bounded credentials for the external media
// transport provider.
type Builder struct {
	appID  string
	secret []byte
	ttl    time.Duration
}

// NewBuilder creates an RTC token builder.
func NewBuilder(appID, secret string, ttl time.Duration) *Builder {
	return &Builder{
		appID:  appID,
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Token signs a credential granting role on channel for uid. Returns the
// token and its expiry.
func (b *Builder) Token(channel, role string, uid uint32) (string, time.Time, error) {
	if role != RoleBroadcaster && role != RoleAudience {
		return "", time.Time{}, ErrInvalidRole
	}

	now := time.Now()
	expiresAt := now.Add(b.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AppID:   b.appID,
		Channel: channel,
		Role:    role,
		UID:     uid,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// DeriveUID maps an account id to a stable numeric handle for the media
// transport. FNV-1a is deliberately non-cryptographic; this is an identity
// convenience, not a security mechanism.
func DeriveUID(accountID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(accountID))
	return h.Sum32()
}
