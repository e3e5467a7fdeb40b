package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMalformed is returned when a token cannot be decoded or its signature check fails.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired is returned when a structurally valid token is past its expiry.
	ErrTokenExpired = errors.New("expired token")
)

// RefreshTokenClaims is the verified content of a refresh token. IssuedAt carries
// microsecond precision and is the rotation compare key; the session store mirrors it.
type RefreshTokenClaims struct {
	AccountID string
	DeviceID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// refreshJWT is the wire shape of refresh token claims. The standard iat claim is
// second-granular, too coarse to distinguish tokens rotated within the same second,
// so the rotation key travels as unix microseconds in iat_us.
type refreshJWT struct {
	jwt.RegisteredClaims
	DeviceID       string `json:"device_id"`
	IssuedAtMicros int64  `json:"iat_us"`
}

type accessJWT struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id"`
}

// TokenProvider issues and verifies JWT access and refresh tokens using RS256 or ES256 (private/public key).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and validated on verify.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess issues a short-lived access JWT for the given account and device.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(accountID, deviceID string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := accessJWT{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DeviceID: deviceID,
	}
	token, err = p.sign(claims)
	return token, expiresAt, err
}

// IssueRefresh issues a refresh JWT for the given account and device and returns the
// token together with its decoded claims. Caller must mirror claims.IssuedAt and
// claims.ExpiresAt into the device's session record.
func (p *TokenProvider) IssueRefresh(accountID, deviceID string) (string, *RefreshTokenClaims, error) {
	// Truncated to microseconds so the value round-trips exactly through timestamptz.
	issuedAt := time.Now().UTC().Truncate(time.Microsecond)
	expiresAt := issuedAt.Add(p.refreshTTL)
	wire := refreshJWT{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DeviceID:       deviceID,
		IssuedAtMicros: issuedAt.UnixMicro(),
	}
	token, err := p.sign(wire)
	if err != nil {
		return "", nil, err
	}
	return token, &RefreshTokenClaims{
		AccountID: accountID,
		DeviceID:  deviceID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt.Truncate(time.Microsecond),
	}, nil
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrTokenMalformed
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

func (p *TokenProvider) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
		return p.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
		return p.publicKey, nil
	}
	return nil, ErrTokenMalformed
}

// VerifyRefresh parses and verifies a refresh token (signature, exp, iss, aud).
// Verification is purely structural; it does not consult the session store.
// Returns ErrTokenExpired for a valid-but-expired token, ErrTokenMalformed otherwise.
func (p *TokenProvider) VerifyRefresh(tokenString string) (*RefreshTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &refreshJWT{}, p.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	claims, ok := token.Claims.(*refreshJWT)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if err := p.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.DeviceID == "" || claims.IssuedAtMicros == 0 || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	return &RefreshTokenClaims{
		AccountID: claims.Subject,
		DeviceID:  claims.DeviceID,
		IssuedAt:  time.UnixMicro(claims.IssuedAtMicros).UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// VerifyAccess parses and verifies an access token (signature, exp, iss, aud).
// Returns the account and device ids, or ErrTokenExpired/ErrTokenMalformed.
func (p *TokenProvider) VerifyAccess(tokenString string) (accountID, deviceID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessJWT{}, p.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrTokenExpired
		}
		return "", "", ErrTokenMalformed
	}
	claims, ok := token.Claims.(*accessJWT)
	if !ok || !token.Valid {
		return "", "", ErrTokenMalformed
	}
	if err := p.checkIssuerAudience(claims.Issuer, claims.Audience); err != nil {
		return "", "", err
	}
	if claims.Subject == "" {
		return "", "", ErrTokenMalformed
	}
	return claims.Subject, claims.DeviceID, nil
}

func (p *TokenProvider) checkIssuerAudience(issuer string, audience jwt.ClaimStrings) error {
	if issuer != p.issuer {
		return ErrTokenMalformed
	}
	for _, a := range audience {
		if a == p.audience {
			return nil
		}
	}
	return ErrTokenMalformed
}
