package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/crypto"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
	TypeReset   = "reset"
)

var ErrInvalidToken = errors.New("invalid_token")

type Claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role,omitempty"`
	OrgID  *int64 `json:"orgId,omitempty"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
}

func NewIssuer(secret, issuer string, accessTTL, refreshTTL, resetTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   resetTTL,
		now:        time.Now,
	}
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"-"`
}

// NewTokenPair issues an access token and a refresh token for the same identity.
// Every refresh token gets a random jti so two pairs never collide.
func (i *Issuer) NewTokenPair(userID int64, role string, orgID *int64) (TokenPair, error) {
	now := i.now().UTC()
	access, err := i.sign(Claims{UserID: userID, Role: role, OrgID: orgID, Type: TypeAccess}, now, i.accessTTL, "")
	if err != nil {
		return TokenPair{}, err
	}
	refreshID, err := crypto.NewTokenID()
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := i.sign(Claims{UserID: userID, Role: role, OrgID: orgID, Type: TypeRefresh}, now, i.refreshTTL, refreshID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: now.Add(i.refreshTTL),
	}, nil
}

// NewResetToken issues a password-reset token identified by tokenID.
func (i *Issuer) NewResetToken(userID int64, tokenID string) (string, error) {
	return i.sign(Claims{UserID: userID, Type: TypeReset}, i.now().UTC(), i.resetTTL, tokenID)
}

func (i *Issuer) ResetTTL() time.Duration {
	return i.resetTTL
}

// Parse verifies signature, expiry, issuer and token type.
func (i *Issuer) Parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != tokenType || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) sign(claims Claims, now time.Time, ttl time.Duration, tokenID string) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.UserID, 10),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        tokenID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}
