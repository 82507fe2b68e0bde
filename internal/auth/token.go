package auth

import (
	"crypto"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jws"
	"github.com/lestrrat-go/jwx/jwt"
)

const (
	EncryptionAlgorithmDefault = jwa.RS512
	IssuerDefault              = "hospital_management"
	AudienceDefault            = "hospital_management_api"
	AccessTokenType            = "access"
	RefreshTokenType           = "refresh"
	AccessTokenExpiration      = 15 * time.Minute
	RefreshTokenExpiration     = 12 * time.Hour

	typeClaim = "typ"
	roleClaim = "role"
)

// TokenOption determines the Functional Options used to create a new Token.
type TokenOption func(token jwt.Token) error

// defaultOptions returns the claims shared by every token of the given type, followed by
// the given options so callers can override any of them.
func defaultOptions(typ string, expiration time.Duration, opts ...TokenOption) []TokenOption {
	return append([]TokenOption{
		WithIssuer(IssuerDefault),
		WithType(typ),
		WithAudience([]string{AudienceDefault}),
		WithJTI(),
		WithIssuedAt(),
		WithExpiration(expiration),
	}, opts...)
}

// NewJwtToken creates a new Token using the given options.
func NewJwtToken(opts ...TokenOption) (jwt.Token, error) {
	jwtToken := jwt.New()
	for _, opt := range opts {
		if err := opt(jwtToken); err != nil {
			return nil, err
		}
	}
	return jwtToken, nil
}

func WithIssuer(issuer string) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(jwt.IssuerKey, issuer)
	}
}

func WithSubject(subject string) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(jwt.SubjectKey, subject)
	}
}

func WithType(typ string) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(typeClaim, typ)
	}
}

func WithExpiration(duration time.Duration) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(jwt.ExpirationKey, time.Now().Add(duration))
	}
}

// WithJTI sets a unique UUID to the token.
func WithJTI() TokenOption {
	return func(token jwt.Token) error {
		genUUID, err := uuid.NewRandom()
		if err != nil {
			return err
		}
		return token.Set(jwt.JwtIDKey, genUUID.String())
	}
}

func WithAudience(audience []string) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(jwt.AudienceKey, audience)
	}
}

func WithIssuedAt() TokenOption {
	return func(token jwt.Token) error {
		return token.Set(jwt.IssuedAtKey, time.Now())
	}
}

// WithRole sets the subject's role.
func WithRole(role Role) TokenOption {
	return func(token jwt.Token) error {
		return token.Set(roleClaim, string(role))
	}
}

// generateTokenHeaders sets the key ID header to the thumbprint of the signing key.
func generateTokenHeaders(privateKey rsa.PrivateKey) (jws.Headers, error) {
	jwKey, err := jwk.New(privateKey)
	if err != nil {
		return nil, err
	}
	thumbprint, err := jwKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return nil, err
	}
	headers := jws.NewHeaders()
	if err = headers.Set(jws.KeyIDKey, hex.EncodeToString(thumbprint)); err != nil {
		return nil, err
	}
	return headers, nil
}

// SignToken signs the given token using the given private key.
func SignToken(token jwt.Token, privateKey rsa.PrivateKey) (string, error) {
	headers, err := generateTokenHeaders(privateKey)
	if err != nil {
		return "", err
	}
	signedToken, err := jwt.Sign(token, EncryptionAlgorithmDefault, privateKey, jwt.WithHeaders(headers))
	if err != nil {
		return "", err
	}
	return string(signedToken), nil
}

// ParseToken verifies the signature of the given token, checks that it is not expired and
// that it has the expected type, then returns the subject UUID.
func ParseToken(token string, publicKey rsa.PublicKey, typ string) (uuid.UUID, error) {
	parsedToken, err := jwt.Parse([]byte(token), jwt.WithVerify(EncryptionAlgorithmDefault, publicKey), jwt.WithValidate(true))
	if err != nil {
		return uuid.UUID{}, err
	}
	if got, _ := parsedToken.Get(typeClaim); got != typ {
		return uuid.UUID{}, errors.New("unexpected token type")
	}
	return uuid.Parse(parsedToken.Subject())
}

// GenerateTokens generates Tokens for the given user.
func GenerateTokens(privateKey rsa.PrivateKey, user User, opts ...TokenOption) (*Tokens, error) {
	opts = append([]TokenOption{WithSubject(user.UUID.String()), WithRole(user.Role)}, opts...)
	accessToken, err := NewJwtToken(defaultOptions(AccessTokenType, AccessTokenExpiration, opts...)...)
	if err != nil {
		return nil, err
	}
	signedAccessToken, err := SignToken(accessToken, privateKey)
	if err != nil {
		return nil, err
	}
	refreshToken, err := NewJwtToken(defaultOptions(RefreshTokenType, RefreshTokenExpiration, opts...)...)
	if err != nil {
		return nil, err
	}
	signedRefreshToken, err := SignToken(refreshToken, privateKey)
	if err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:  signedAccessToken,
		RefreshToken: signedRefreshToken,
	}, nil
}

// MustGenerateTokens generates Tokens for the given user and if any error occurs, will panic.
func MustGenerateTokens(privateKey rsa.PrivateKey, user User, opts ...TokenOption) *Tokens {
	tokens, err := GenerateTokens(privateKey, user, opts...)
	if err != nil {
		panic(err)
	}
	return tokens
}
