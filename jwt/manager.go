package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens. Verification
// always pins an expected type; a refresh token presented on an API route
// is rejected even though its signature is valid.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrInvalid covers signature failures, malformed tokens and bad claims.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned for structurally valid but expired tokens.
	ErrExpired = errors.New("token expired")
	// ErrWrongType is returned when the token type claim does not match the
	// expected type.
	ErrWrongType = errors.New("wrong token type")
)

// Config holds signing material and token lifetimes.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the payload carried by both token types.
type Claims struct {
	UserID      string   `json:"uid"`
	TenantID    string   `json:"tid"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"perms,omitempty"`
	TokenType   string   `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is a freshly issued access/refresh token pair. ExpiresIn is the
// access token's remaining lifetime in seconds at issuance.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Manager signs and verifies tokens with a server-held secret or key pair.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates the configuration and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("jwt: access and refresh TTLs must be positive")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("jwt: refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("jwt: leeway out of range")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("jwt: hs256 requires a secret")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}
	return &Manager{config: cfg, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// IssuePair mints an access token and a refresh token for the user. Both
// carry the same identity claims; only the type and lifetime differ.
func (m *Manager) IssuePair(userID, tenantID, email, role string, permissions []string) (Pair, error) {
	access, err := m.sign(userID, tenantID, email, role, permissions, TypeAccess, m.config.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.sign(userID, tenantID, email, role, permissions, TypeRefresh, m.config.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.config.AccessTTL.Seconds()),
	}, nil
}

// IssueAccess mints a standalone access token. Used by the refresh flow,
// which does not rotate the refresh token.
func (m *Manager) IssueAccess(userID, tenantID, email, role string, permissions []string) (string, int64, error) {
	access, err := m.sign(userID, tenantID, email, role, permissions, TypeAccess, m.config.AccessTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(m.config.AccessTTL.Seconds()), nil
}

// Verify checks the signature, expiry and type claim. Expired tokens map to
// ErrExpired, type mismatches to ErrWrongType, everything else to ErrInvalid.
func (m *Manager) Verify(tokenStr string, expected TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey()
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	if claims.TokenType != string(expected) {
		return nil, ErrWrongType
	}
	return claims, nil
}

// Decode parses a token without verifying the signature. Only used for
// bookkeeping such as reading the expiry of a token being blacklisted;
// never trust decoded claims for authentication.
func (m *Manager) Decode(tokenStr string) (*Claims, error) {
	return Decode(tokenStr)
}

// Decode is the package-level non-verifying parse. Tenant resolution uses
// it to read the tenant claim before any key material is in play.
func Decode(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return claims, nil
}

func (m *Manager) sign(userID, tenantID, email, role string, permissions []string, typ TokenType, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:      userID,
		TenantID:    tenantID,
		Email:       email,
		Role:        role,
		Permissions: permissions,
		TokenType:   string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(m.method(), claims)
	key, err := m.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: invalid ed25519 public key type")
	}
	return edKey, nil
}
