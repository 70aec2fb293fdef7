package jwt

import (
	"sync"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claim names carried by access tokens.
const (
	ClaimCompanyID = "company_id"
	ClaimUserID    = "user_id"
	ClaimType      = "type"

	TokenTypeAccess = "access"
)

type Service interface {
	GenerateAccessToken(userID string, companyID string) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeToken(token string)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	accessTokenExpirationTime time.Duration
	tokenAuth                 *jwtauth.JWTAuth
	revokedTokens             map[string]int64
	mu                        sync.RWMutex
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService signs with HS256. Tokens are normally minted by the identity service
// sharing secretKey; GenerateAccessToken exists for tooling and tests.
func NewJWTService(secretKey string, accessTokenExpirationTime time.Duration) Service {
	if accessTokenExpirationTime <= 0 {
		accessTokenExpirationTime = 15 * time.Minute
	}
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedTokens:             make(map[string]int64),
		now:                       time.Now,
	}
}

func (j *JWTService) GenerateAccessToken(userID string, companyID string) (token string, expiresAt int64, err error) {
	expiresAt = j.now().Add(j.accessTokenExpirationTime).Unix()
	claims := map[string]interface{}{
		ClaimUserID:    userID,
		ClaimCompanyID: companyID,
		ClaimType:      TokenTypeAccess,
		"exp":          expiresAt,
	}
	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

func (j *JWTService) RevokeToken(token string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.revokedTokens[token] = j.now().Unix()
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}
