package middleware

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/payroll-engine-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/actor"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
	ErrMissingClaim = errors.New("token is missing company_id or user_id")
)

// AuthRequired accepts verified access tokens and places the tenant and acting user
// from the company_id and user_id claims into the request context. It must run after
// jwtauth.Verifier or jwtauth.Verify.
func AuthRequired(jwtService jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}
			if token == nil {
				response.Unauthorized(w, ErrInvalidToken.Error())
				return
			}

			tokenType, ok := claims[jwt.ClaimType].(string)
			if !ok || tokenType != jwt.TokenTypeAccess {
				response.Unauthorized(w, ErrInvalidToken.Error())
				return
			}
			raw := jwtauth.TokenFromHeader(r)
			if raw == "" {
				raw = jwtauth.TokenFromQuery(r)
			}
			if jwtService.IsTokenRevoked(raw) {
				response.Unauthorized(w, ErrTokenRevoked.Error())
				return
			}

			companyID, _ := claims[jwt.ClaimCompanyID].(string)
			userID, _ := claims[jwt.ClaimUserID].(string)
			if companyID == "" || userID == "" {
				response.Forbidden(w, ErrMissingClaim.Error())
				return
			}

			ctx := actor.WithActor(r.Context(), actor.Actor{CompanyID: companyID, UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}
