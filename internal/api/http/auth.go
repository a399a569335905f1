package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"adboard-backend/internal/config"
	"adboard-backend/internal/security"
)

type accountKey struct{}

func withAccount(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, accountKey{}, id)
}

// accountID returns the account the request acts for. Public routes have none.
func accountID(r *http.Request) int64 {
	id, _ := r.Context().Value(accountKey{}).(int64)
	return id
}

// authenticate checks the bearer token on every route whose security level
// requires one and puts the account id on the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		if route == nil || config.GetSecurityLevel(route.GetName()) == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("Authorization")
		if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
			token = token[7:]
		}
		if token == "" {
			writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", "authorization token is not provided")
			return
		}

		claims, err := h.tokens.ValidateToken(token)
		if err != nil {
			writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		if claims.Type != security.TokenTypeAccess {
			writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", security.ErrWrongTokenType.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), claims.AccountID)))
	})
}

type tokenRequest struct {
	IntegrationKey string `json:"integration_key"`
	AccountID      int64  `json:"account_id"`
	Username       string `json:"username"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Staff       bool      `json:"staff"`
}

// issueToken trades the front-end integration key for a token acting as one
// account, registering the account on first sight.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decode(w, r, &req) {
		return
	}
	if err := security.VerifyIntegrationKey(h.integrationKeyHash, req.IntegrationKey); err != nil {
		writeErrorCode(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		return
	}
	if _, err := h.svc.Accounts.Ensure(r.Context(), req.AccountID, req.Username); err != nil {
		writeError(w, err)
		return
	}

	var roles []string
	staff := h.svc.Staff.IsStaff(req.AccountID)
	if staff {
		roles = []string{"staff"}
	}
	token, expires, err := h.tokens.GenerateAccessToken(req.AccountID, roles)
	if err != nil {
		writeError(w, fmt.Errorf("sign token: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, ExpiresAt: expires, Staff: staff})
}
