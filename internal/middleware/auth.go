package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/mirkobrombin/dnsforge/internal/config"
	"golang.org/x/crypto/bcrypt"
)

const realm = `Basic realm="dnsforge API"`

func account() *config.AccountConfig {
	if config.GlobalConf == nil {
		return nil
	}
	return &config.GlobalConf.Account
}

func basicConfigured(acc *config.AccountConfig) bool {
	return acc != nil && acc.Username != "" && acc.PasswordHash != ""
}

func tokenConfigured(acc *config.AccountConfig) bool {
	return acc != nil && acc.APIToken != ""
}

func validBasic(acc *config.AccountConfig, r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(acc.Username)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(pass)) == nil
}

func requestToken(r *http.Request) string {
	token := r.Header.Get("X-API-Token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	return token
}

func validToken(acc *config.AccountConfig, r *http.Request) bool {
	return subtle.ConstantTimeCompare([]byte(requestToken(r)), []byte(acc.APIToken)) == 1
}

// BasicAuthMiddleware enforces Basic Authentication if credentials are configured.
func BasicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc := account()
		if !basicConfigured(acc) {
			next.ServeHTTP(w, r)
			return
		}
		if !validBasic(acc, r) {
			w.Header().Set("WWW-Authenticate", realm)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenAuthMiddleware enforces Token Authentication if a token is configured.
func TokenAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc := account()
		if !tokenConfigured(acc) {
			next.ServeHTTP(w, r)
			return
		}
		if !validToken(acc, r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware accepts either a valid token or valid Basic credentials,
// whichever are configured. With neither configured, it lets every request
// through.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc := account()
		basic, token := basicConfigured(acc), tokenConfigured(acc)
		if !basic && !token {
			next.ServeHTTP(w, r)
			return
		}
		if (token && validToken(acc, r)) || (basic && validBasic(acc, r)) {
			next.ServeHTTP(w, r)
			return
		}
		if basic {
			w.Header().Set("WWW-Authenticate", realm)
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
