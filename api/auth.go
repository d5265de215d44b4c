package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/mockinterview/pkg/models"
)

const operatorRole = "operator"

// AuthHandler signs in the single configured operator account.
type AuthHandler struct {
	username      string
	passwordHash  string
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler. An empty username disables sign-in.
func NewAuthHandler(username, passwordHash, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{username: username, passwordHash: passwordHash, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	if h.username == "" {
		http.Error(w, "Operator sign-in is not configured", http.StatusServiceUnavailable)
		return
	}

	var req models.SigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	if bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)) != nil || !userOK {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  h.username,
		"role": operatorRole,
		"exp":  time.Now().Add(h.tokenDuration).Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.SigninResponse{Token: tokenStr})
}
