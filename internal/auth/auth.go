package auth

import (
	"architect/internal/apperr"
	"architect/internal/config"
	"architect/internal/logger"
	"architect/internal/repository/db"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type contextKey string

const userIDKey contextKey = "user_id"

// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Service registers users, checks credentials and issues tokens
type Service struct {
	db     db.Database
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a new auth Service
func NewService(database db.Database, cfg config.AuthConfig) *Service {
	ttl := cfg.TokenExpiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		db:     database,
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Register creates a user account and returns it with a fresh token
func (s *Service) Register(ctx context.Context, username, email, password string) (*db.User, string, error) {
	user, err := s.db.CreateUser(ctx, username, email, password)
	if err != nil {
		logger.Log.WithError(err).WithField("username", username).Warn("Registration failed")
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}

	logger.Log.WithFields(logrus.Fields{"username": username, "user_id": user.ID}).Info("User registered successfully")
	return user, token, nil
}

// Login verifies credentials and returns a token
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			logger.Log.WithField("username", username).Info("Login failed: user not found")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if !user.VerifyPassword(password) {
		logger.Log.WithField("username", username).Info("Login failed: invalid password")
		return "", ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", err
	}

	logger.Log.WithField("username", username).Info("User logged in successfully")
	return token, nil
}

// CurrentUser loads the account behind a validated token
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*db.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return user, nil
}

func (s *Service) GenerateToken(user *db.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("error generating token: %w", err)
	}
	return signed, nil
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID > 0 {
		return claims, nil
	}

	return nil, jwt.ErrSignatureInvalid
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's user id in the request context
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			sendError(w, http.StatusUnauthorized, "Missing authorization header", nil)
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
			sendError(w, http.StatusUnauthorized, "Invalid authorization header format", nil)
			return
		}

		claims, err := s.ValidateToken(bearerToken[1])
		if err != nil {
			sendError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}

// SeedDemoUser creates the demo user if it doesn't exist
func (s *Service) SeedDemoUser(ctx context.Context) error {
	_, err := s.db.GetUserByUsername(ctx, "demo")
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("error checking demo user: %w", err)
	}

	if _, err := s.db.CreateUser(ctx, "demo", "demo@example.com", "demo123"); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil
		}
		return fmt.Errorf("error seeding demo user: %w", err)
	}

	logger.Log.Info("Demo user created")
	return nil
}

// WithUserID returns a context carrying the authenticated user id
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the user id placed by Middleware
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// sendError sends a standardized JSON error response
func sendError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Error:   "unauthorized",
		Code:    status,
		Message: message,
	}
	if err != nil {
		errResp.Message = fmt.Sprintf("%s: %v", message, err)
	}
	json.NewEncoder(w).Encode(errResp)
}
