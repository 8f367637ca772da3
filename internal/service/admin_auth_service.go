package service

import (
	"fmt"
	"time"

	"managerclass/internal/logger"
	"managerclass/internal/security"
)

// AdminSession is an issued admin login
type AdminSession struct {
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	CSRFToken string    `json:"csrfToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminCredentials is the single operator account configured for the dashboard
type AdminCredentials struct {
	Username     string
	Password     string
	PasswordHash string
}

// AdminAuthService checks operator credentials and manages signed sessions
type AdminAuthService struct {
	creds  AdminCredentials
	tokens *security.TokenIssuer
	csrf   *security.CSRFGenerator
	log    *logger.Logger
}

// NewAdminAuthService creates the admin auth service. The JWT secret also
// keys the CSRF tokens bound to each session.
func NewAdminAuthService(creds AdminCredentials, secret string, ttl time.Duration, log *logger.Logger) *AdminAuthService {
	return &AdminAuthService{
		creds:  creds,
		tokens: security.NewTokenIssuer(secret, ttl),
		csrf:   security.NewCSRFGenerator(secret),
		log:    log,
	}
}

// Configured reports whether an admin account exists
func (s *AdminAuthService) Configured() bool {
	return s.creds.Username != "" && (s.creds.PasswordHash != "" || s.creds.Password != "")
}

// Login verifies the credentials and issues a session
func (s *AdminAuthService) Login(username, password string) (*AdminSession, error) {
	if !s.Configured() {
		return nil, ErrAdminNotConfigured
	}
	userOK := security.ConstantTimeEqual(username, s.creds.Username)
	passOK := security.CheckPassword(password, s.creds.PasswordHash, s.creds.Password)
	if !userOK || !passOK {
		s.log.Warn("admin login rejected", "username", username)
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(s.creds.Username)
	if err != nil {
		return nil, err
	}
	csrfToken, err := s.csrf.GenerateToken(claims.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	s.log.Info("admin logged in", "username", claims.Username)
	return &AdminSession{
		Token:     token,
		Username:  claims.Username,
		CSRFToken: csrfToken,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks a session token and returns the session it encodes
func (s *AdminAuthService) Verify(token string) (*AdminSession, error) {
	claims, err := s.verifyClaims(token)
	if err != nil {
		return nil, err
	}
	csrfToken, err := s.csrf.GenerateToken(claims.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return &AdminSession{
		Token:     token,
		Username:  claims.Username,
		CSRFToken: csrfToken,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ValidateCSRF checks the CSRF token presented with a mutating admin request
func (s *AdminAuthService) ValidateCSRF(token, csrfToken string) bool {
	claims, err := s.verifyClaims(token)
	if err != nil {
		return false
	}
	return s.csrf.ValidateToken(claims.SessionID(), csrfToken)
}

// verifyClaims checks the token signature and that it names the configured operator
func (s *AdminAuthService) verifyClaims(token string) (*security.AdminClaims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if !s.Configured() || !security.ConstantTimeEqual(claims.Username, s.creds.Username) {
		s.log.Warn("admin token for unknown operator", "username", claims.Username)
		return nil, security.ErrInvalidToken
	}
	return claims, nil
}
