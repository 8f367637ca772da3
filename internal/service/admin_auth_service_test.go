package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"managerclass/internal/logger"
	"managerclass/internal/security"
)

func TestAdminLogin(t *testing.T) {
	hash, err := security.HashPassword("s3cret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		creds    AdminCredentials
		username string
		password string
		wantErr  error
	}{
		{name: "plain password", creds: AdminCredentials{Username: "admin", Password: "s3cret"}, username: "admin", password: "s3cret"},
		{name: "bcrypt hash", creds: AdminCredentials{Username: "admin", PasswordHash: hash}, username: "admin", password: "s3cret"},
		{name: "hash wins over plain", creds: AdminCredentials{Username: "admin", Password: "other", PasswordHash: hash}, username: "admin", password: "other", wantErr: ErrInvalidCredentials},
		{name: "wrong password", creds: AdminCredentials{Username: "admin", Password: "s3cret"}, username: "admin", password: "guess", wantErr: ErrInvalidCredentials},
		{name: "wrong username", creds: AdminCredentials{Username: "admin", Password: "s3cret"}, username: "root", password: "s3cret", wantErr: ErrInvalidCredentials},
		{name: "not configured", creds: AdminCredentials{}, username: "admin", password: "s3cret", wantErr: ErrAdminNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAdminAuthService(tt.creds, "test-secret", time.Hour, logger.Nop())
			session, err := svc.Login(tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "admin", session.Username)
			assert.NotEmpty(t, session.Token)
			assert.NotEmpty(t, session.CSRFToken)
			assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
		})
	}
}

func TestAdminVerifyAndCSRF(t *testing.T) {
	svc := NewAdminAuthService(AdminCredentials{Username: "admin", Password: "pw"}, "test-secret", time.Hour, logger.Nop())
	session, err := svc.Login("admin", "pw")
	require.NoError(t, err)

	verified, err := svc.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.CSRFToken, verified.CSRFToken)
	assert.True(t, svc.ValidateCSRF(session.Token, session.CSRFToken))
	assert.False(t, svc.ValidateCSRF(session.Token, "forged"))

	other, err := svc.Login("admin", "pw")
	require.NoError(t, err)
	assert.False(t, svc.ValidateCSRF(other.Token, session.CSRFToken), "csrf tokens are bound to one session")

	_, err = svc.Verify("garbage")
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	foreign := NewAdminAuthService(AdminCredentials{Username: "admin", Password: "pw"}, "other-secret", time.Hour, logger.Nop())
	_, err = foreign.Verify(session.Token)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestAdminVerifyRequiresConfiguredOperator(t *testing.T) {
	const secret = "test-secret"
	issuer := security.NewTokenIssuer(secret, time.Hour)

	tests := []struct {
		name     string
		creds    AdminCredentials
		username string
		wantErr  bool
	}{
		{name: "configured operator", creds: AdminCredentials{Username: "admin", Password: "pw"}, username: "admin"},
		{name: "other username", creds: AdminCredentials{Username: "admin", Password: "pw"}, username: "attacker", wantErr: true},
		{name: "username with different case", creds: AdminCredentials{Username: "admin", Password: "pw"}, username: "Admin", wantErr: true},
		{name: "no operator configured", creds: AdminCredentials{}, username: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAdminAuthService(tt.creds, secret, time.Hour, logger.Nop())
			token, claims, err := issuer.Issue(tt.username)
			require.NoError(t, err)
			csrfToken, err := security.NewCSRFGenerator(secret).GenerateToken(claims.SessionID())
			require.NoError(t, err)

			session, err := svc.Verify(token)
			if tt.wantErr {
				assert.ErrorIs(t, err, security.ErrInvalidToken)
				assert.False(t, svc.ValidateCSRF(token, csrfToken))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, session.Username)
			assert.True(t, svc.ValidateCSRF(token, csrfToken))
		})
	}
}
