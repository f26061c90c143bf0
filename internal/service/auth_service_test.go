package service

import (
	"context"
	"testing"
	"time"

	"chemtrack/internal/auth"
	"chemtrack/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newAuthFixture(t *testing.T) (*testutil.Store, AuthService) {
	t.Helper()
	store := testutil.NewStore()
	svc := NewAuthService(store.Users(), testSecret, time.Hour)
	return store, svc
}

func TestRegister_Success(t *testing.T) {
	store, svc := newAuthFixture(t)

	user, err := svc.Register(context.Background(), "alice", "Passw0rd!", "Passw0rd!")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "Passw0rd!", user.PasswordHash, "password must be stored hashed")

	stored, err := store.Users().GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestRegister_FieldValidation(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		confirm   string
		wantField string
		wantMsg   string
	}{
		{
			name:      "short username",
			username:  "ab",
			password:  "Passw0rd!",
			confirm:   "Passw0rd!",
			wantField: "username",
			wantMsg:   "Username must be at least 3 characters.",
		},
		{
			name:      "short password",
			username:  "alice",
			password:  "Pw0rd!",
			confirm:   "Pw0rd!",
			wantField: "password",
			wantMsg:   "Password must be at least 8 characters.",
		},
		{
			name:      "no letter",
			username:  "alice",
			password:  "12345678!",
			confirm:   "12345678!",
			wantField: "password",
			wantMsg:   "Password must contain at least one letter.",
		},
		{
			name:      "no digit",
			username:  "alice",
			password:  "password!",
			confirm:   "password!",
			wantField: "password",
			wantMsg:   "Password must contain at least one number.",
		},
		{
			name:      "no special character",
			username:  "alice",
			password:  "password1",
			confirm:   "password1",
			wantField: "password",
			wantMsg:   "Password must contain at least one special character.",
		},
		{
			name:      "mismatched confirmation",
			username:  "alice",
			password:  "Passw0rd!",
			confirm:   "Different1!",
			wantField: "password_confirm",
			wantMsg:   "Passwords do not match.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := newAuthFixture(t)

			_, err := svc.Register(context.Background(), tt.username, tt.password, tt.confirm)
			require.Error(t, err)

			fieldErrs, ok := err.(FieldErrors)
			require.True(t, ok, "expected FieldErrors, got %T", err)
			assert.Contains(t, fieldErrs[tt.wantField], tt.wantMsg)
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	_, svc := newAuthFixture(t)

	_, err := svc.Register(context.Background(), "alice", "Passw0rd!", "Passw0rd!")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "alice", "0therPass!", "0therPass!")
	require.Error(t, err)
	fieldErrs, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Contains(t, fieldErrs["username"], "Username already exists.")
}

func TestLogin(t *testing.T) {
	_, svc := newAuthFixture(t)

	user, err := svc.Register(context.Background(), "alice", "Passw0rd!", "Passw0rd!")
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)

	claims, err := auth.ParseToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	_, err = svc.Login(context.Background(), "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody", "Passw0rd!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
