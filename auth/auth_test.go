package auth

import (
	"consult-chat/domain"
	"consult-chat/errors"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Issuer:    "identity",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-known-by-the-client"))
	require.NoError(t, err)
	return token
}

func TestRoleFromToken(t *testing.T) {
	tests := []struct {
		name   string
		token  func(t *testing.T) string
		staff  []string
		expect domain.Role
	}{
		{"roles array with pharmacist", func(t *testing.T) string {
			return signToken(t, Claims{Roles: []string{"USER", "PHARMACIST"}})
		}, nil, domain.RoleStaff},
		{"single role claim with prefix", func(t *testing.T) string {
			return signToken(t, Claims{Role: "ROLE_STAFF"})
		}, nil, domain.RoleStaff},
		{"lower case role", func(t *testing.T) string {
			return signToken(t, Claims{Role: "admin"})
		}, nil, domain.RoleStaff},
		{"customer role", func(t *testing.T) string {
			return signToken(t, Claims{Roles: []string{"CUSTOMER"}})
		}, nil, domain.RoleCustomer},
		{"custom staff roles", func(t *testing.T) string {
			return signToken(t, Claims{Roles: []string{"CLERK"}})
		}, []string{"clerk"}, domain.RoleStaff},
		{"opaque token", func(*testing.T) string { return "opaque-session-token" }, nil, domain.RoleCustomer},
		{"empty token", func(*testing.T) string { return "" }, nil, domain.RoleCustomer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expect, RoleFromToken(tt.token(t), tt.staff))
		})
	}
}

func TestDisplayName(t *testing.T) {
	req := require.New(t)

	req.Equal("Dr. Martin", DisplayName(signToken(t, Claims{Name: "Dr. Martin"})))
	req.Equal("user-7", DisplayName(signToken(t, Claims{})))
	req.Empty(DisplayName("opaque"))
}

func TestStaticSource(t *testing.T) {
	req := require.New(t)

	token, err := NewStaticSource("  abc \n").Credential(context.Background())
	req.NoError(err)
	req.Equal("abc", token)

	_, err = NewStaticSource(" ").Credential(context.Background())
	req.ErrorIs(err, errors.ErrAuthRequired)
}

func TestFileSource(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	req.NoError(os.WriteFile(path, []byte("file-token\n"), 0o600))

	token, err := NewFileSource(path).Credential(context.Background())
	req.NoError(err)
	req.Equal("file-token", token)

	_, err = NewFileSource(filepath.Join(dir, "missing")).Credential(context.Background())
	req.ErrorIs(err, errors.ErrAuthRequired)

	req.NoError(os.WriteFile(path, []byte("\n"), 0o600))
	_, err = NewFileSource(path).Credential(context.Background())
	req.ErrorIs(err, errors.ErrAuthRequired)
}

func TestChain(t *testing.T) {
	req := require.New(t)
	chain := Chain{NewStaticSource(""), NewStaticSource("second")}

	token, err := chain.Credential(context.Background())
	req.NoError(err)
	req.Equal("second", token)

	_, err = Chain{NewStaticSource("")}.Credential(context.Background())
	req.ErrorIs(err, errors.ErrAuthRequired)
}
