package main

import (
	"bytes"
	"consult-chat/domain"
	"consult-chat/errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err    error
		expect int
	}{
		{nil, exitOK},
		{fmt.Errorf("%w: CONSULT_WS_URL", errors.ErrInvalidConfig), exitConfig},
		{errors.ErrAuthRequired, exitConfig},
		{fmt.Errorf("%w: message required", errors.ErrInvalidRequest), exitConfig},
		{fmt.Errorf("%w: 503", errors.ErrRegistry), exitRuntime},
		{errors.ErrBootstrapTimeout, exitRuntime},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expect, exitCode(tt.err), "%v", tt.err)
	}
}

func TestResolveRole(t *testing.T) {
	req := require.New(t)
	a := newApp(strings.NewReader(""), &bytes.Buffer{})
	a.config.StaffRoles = "STAFF"

	role, err := a.resolveRole("opaque")
	req.NoError(err)
	req.Equal(domain.RoleCustomer, role)

	a.role = "staff"
	role, err = a.resolveRole("opaque")
	req.NoError(err)
	req.Equal(domain.RoleStaff, role)

	a.role = "janitor"
	_, err = a.resolveRole("opaque")
	req.ErrorIs(err, errors.ErrInvalidConfig)
}

func TestRootCommand_Wiring(t *testing.T) {
	req := require.New(t)
	root := newRootCommand(newApp(strings.NewReader(""), &bytes.Buffer{}))

	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	req.ElementsMatch([]string{"request", "join", "room"}, names)

	join, _, err := root.Find([]string{"join"})
	req.NoError(err)
	req.NotNil(join.Flags().Lookup("id"))

	room, _, err := root.Find([]string{"room"})
	req.NoError(err)
	req.NotEmpty(room.Deprecated)
}

func TestJoin_WithoutCredentialIsAConfigError(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONSULT_TOKEN", "")
	t.Setenv("CONSULT_TOKEN_FILE", "")
	root := newRootCommand(newApp(strings.NewReader(""), &bytes.Buffer{}))
	root.SetArgs([]string{"join", "--id", "42"})

	err := root.Execute()

	require.ErrorIs(t, err, errors.ErrAuthRequired)
	require.Equal(t, exitConfig, exitCode(err))
}
