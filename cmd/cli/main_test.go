package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/signup/activities"
	"github.com/nomis52/signup/config"
	"github.com/nomis52/signup/server"
)

func startServer(t *testing.T) string {
	t.Helper()
	srv, err := server.New(context.Background(), config.Default(),
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_List(t *testing.T) {
	url := startServer(t)

	out, _, err := runCLI(t, "-server", url, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTIVITY")
	assert.Contains(t, out, "Basketball Team")
	assert.Contains(t, out, "james@mergington.edu")
}

func TestRun_SignupAndUnregister(t *testing.T) {
	url := startServer(t)

	out, _, err := runCLI(t, "-server", url, "signup", "-activity", "Math Club", "-email", "testuser@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Signed up testuser@mergington.edu for Math Club\n", out)

	_, _, err = runCLI(t, "-server", url, "signup", "-activity", "Math Club", "-email", "testuser@mergington.edu")
	assert.ErrorIs(t, err, activities.ErrAlreadyRegistered)

	out, _, err = runCLI(t, "-server", url, "unregister", "-activity", "Math Club", "-email", "testuser@mergington.edu")
	require.NoError(t, err)
	assert.Equal(t, "Unregistered testuser@mergington.edu from Math Club\n", out)

	_, _, err = runCLI(t, "-server", url, "unregister", "-activity", "Nonexistent", "-email", "nobody@mergington.edu")
	assert.ErrorIs(t, err, activities.ErrActivityNotFound)
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"enroll"}},
		{name: "signup without email", args: []string{"signup", "-activity", "Chess Club"}},
		{name: "unregister without activity", args: []string{"unregister", "-email", "a@b.c"}},
		{name: "bad flag", args: []string{"-nope", "list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := runCLI(t, tt.args...)
			assert.ErrorIs(t, err, errUsage)
			assert.NotEmpty(t, stderr)
		})
	}
}

func TestRun_Version(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signup cli")
}
