package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUpdateShowLeaderboard(t *testing.T) {
	t.Setenv("HANZIKIT_PROFILE", "")
	dir := t.TempDir()
	store := []string{"--adapter", "file", "--data-dir", dir}

	out, err := run(t, append([]string{"update", "42", "lessons_completed"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "الخطوات الأولى")

	out, err = run(t, append([]string{"update", "42", "lessons_completed", "2"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "no new achievements")

	out, err = run(t, append([]string{"update", "42", "bogus"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ignored")

	out, err = run(t, append([]string{"show", "42", "--view", "details"}, store...)...)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	out, err = run(t, append([]string{"leaderboard", "-n", "3"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "🥇")
	assert.Contains(t, out, "User 42")

	out, err = run(t, append([]string{"check", "42"}, store...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "no new achievements")
}

func TestArgumentErrors(t *testing.T) {
	_, err := run(t, "update", "abc", "lessons_completed", "--adapter", "memory")
	assert.Error(t, err)

	_, err = run(t, "update", "1", "lessons_completed", "x", "--adapter", "memory")
	assert.Error(t, err)

	_, err = run(t, "show", "1", "--view", "nope", "--adapter", "memory")
	assert.Error(t, err)

	_, err = run(t, "migrate", "--adapter", "memory")
	assert.Error(t, err)
}

func TestCatalogAndProfiles(t *testing.T) {
	out, err := run(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "hsk6_master")
	assert.Contains(t, out, "2,000")

	out, err = run(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "production")
}
