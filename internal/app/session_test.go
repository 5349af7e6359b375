package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commitline/internal/config"
	clerrors "commitline/internal/errors"
	"commitline/internal/migrate"
)

func TestOpenUsesDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), Options{Workspace: dir, NoLogFile: true, Quiet: true})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, config.Default(), s.Config)
	latest, err := migrate.Latest()
	require.NoError(t, err)
	assert.Equal(t, latest, s.SchemaVersion)

	m, err := s.Engine.Integrity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90.0, m.Score)
}

func TestOpenReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte("scoring:\n  clean_slate_ceiling: 85\n"), 0o644))
	s, err := Open(context.Background(), Options{Workspace: dir, NoLogFile: true, Quiet: true})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 85.0, s.Config.Scoring.CleanSlateCeiling)
	m, err := s.Engine.Integrity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 85.0, m.Score)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte("scoring:\n  weights:\n    on_time: 0.9\n"), 0o644))
	_, err := Open(context.Background(), Options{Workspace: dir, NoLogFile: true, Quiet: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, clerrors.ErrConfigInvalid)
}
