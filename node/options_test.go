package node

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsReputationDirNamespacedByInstance(t *testing.T) {
	opt := DefaultOptions()
	opt.DataDir = t.TempDir()
	require.Equal(t, filepath.Join(opt.DataDir, "reputation"), opt.ReputationDir())

	opt.BuildInstanceId("peer-abc123")
	require.Equal(t, filepath.Join(opt.DataDir, "reputation", "peer-abc123"), opt.ReputationDir())
}

func TestCheckAndSetOptionsCreatesDirAndRejectsDoubleOpen(t *testing.T) {
	opt := DefaultOptions()
	opt.DataDir = t.TempDir()
	opt.BuildInstanceId("peer-xyz")

	require.NoError(t, opt.CheckAndSetOptions())
	require.DirExists(t, opt.ReputationDir())

	require.Error(t, opt.CheckAndSetOptions())
}
