package reputation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPeerHasDefaultScore(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.Equal(t, int64(Default), store.Score("peer-a"))
	require.True(t, store.IsTrusted("peer-a"))
}

func TestPenalizeDeductsAndPersists(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	store.Penalize("peer-b")
	require.Equal(t, int64(Default-Penalty), store.Score("peer-b"))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, int64(Default-Penalty), reopened.Score("peer-b"))
}

func TestRepeatedPenaltiesCanUntrustAPeer(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < (Default/Penalty)+1; i++ {
		store.Penalize("peer-c")
	}
	require.False(t, store.IsTrusted("peer-c"))
}

func TestRewardOffsetsPenalty(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	store.Penalize("peer-d")
	store.Reward("peer-d", Penalty)
	require.Equal(t, int64(Default), store.Score("peer-d"))
}
