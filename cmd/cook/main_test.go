package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{
		"state", "watch", "buy", "check", "claim", "refund", "act",
		"tickets", "candles", "swap", "validate-launch", "claim-nft",
		"history", "serve",
	} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPageArgumentRequired(t *testing.T) {
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"buy"})
	require.NoError(t, err)
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"sauce"}))

	n, err := cmd.Flags().GetInt("tickets")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
