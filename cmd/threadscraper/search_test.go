package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFlagsOnlyIncludesChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "search"}
	addSearchFlags(cmd)

	require.NoError(t, cmd.ParseFlags([]string{"--mode", "latest", "--workers", "4", "--marker", "", "--save"}))

	flags := searchFlags(cmd)
	assert.Equal(t, "latest", flags["mode"])
	assert.Equal(t, 4, flags["workers"])
	assert.Equal(t, "", flags["marker"], "an explicit empty marker must reach the config")
	assert.Equal(t, true, flags["save"])

	assert.NotContains(t, flags, "max-results")
	assert.NotContains(t, flags, "author")
	assert.NotContains(t, flags, "chronological")
}

func TestIsKnownCommand(t *testing.T) {
	assert.True(t, isKnownCommand("search"))
	assert.True(t, isKnownCommand("serve"))
	assert.True(t, isKnownCommand("auth"))
	assert.True(t, isKnownCommand("config"))
	assert.True(t, isKnownCommand("show"))
	assert.False(t, isKnownCommand("golang"))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "", maskToken(""))
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "AAAA...ZZZZ", maskToken("AAAA1234567890ZZZZ"))
}
