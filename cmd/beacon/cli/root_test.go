package cli

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestRootCommandFlags(t *testing.T) {
	flags := map[string]bool{}
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		flags[f.Name] = true
	})

	assert.True(t, flags["bind"], "bind flag should exist")
	assert.True(t, flags["config"], "config flag should exist")
	assert.True(t, flags["debug"], "debug flag should exist")
}

func TestRootCommandUse(t *testing.T) {
	assert.Equal(t, "beacon", rootCmd.Use)
}
