package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmd_DefaultTransportIsStdio(t *testing.T) {
	cmd := newServeCmd()

	flag := cmd.Flags().Lookup("transport")
	assert.NotNil(t, flag, "should have a --transport flag")
	assert.Equal(t, "stdio", flag.DefValue)
}

func TestServeCmd_Name(t *testing.T) {
	cmd := newServeCmd()
	assert.Equal(t, "serve", cmd.Name())
}
