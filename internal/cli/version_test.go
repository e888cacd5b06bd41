package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/PartFlow/internal/buildinfo"
)

func TestVersionCmd_HumanReadable(t *testing.T) {
	stdout, _, code := executeCmd(t, "version")
	assert.Equal(t, ExitOK, code)

	assert.Contains(t, stdout, "partflow v")
	assert.Contains(t, stdout, buildinfo.Version)
	assert.Contains(t, stdout, buildinfo.Commit)
	assert.Contains(t, stdout, buildinfo.Date)
}

func TestVersionCmd_JSON(t *testing.T) {
	stdout, _, code := executeCmd(t, "version", "--json")
	require.Equal(t, ExitOK, code)

	var info buildinfo.Info
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, buildinfo.GetInfo(), info)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, stderr, code := executeCmd(t, "version", "extra")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "unknown command")
}
