package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepsCmd_Table(t *testing.T) {
	dir := chdirTemp(t)
	writeProjectConfig(t, dir, pipelineConfig)

	stdout, _, code := executeCmd(t, "steps")
	require.Equal(t, ExitOK, code)

	assert.Contains(t, stdout, "STEP")
	assert.Regexp(t, `load\s+yes\s+extract,transform\s+sh\s+Load rows`, stdout)
	// Default catalog steps stay defined but are not enabled by this file.
	assert.Regexp(t, `applications\s+no\s+-\s+-`, stdout)
}

func TestStepsCmd_JSON(t *testing.T) {
	chdirTemp(t)

	stdout, _, code := executeCmd(t, "steps", "--json")
	require.Equal(t, ExitOK, code)

	var infos []stepInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &infos))
	require.Len(t, infos, 5)

	assert.Equal(t, "applications", infos[0].Name)
	assert.True(t, infos[0].Enabled)
	assert.Equal(t, []string{}, infos[0].Dependencies)

	byName := make(map[string]stepInfo, len(infos))
	for _, s := range infos {
		byName[s.Name] = s
	}
	assert.Equal(t, []string{"marketing_descriptions", "popularity_codes"}, byName["sdc_template"].Dependencies)
}
