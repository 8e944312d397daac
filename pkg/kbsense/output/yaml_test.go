package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestYAMLFormatter(t *testing.T) {
	out := render(t, "yaml", &Result{Command: "validate", Validation: sampleValidation()})

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))

	assert.Equal(t, "validate", decoded["command"])
	assert.NotContains(t, decoded, "gamma_results")

	validation := decoded["validation"].(map[string]interface{})
	assert.Equal(t, "failed", validation["status"])

	gamma := validation["gamma_results"].(map[string]interface{})
	record := gamma["record"].(map[string]interface{})
	assert.Contains(t, record, "new_files", "change set fields are inlined into the record")
	assert.Contains(t, record, "gamma_metrics")
}

func TestYAMLFormatter_Delta(t *testing.T) {
	out := render(t, "yaml", &Result{Delta: sampleDelta()})

	assert.Contains(t, out, "pair_analyses:")
	assert.Contains(t, out, "fact_id: 2")
	assert.Contains(t, out, "- Missing rule2")
}
