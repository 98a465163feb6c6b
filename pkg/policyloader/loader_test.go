package policyloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const rulesYAML = `
schema_version: "1.0.0"
rules:
  - id: r1
    when:
      agent: scout
    then:
      action: observe
      decision_class: critical
`

const authorityYAML = `
schema_version: "1.0.0"
default:
  require: agent
classes:
  critical:
    require: human
agents:
  restricted:
    allowed_classes: ["ops"]
`

func TestLoadRulesNormalizesDecisionClass(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", rulesYAML)

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "safety_critical", rules[0].Then.DecisionClass)
}

func TestLoadRulesRejectsUnsupportedSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", `
schema_version: "9.0.0"
rules: []
`)
	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadRulesRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", `
schema_version: "1.0.0"
rules:
  - id: r1
    unexpected_field: true
`)
	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestLoadAuthorityMatrixNormalizesClassesAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "authority.yaml", authorityYAML)

	matrix, err := LoadAuthorityMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, "human", matrix.Classes["safety_critical"].Require)
	assert.Equal(t, []string{"operational"}, matrix.Agents["restricted"].AllowedClasses)
}

func TestRegistryReloadKeepsOldPolicyOnFailure(t *testing.T) {
	dir := t.TempDir()
	rulesPath := writeFile(t, dir, "rules.yaml", rulesYAML)
	authPath := writeFile(t, dir, "authority.yaml", authorityYAML)
	autoPath := writeFile(t, dir, "autonomy.json", `{"agents":{"scout":{"status":"active","autonomy":0.9}}}`)

	reg, err := NewRegistry(rulesPath, authPath, autoPath)
	require.NoError(t, err)

	snap := reg.Snapshot()
	require.Len(t, snap.Rules, 1)

	require.NoError(t, os.WriteFile(rulesPath, []byte("not: [valid"), 0644))
	assert.Error(t, reg.Reload())

	snapAfter := reg.Snapshot()
	require.Len(t, snapAfter.Rules, 1, "a failed reload must not blank out the previously loaded policy")
}
