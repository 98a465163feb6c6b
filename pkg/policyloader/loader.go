// Package policyloader loads and validates George's policy artifacts:
// the rule table, the authority matrix, and the autonomy profile. The
// rule table and authority matrix are strict-mode YAML; a field the
// schema doesn't recognize is a load error, not a silently ignored key.
// The autonomy profile is decoded without that strictness.
package policyloader

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/fleetgov/george/pkg/george"
)

// supportedPolicyRange is the semver range of rule-file schema versions
// this build understands. Bumped whenever Rule/AuthorityMatrix gains or
// drops a required field.
const supportedPolicyRange = ">=1.0.0, <3.0.0"

// ruleFile is the on-disk wrapper around the rule list: a schema_version
// header plus the rules themselves, so old rule files fail loudly instead
// of silently matching against fields that no longer mean what they used
// to.
type ruleFile struct {
	SchemaVersion string        `yaml:"schema_version"`
	Rules         []george.Rule `yaml:"rules"`
}

// classSynonyms normalizes authority-matrix class spellings to the four
// canonical decision classes at load time, so Decide never has to guess
// at a caller's preferred spelling.
var classSynonyms = map[string]string{
	"critical":        george.ClassSafetyCritical,
	"safety":          george.ClassSafetyCritical,
	"safety-critical": george.ClassSafetyCritical,
	"safetycritical":  george.ClassSafetyCritical,
	"ops":             george.ClassOperational,
	"operation":       george.ClassOperational,
}

func normalizeClass(class string) string {
	lower := strings.ToLower(strings.TrimSpace(class))
	if canon, ok := classSynonyms[lower]; ok {
		return canon
	}
	return lower
}

// LoadRules reads and strict-decodes a rule file, checks its
// schema_version against supportedPolicyRange, and returns the rule
// slice in declaration order (Match relies on that order for first-match-
// wins semantics).
func LoadRules(path string) ([]george.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policyloader: read rules: %w", err)
	}

	var rf ruleFile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return nil, fmt.Errorf("policyloader: decode rules: %w", err)
	}

	if err := checkSchemaVersion(rf.SchemaVersion); err != nil {
		return nil, fmt.Errorf("policyloader: rules %s: %w", path, err)
	}

	for i := range rf.Rules {
		if rf.Rules[i].Then.DecisionClass != "" {
			rf.Rules[i].Then.DecisionClass = normalizeClass(rf.Rules[i].Then.DecisionClass)
		}
	}
	return rf.Rules, nil
}

// LoadAuthorityMatrix reads and strict-decodes the authority matrix,
// normalizing every class key (and every agent override's allowed_classes
// entries) to the canonical four-value vocabulary.
func LoadAuthorityMatrix(path string) (*george.AuthorityMatrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policyloader: read authority matrix: %w", err)
	}

	var raw struct {
		SchemaVersion string                           `yaml:"schema_version"`
		Default       george.ClassPolicy               `yaml:"default"`
		Classes       map[string]george.ClassPolicy     `yaml:"classes"`
		Agents        map[string]george.AgentOverride   `yaml:"agents"`
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("policyloader: decode authority matrix: %w", err)
	}

	if err := checkSchemaVersion(raw.SchemaVersion); err != nil {
		return nil, fmt.Errorf("policyloader: authority matrix %s: %w", path, err)
	}

	normalizedClasses := make(map[string]george.ClassPolicy, len(raw.Classes))
	for class, policy := range raw.Classes {
		normalizedClasses[normalizeClass(class)] = policy
	}

	for agent, override := range raw.Agents {
		normalized := make([]string, len(override.AllowedClasses))
		for i, c := range override.AllowedClasses {
			normalized[i] = normalizeClass(c)
		}
		override.AllowedClasses = normalized
		raw.Agents[agent] = override
	}

	return &george.AuthorityMatrix{
		Default: raw.Default,
		Classes: normalizedClasses,
		Agents:  raw.Agents,
	}, nil
}

// LoadAutonomyConfig reads ops/autonomy.json (plain JSON, not YAML — it's
// the file the Orchestrator and external tooling both read and write, so
// it stays in the more interoperable format).
func LoadAutonomyConfig(path string) (*george.AutonomyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policyloader: read autonomy config: %w", err)
	}
	var cfg george.AutonomyConfig
	if err := yamlOrJSON(data, &cfg); err != nil {
		return nil, fmt.Errorf("policyloader: decode autonomy config: %w", err)
	}
	return &cfg, nil
}

func checkSchemaVersion(v string) error {
	if v == "" {
		return fmt.Errorf("missing schema_version")
	}
	constraint, err := semver.NewConstraint(supportedPolicyRange)
	if err != nil {
		return fmt.Errorf("internal: bad constraint: %w", err)
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid schema_version %q: %w", v, err)
	}
	if !constraint.Check(ver) {
		return fmt.Errorf("schema_version %s not in supported range %s", v, supportedPolicyRange)
	}
	return nil
}

// yamlOrJSON decodes data as YAML, which is a superset of JSON — this
// lets autonomy.json (plain JSON) and hand-authored YAML variants share
// one decode path.
func yamlOrJSON(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// Registry bundles the three loaded policy artifacts behind a single
// mutex-guarded pointer swap, so a long-running orchestrator process can
// hot-reload policy without ever serving a half-updated view to a
// concurrent request.
type Registry struct {
	mu    sync.RWMutex
	rules []george.Rule
	auth  *george.AuthorityMatrix
	auto  *george.AutonomyConfig

	rulesPath string
	authPath  string
	autoPath  string
}

// NewRegistry loads all three artifacts once and returns a Registry ready
// to serve Snapshot() calls and later Reload() calls against the same
// paths.
func NewRegistry(rulesPath, authPath, autoPath string) (*Registry, error) {
	r := &Registry{rulesPath: rulesPath, authPath: authPath, autoPath: autoPath}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads all three files and swaps them in atomically. A
// failure leaves the previously loaded policy in force — a bad edit on
// disk must never blank out an already-running registry.
func (r *Registry) Reload() error {
	rules, err := LoadRules(r.rulesPath)
	if err != nil {
		return err
	}
	auth, err := LoadAuthorityMatrix(r.authPath)
	if err != nil {
		return err
	}
	auto, err := LoadAutonomyConfig(r.autoPath)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.rules, r.auth, r.auto = rules, auth, auto
	r.mu.Unlock()
	return nil
}

// Snapshot is a consistent, point-in-time view of the loaded policy.
type Snapshot struct {
	Rules   []george.Rule
	Matrix  *george.AuthorityMatrix
	Profiles *george.AutonomyConfig
}

// Snapshot returns the registry's current policy view.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{Rules: r.rules, Matrix: r.auth, Profiles: r.auto}
}
