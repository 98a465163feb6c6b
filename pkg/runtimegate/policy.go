package runtimegate

// ClassGatePolicy is the per-decision-class policy entry read from the
// runtime gate policy file.
type ClassGatePolicy struct {
	MinHealthScore          float64 `yaml:"min_health_score" json:"min_health_score"`
	RequireGuardianOK       bool    `yaml:"require_guardian_ok" json:"require_guardian_ok"`
	RequireTrace            bool    `yaml:"require_trace" json:"require_trace"`
	RequireStatusEndpoint   bool    `yaml:"require_status_endpoint" json:"require_status_endpoint"`
	OnFail                  string  `yaml:"on_fail" json:"on_fail"`
}

// Policy is the full runtime gate policy file: one entry per decision
// class plus the global override flags.
type Policy struct {
	Classes            map[string]ClassGatePolicy `yaml:"classes" json:"classes"`
	AllowHumanOverride bool                       `yaml:"allow_human_override" json:"allow_human_override"`
	AdvisoryMode       bool                       `yaml:"advisory_mode" json:"advisory_mode"`
}

// PolicyFor returns the policy entry for class, or a maximally permissive
// zero-value policy (min_health_score 0, nothing else required, on_fail
// "ALLOW") when class has no entry — a decision class the policy file
// doesn't mention is treated as unconstrained, not as a hard failure.
func (p Policy) PolicyFor(class string) ClassGatePolicy {
	if cp, ok := p.Classes[class]; ok {
		return cp
	}
	return ClassGatePolicy{OnFail: "ALLOW"}
}
