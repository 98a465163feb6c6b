// Package config loads George's runtime configuration from environment
// variables. There are no flags and no config files: every knob the
// governance pipeline needs is an env var with a hard-coded canonical
// default, per the file-layout and environment variable contracts.
package config

import "os"

// Config holds George's runtime configuration.
type Config struct {
	// Mode overrides the default contract mode (GEORGE_MODE). Empty means
	// the component-specific default applies.
	Mode string
	// LatestPath overrides the canonical latest-decision path
	// (GEORGE_LATEST_PATH). Empty means "ops/decisions/latest.json".
	LatestPath string
	// GuardianAdvicePath overrides the Guardian advice input path
	// (GUARDIAN_ADVICE_PATH). Empty means no advice file is consulted.
	GuardianAdvicePath string
	// DataDir is the root directory under which ops/ artifacts live.
	DataDir string
	// ArtifactStorageType selects the archival Store backend: "fs"
	// (default), "s3", or "gcs".
	ArtifactStorageType string
	// TailWindow is the default number of trailing JSONL lines considered
	// "recent" by the Consistency Validator's trace-tail check.
	TailWindow int
}

const defaultTailWindow = 200

// Load reads Config from the environment, applying George's canonical
// defaults for anything unset.
func Load() *Config {
	cfg := &Config{
		Mode:                os.Getenv("GEORGE_MODE"),
		LatestPath:          os.Getenv("GEORGE_LATEST_PATH"),
		GuardianAdvicePath:  os.Getenv("GUARDIAN_ADVICE_PATH"),
		DataDir:             os.Getenv("DATA_DIR"),
		ArtifactStorageType: os.Getenv("ARTIFACT_STORAGE_TYPE"),
		TailWindow:          defaultTailWindow,
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.LatestPath == "" {
		cfg.LatestPath = "ops/decisions/latest.json"
	}
	if cfg.ArtifactStorageType == "" {
		cfg.ArtifactStorageType = "fs"
	}
	return cfg
}
