package orchestrator

import "encoding/json"

// remarshal round-trips src through JSON into dst — used to move between
// the GovernanceStore.Snapshot callback's map[string]any and George's
// typed Snapshot struct without hand-writing a field-by-field copy.
func remarshal(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
