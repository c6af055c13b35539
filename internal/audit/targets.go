// internal/audit/targets.go
package audit

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// targetsFile is the on-disk shape of a targets list.
type targetsFile struct {
	Targets []string `yaml:"targets"`
}

// LoadTargets reads a YAML targets file and merges it with the
// command-line targets, preserving order and dropping duplicates. The
// path may be empty.
func LoadTargets(path string, args []string) ([]string, error) {
	var merged []string
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read targets file: %w", err)
		}
		var tf targetsFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			// Accept a bare list as well as the keyed form.
			var bare []string
			if yerr := yaml.Unmarshal(data, &bare); yerr != nil {
				return nil, fmt.Errorf("failed to parse targets file %s: %w", path, err)
			}
			tf.Targets = bare
		}
		merged = append(merged, tf.Targets...)
	}
	merged = append(merged, args...)

	seen := make(map[string]struct{}, len(merged))
	var out []string
	for _, raw := range merged {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		if err := validateTarget(t); err != nil {
			return nil, err
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no targets given")
	}
	return out, nil
}

func validateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid target %q: scheme must be http or https", target)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid target %q: missing host", target)
	}
	return nil
}
