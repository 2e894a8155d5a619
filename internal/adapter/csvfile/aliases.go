package csvfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// aliasFile is the YAML layout of the country alias table:
//
//	aliases:
//	  "Congo (Democratic Republic Of The)": "DR Congo"
//	  Burma: Myanmar
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases reads an alias table mapping observed country spellings to the
// names used by the continent and metadata tables.
func LoadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("aliases: read %q: %w", path, err)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("aliases: parse yaml %q: %w", path, err)
	}

	out := make(map[string]string, len(f.Aliases))
	for from, to := range f.Aliases {
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if from == "" || to == "" {
			return nil, fmt.Errorf("aliases: %q: empty name in mapping %q -> %q", path, from, to)
		}
		out[from] = to
	}
	return out, nil
}
