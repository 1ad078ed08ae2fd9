package registry

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/payroll"
)

// mappingsFile is the on-disk shape. Hour types are read as plain strings so
// that a typo is reported instead of silently ignored.
type mappingsFile struct {
	Regions  map[string]*string `yaml:"regions"`
	Earnings map[string]string  `yaml:"earnings"`
}

// LoadMappings reads a YAML file of the form
//
//	regions:
//	  North: 6f1c...      # tracking option id
//	  Travel: null        # known region, sent untracked
//	earnings:
//	  REGULAR: 3a9b...
func LoadMappings(path string) (payload.Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return payload.Mappings{}, fmt.Errorf("read mappings: %w", err)
	}
	m, err := ParseMappings(data)
	if err != nil {
		return payload.Mappings{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func ParseMappings(data []byte) (payload.Mappings, error) {
	var raw mappingsFile
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return payload.Mappings{}, payroll.NewStructuralError("mappings", "parse yaml", err)
		}
	}

	m := payload.Mappings{
		Tracking: make(map[string]*string, len(raw.Regions)),
		Earnings: make(map[payroll.HourType]string, len(raw.Earnings)),
	}
	for region, id := range raw.Regions {
		region = strings.TrimSpace(region)
		if region == "" {
			continue
		}
		if id != nil {
			v := strings.TrimSpace(*id)
			id = &v
		}
		m.Tracking[region] = id
	}

	var bad []string
	for key, id := range raw.Earnings {
		ht, err := payroll.ParseHourType(key)
		if err != nil {
			bad = append(bad, key)
			continue
		}
		m.Earnings[ht] = strings.TrimSpace(id)
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return payload.Mappings{}, payroll.NewStructuralError("mappings", "unknown hour types: "+strings.Join(bad, ", "), nil)
	}
	return m, nil
}

// MarshalMappings renders m in the format ParseMappings reads.
func MarshalMappings(m payload.Mappings) ([]byte, error) {
	raw := mappingsFile{
		Regions:  m.Tracking,
		Earnings: make(map[string]string, len(m.Earnings)),
	}
	if raw.Regions == nil {
		raw.Regions = map[string]*string{}
	}
	for ht, id := range m.Earnings {
		raw.Earnings[string(ht)] = id
	}
	return yaml.Marshal(raw)
}
