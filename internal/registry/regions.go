package registry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
)

type regionRow struct {
	Name string `csv:"region"`
}

// LoadRegions reads the valid region names. A .csv file needs a "region"
// column; anything else is read as one name per line, with # comments.
func LoadRegions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regions: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		var rows []regionRow
		if err := gocsv.Unmarshal(f, &rows); err != nil {
			return nil, fmt.Errorf("%s: parse regions csv: %w", path, err)
		}
		names := make([]string, len(rows))
		for i, row := range rows {
			names[i] = row.Name
		}
		return uniqueRegions(names), nil
	}
	return ReadRegions(f)
}

// ReadRegions reads one region name per line.
func ReadRegions(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	return uniqueRegions(names), nil
}

func uniqueRegions(names []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RegionSet turns names into the lookup consolidation expects. A nil slice
// gives a nil set, which turns region validation off.
func RegionSet(names []string) map[string]struct{} {
	if names == nil {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
