package viz

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// versionLayout is the timestamp format used for reporting dataset
// versions. All figures of one run share a single version string.
const versionLayout = "2006-01-02T15.04.05.000Z"

// NewVersion formats t as a reporting dataset version.
func NewVersion(t time.Time) string {
	return t.UTC().Format(versionLayout)
}

// WriteVersioned stores fig under dir as
// <name>.json/<version>/<name>.json. While the write is in flight a
// <name>.tmp marker sits next to the dataset directory so interrupted
// runs leave a visible trace the pre stage can sweep up.
func WriteVersioned(dir, name, version string, fig *Figure) error {
	datasetDir := filepath.Join(dir, name+".json", version)
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		return fmt.Errorf("creating figure directory: %w", err)
	}

	marker := filepath.Join(dir, name+".tmp")
	if err := os.WriteFile(marker, []byte(version+"\n"), 0o644); err != nil {
		return fmt.Errorf("creating in-progress marker: %w", err)
	}

	payload, err := json.MarshalIndent(fig, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding figure %q: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(datasetDir, name+".json"), payload, 0o644); err != nil {
		return fmt.Errorf("writing figure %q: %w", name, err)
	}

	if err := os.Remove(marker); err != nil {
		return fmt.Errorf("clearing in-progress marker: %w", err)
	}
	return nil
}

// LatestVersion returns the newest version of the named figure. Version
// strings sort lexicographically in timestamp order.
func LatestVersion(dir, name string) (string, error) {
	versions, err := listVersions(dir, name)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("figure %q has no versions", name)
	}
	return versions[len(versions)-1], nil
}

// ReadFigure loads one version of a figure from dir.
func ReadFigure(dir, name, version string) (*Figure, error) {
	path := filepath.Join(dir, name+".json", version, name+".json")
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading figure %q: %w", name, err)
	}
	var fig Figure
	if err := json.Unmarshal(payload, &fig); err != nil {
		return nil, fmt.Errorf("decoding figure %q: %w", name, err)
	}
	return &fig, nil
}

// FigureInfo names a stored figure and its newest version.
type FigureInfo struct {
	Name          string `json:"name"`
	LatestVersion string `json:"latest_version"`
}

// ListFigures enumerates all figures under dir with their latest
// versions, sorted by name. Figures that only have an in-progress
// marker and no completed version are skipped.
func ListFigures(dir string) ([]FigureInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading reporting directory: %w", err)
	}

	var figures []FigureInfo
	for _, entry := range entries {
		if !entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := entry.Name()[:len(entry.Name())-len(".json")]
		versions, err := listVersions(dir, name)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			continue
		}
		figures = append(figures, FigureInfo{Name: name, LatestVersion: versions[len(versions)-1]})
	}

	sort.Slice(figures, func(i, j int) bool { return figures[i].Name < figures[j].Name })
	return figures, nil
}

func listVersions(dir, name string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing versions of %q: %w", name, err)
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}
