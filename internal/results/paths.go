package results

import (
	"fmt"
	"path/filepath"

	"github.com/quafel/quafel/internal/fsutil"
)

// Paths resolves the staged dataset directories under one data root. The
// numbered layers separate reproducible intermediates from combined and
// versioned reporting outputs.
type Paths struct {
	Root string
}

func (p Paths) Raw() string          { return filepath.Join(p.Root, "01_raw") }
func (p Paths) Intermediate() string { return filepath.Join(p.Root, "02_intermediate") }
func (p Paths) Circuits() string     { return filepath.Join(p.Root, "03_qasm_circuits") }
func (p Paths) Results() string      { return filepath.Join(p.Root, "04_execution_result") }
func (p Paths) Durations() string    { return filepath.Join(p.Root, "05_execution_durations") }
func (p Paths) Combined() string     { return filepath.Join(p.Root, "06_combined") }
func (p Paths) Reporting() string    { return filepath.Join(p.Root, "07_reporting") }

// CombinedDurations is the fan-in duration dataset consumed by reporting.
func (p Paths) CombinedDurations() string {
	return filepath.Join(p.Combined(), "execution_durations.csv")
}

// CombinedResults is the fan-in measurement dataset.
func (p Paths) CombinedResults() string {
	return filepath.Join(p.Combined(), "execution_results.csv")
}

// EnsureAll creates every staged directory.
func (p Paths) EnsureAll() error {
	for _, dir := range []string{
		p.Raw(), p.Intermediate(), p.Circuits(), p.Results(),
		p.Durations(), p.Combined(), p.Reporting(),
	} {
		if err := fsutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}
	return nil
}

// CleanUnversioned removes the outputs of previous runs that are not
// versioned: partition intermediates, per-partition results and durations,
// and stale reporting markers. Versioned reporting datasets are kept.
func (p Paths) CleanUnversioned() error {
	for dir, pattern := range map[string]string{
		p.Intermediate(): "*.csv",
		p.Results():      "*.csv",
		p.Durations():    "*.csv",
		p.Reporting():    "*.tmp",
	} {
		if _, err := fsutil.RemoveMatching(dir, pattern); err != nil {
			return fmt.Errorf("cleanup of %s failed: %w", dir, err)
		}
	}
	return nil
}
