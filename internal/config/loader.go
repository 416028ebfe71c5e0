package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/quafel/quafel/internal/ctxlog"
	"github.com/quafel/quafel/internal/fsutil"
)

// Load discovers all .hcl files under path (a single file or a directory),
// parses every `experiment` block and merges them into one validated Set.
func Load(ctx context.Context, path string) (*Set, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading experiment configuration.", "path", path)

	filePaths, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to walk config path %s: %w", path, err)
	}
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no .hcl files found under %s", path)
	}
	logger.Debug("Found HCL files to load.", "files", filePaths)

	parser := hclparse.NewParser()
	evalCtx := evalContext()
	set := &Set{Experiments: make(map[string]*Experiment)}

	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
		}

		var file fileHCL
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &file); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", filePath, diags)
		}

		for _, raw := range file.Experiments {
			exp, err := buildExperiment(raw)
			if err != nil {
				return nil, fmt.Errorf("experiment %q in %s: %w", raw.Name, filePath, err)
			}
			if _, exists := set.Experiments[exp.Name]; exists {
				return nil, fmt.Errorf("experiment %q in %s: duplicate experiment name", exp.Name, filePath)
			}
			set.Experiments[exp.Name] = exp
		}
	}

	logger.Debug("Experiment configuration loaded.", "experiments", set.Names())
	return set, nil
}

// evalContext exposes the process environment to experiment files as
// `env.<NAME>`, so values like remote endpoints never have to be
// hardcoded in config.
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			vars[key] = cty.StringVal(value)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": cty.ObjectVal(vars)},
	}
}

// buildExperiment validates one raw experiment block and expands its ranges.
func buildExperiment(raw *experimentHCL) (*Experiment, error) {
	exp := &Experiment{
		Name:              raw.Name,
		Evaluations:       1,
		Frameworks:        raw.Frameworks,
		FrameworkSettings: make(map[string]*Framework),
	}

	if raw.Seed != nil {
		exp.Seed = *raw.Seed
	}
	if raw.Evaluations != nil {
		if *raw.Evaluations < 1 {
			return nil, fmt.Errorf("evaluations must be at least 1, got %d", *raw.Evaluations)
		}
		exp.Evaluations = int(*raw.Evaluations)
	}

	if len(raw.Frameworks) == 0 {
		return nil, fmt.Errorf("frameworks list must not be empty")
	}
	seen := make(map[string]struct{}, len(raw.Frameworks))
	for _, name := range raw.Frameworks {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("framework %q listed twice", name)
		}
		seen[name] = struct{}{}
	}

	for _, fw := range raw.Settings {
		if _, listed := seen[fw.Name]; !listed {
			return nil, fmt.Errorf("framework block %q has no matching entry in the frameworks list", fw.Name)
		}
		if _, dup := exp.FrameworkSettings[fw.Name]; dup {
			return nil, fmt.Errorf("framework block %q defined twice", fw.Name)
		}
		exp.FrameworkSettings[fw.Name] = &Framework{
			Name:     fw.Name,
			Endpoint: fw.Endpoint,
			Options:  fw.Options,
		}
	}

	var err error
	if exp.Qubits, err = expandRange("qubits", raw.Qubits); err != nil {
		return nil, err
	}
	if exp.Depths, err = expandRange("depths", raw.Depths); err != nil {
		return nil, err
	}
	if exp.Shots, err = expandRange("shots", raw.Shots); err != nil {
		return nil, err
	}

	return exp, nil
}

// expandRange turns a range block into an explicit, validated axis.
func expandRange(name string, r *rangeHCL) ([]int, error) {
	if r == nil {
		return nil, fmt.Errorf("missing required %s block", name)
	}

	if len(r.Values) > 0 {
		if r.Min != nil || r.Max != nil || r.Increment != nil {
			return nil, fmt.Errorf("%s: values cannot be combined with min/max/increment", name)
		}
		values := make([]int, 0, len(r.Values))
		for _, v := range r.Values {
			if v < 1 {
				return nil, fmt.Errorf("%s: values must be positive, got %d", name, v)
			}
			values = append(values, int(v))
		}
		return values, nil
	}

	if r.Min == nil || r.Max == nil {
		return nil, fmt.Errorf("%s: either values or both min and max are required", name)
	}

	min, max := *r.Min, *r.Max
	increment := int64(1)
	if r.Increment != nil {
		increment = *r.Increment
	}

	if min < 1 {
		return nil, fmt.Errorf("%s: min must be positive, got %d", name, min)
	}
	if min > max {
		return nil, fmt.Errorf("%s: min %d exceeds max %d", name, min, max)
	}
	if increment < 1 {
		return nil, fmt.Errorf("%s: increment must be positive, got %d", name, increment)
	}

	var values []int
	for v := min; v <= max; v += increment {
		values = append(values, int(v))
	}
	return values, nil
}
