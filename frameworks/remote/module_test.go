package remote_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quafel/quafel/frameworks/remote"
	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/registry"
	"github.com/quafel/quafel/internal/testutil"
	"github.com/stretchr/testify/require"
)

func resolveRemote(t *testing.T, endpoint string) registry.Framework {
	t.Helper()

	r := registry.New()
	(&remote.Module{}).Register(r)

	ctx, _ := testutil.Context(t)
	exp := &config.Experiment{
		Name:       "t",
		Frameworks: []string{"remote"},
		FrameworkSettings: map[string]*config.Framework{
			"remote": {Name: "remote", Endpoint: endpoint},
		},
	}
	adapters, err := r.Resolve(ctx, exp)
	require.NoError(t, err)
	return adapters["remote"]
}

func TestRemote_PostsCircuitAndDecodesCounts(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"counts": map[string]int{"00": 60, "11": 40},
		})
	}))
	defer server.Close()

	fw := resolveRemote(t, server.URL)
	ctx, _ := testutil.Context(t)

	counts, err := fw.Run(ctx, "OPENQASM 2.0;\n", 100, 5)
	require.NoError(t, err)

	require.Equal(t, "/simulate", gotPath)
	require.Equal(t, "OPENQASM 2.0;\n", gotBody["qasm"])
	require.Equal(t, float64(100), gotBody["shots"])
	require.Equal(t, map[string]int{"00": 60, "11": 40}, counts)
}

func TestRemote_SurfacesServerErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "register too large", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	fw := resolveRemote(t, server.URL)
	ctx, _ := testutil.Context(t)

	_, err := fw.Run(ctx, "OPENQASM 2.0;\n", 100, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
	require.Contains(t, err.Error(), "register too large")
}

func TestRemote_RequiresEndpoint(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&remote.Module{}).Register(r)

	ctx, _ := testutil.Context(t)
	exp := &config.Experiment{
		Name:              "t",
		Frameworks:        []string{"remote"},
		FrameworkSettings: map[string]*config.Framework{},
	}
	_, err := r.Resolve(ctx, exp)
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires an endpoint")
}

func TestRemote_RejectsBadTimeout(t *testing.T) {
	t.Parallel()

	r := registry.New()
	(&remote.Module{}).Register(r)

	ctx, _ := testutil.Context(t)
	exp := &config.Experiment{
		Name:       "t",
		Frameworks: []string{"remote"},
		FrameworkSettings: map[string]*config.Framework{
			"remote": {
				Name:     "remote",
				Endpoint: "http://localhost:1",
				Options:  map[string]string{"timeout": "soon"},
			},
		},
	}
	_, err := r.Resolve(ctx, exp)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad timeout")
}
