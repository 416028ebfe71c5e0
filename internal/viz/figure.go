// Package viz turns combined duration datasets into plotly-compatible
// heatmap figures, written as versioned reporting datasets the companion
// dashboard consumes.
package viz

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/quafel/quafel/internal/results"
)

// Axis titles a figure axis.
type Axis struct {
	Title string `json:"title"`
}

// Layout carries the figure title and axis labels.
type Layout struct {
	Title string `json:"title"`
	XAxis Axis   `json:"xaxis"`
	YAxis Axis   `json:"yaxis"`
}

// Heatmap is a single plotly heatmap trace. Z is indexed [y][x]; cells
// without data are null so the dashboard renders gaps instead of zeros.
type Heatmap struct {
	Type string       `json:"type"`
	X    []string     `json:"x"`
	Y    []string     `json:"y"`
	Z    [][]*float64 `json:"z"`
}

// Figure is a plotly figure document: one heatmap trace plus layout.
type Figure struct {
	Data   []Heatmap `json:"data"`
	Layout Layout    `json:"layout"`
}

// cellKey addresses one heatmap cell.
type cellKey struct {
	x string
	y string
}

// FrameworkQubits plots one framework at a fixed qubit count: shots
// against circuit depth.
func FrameworkQubits(rows []results.DurationRow, framework string, qubits int) *Figure {
	return build(rows,
		func(r results.DurationRow) bool { return r.Framework == framework && r.Qubits == qubits },
		func(r results.DurationRow) int { return r.Shots },
		func(r results.DurationRow) int { return r.Depth },
		fmt.Sprintf("%s, %d qubits", framework, qubits), "shots", "depth",
	)
}

// FrameworkDepth plots one framework at a fixed depth: shots against
// qubit count.
func FrameworkDepth(rows []results.DurationRow, framework string, depth int) *Figure {
	return build(rows,
		func(r results.DurationRow) bool { return r.Framework == framework && r.Depth == depth },
		func(r results.DurationRow) int { return r.Shots },
		func(r results.DurationRow) int { return r.Qubits },
		fmt.Sprintf("%s, depth %d", framework, depth), "shots", "qubits",
	)
}

// ShotsDepth compares frameworks at a fixed shots/depth cell over qubit
// counts.
func ShotsDepth(rows []results.DurationRow, shots, depth int) *Figure {
	return buildFrameworkX(rows,
		func(r results.DurationRow) bool { return r.Shots == shots && r.Depth == depth },
		func(r results.DurationRow) int { return r.Qubits },
		fmt.Sprintf("%d shots, depth %d", shots, depth), "qubits",
	)
}

// QubitsDepth compares frameworks at a fixed qubits/depth cell over shot
// counts.
func QubitsDepth(rows []results.DurationRow, qubits, depth int) *Figure {
	return buildFrameworkX(rows,
		func(r results.DurationRow) bool { return r.Qubits == qubits && r.Depth == depth },
		func(r results.DurationRow) int { return r.Shots },
		fmt.Sprintf("%d qubits, depth %d", qubits, depth), "shots",
	)
}

// ShotsQubits compares frameworks at a fixed shots/qubits cell over
// circuit depths.
func ShotsQubits(rows []results.DurationRow, shots, qubits int) *Figure {
	return buildFrameworkX(rows,
		func(r results.DurationRow) bool { return r.Shots == shots && r.Qubits == qubits },
		func(r results.DurationRow) int { return r.Depth },
		fmt.Sprintf("%d shots, %d qubits", shots, qubits), "depth",
	)
}

// build assembles a heatmap with numeric x and y axes derived from the
// matching rows, averaging durations over evaluations.
func build(rows []results.DurationRow, match func(results.DurationRow) bool,
	xOf, yOf func(results.DurationRow) int, title, xTitle, yTitle string) *Figure {

	sums := make(map[cellKey]float64)
	counts := make(map[cellKey]int)
	xSet := make(map[int]struct{})
	ySet := make(map[int]struct{})

	for _, r := range rows {
		if !match(r) {
			continue
		}
		x, y := xOf(r), yOf(r)
		xSet[x] = struct{}{}
		ySet[y] = struct{}{}
		key := cellKey{x: strconv.Itoa(x), y: strconv.Itoa(y)}
		sums[key] += float64(r.Duration.Nanoseconds()) / 1e6
		counts[key]++
	}

	return assemble(sortedInts(xSet), sortedInts(ySet), sums, counts, title, xTitle, yTitle)
}

// buildFrameworkX assembles a cross-framework heatmap: x is the framework
// name, y a numeric axis.
func buildFrameworkX(rows []results.DurationRow, match func(results.DurationRow) bool,
	yOf func(results.DurationRow) int, title, yTitle string) *Figure {

	sums := make(map[cellKey]float64)
	counts := make(map[cellKey]int)
	xSet := make(map[string]struct{})
	ySet := make(map[int]struct{})

	for _, r := range rows {
		if !match(r) {
			continue
		}
		y := yOf(r)
		xSet[r.Framework] = struct{}{}
		ySet[y] = struct{}{}
		key := cellKey{x: r.Framework, y: strconv.Itoa(y)}
		sums[key] += float64(r.Duration.Nanoseconds()) / 1e6
		counts[key]++
	}

	xs := make([]string, 0, len(xSet))
	for x := range xSet {
		xs = append(xs, x)
	}
	sort.Strings(xs)

	return assemble(xs, sortedInts(ySet), sums, counts, title, "framework", yTitle)
}

func assemble(xs, ys []string, sums map[cellKey]float64, counts map[cellKey]int,
	title, xTitle, yTitle string) *Figure {

	z := make([][]*float64, len(ys))
	for yi, y := range ys {
		z[yi] = make([]*float64, len(xs))
		for xi, x := range xs {
			key := cellKey{x: x, y: y}
			if n := counts[key]; n > 0 {
				mean := sums[key] / float64(n)
				z[yi][xi] = &mean
			}
		}
	}

	return &Figure{
		Data: []Heatmap{{Type: "heatmap", X: xs, Y: ys, Z: z}},
		Layout: Layout{
			Title: title + " - mean duration (ms)",
			XAxis: Axis{Title: xTitle},
			YAxis: Axis{Title: yTitle},
		},
	}
}

func sortedInts(set map[int]struct{}) []string {
	values := make([]int, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Ints(values)

	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.Itoa(v)
	}
	return out
}
