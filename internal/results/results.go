// Package results defines the benchmark record types and the staged CSV
// datasets they are persisted to: per-partition files during the run and
// sorted combined files for reporting.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// DurationRow is one timed evaluation of one matrix partition.
type DurationRow struct {
	Framework  string
	Qubits     int
	Depth      int
	Shots      int
	Evaluation int
	Duration   time.Duration
}

// ResultRow is one measured bitstring count of one matrix partition.
type ResultRow struct {
	Framework string
	Qubits    int
	Depth     int
	Shots     int
	Bitstring string
	Count     int
}

var (
	durationHeader = []string{"framework", "qubits", "depth", "shots", "evaluation", "duration_ns"}
	resultHeader   = []string{"framework", "qubits", "depth", "shots", "bitstring", "count"}
)

// WriteDurations writes duration rows as one CSV file.
func WriteDurations(path string, rows []DurationRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, durationHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.Framework,
			strconv.Itoa(r.Qubits),
			strconv.Itoa(r.Depth),
			strconv.Itoa(r.Shots),
			strconv.Itoa(r.Evaluation),
			strconv.FormatInt(r.Duration.Nanoseconds(), 10),
		})
	}
	return writeCSV(path, records)
}

// ReadDurations reads one duration CSV file.
func ReadDurations(path string) ([]DurationRow, error) {
	records, err := readCSV(path, durationHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]DurationRow, 0, len(records))
	for _, rec := range records {
		ints, err := parseInts(path, rec, 1, 2, 3, 4, 5)
		if err != nil {
			return nil, err
		}
		rows = append(rows, DurationRow{
			Framework:  rec[0],
			Qubits:     int(ints[0]),
			Depth:      int(ints[1]),
			Shots:      int(ints[2]),
			Evaluation: int(ints[3]),
			Duration:   time.Duration(ints[4]),
		})
	}
	return rows, nil
}

// WriteResults writes measurement rows as one CSV file.
func WriteResults(path string, rows []ResultRow) error {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, resultHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.Framework,
			strconv.Itoa(r.Qubits),
			strconv.Itoa(r.Depth),
			strconv.Itoa(r.Shots),
			r.Bitstring,
			strconv.Itoa(r.Count),
		})
	}
	return writeCSV(path, records)
}

// ReadResults reads one measurement CSV file.
func ReadResults(path string) ([]ResultRow, error) {
	records, err := readCSV(path, resultHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]ResultRow, 0, len(records))
	for _, rec := range records {
		ints, err := parseInts(path, rec, 1, 2, 3, 5)
		if err != nil {
			return nil, err
		}
		rows = append(rows, ResultRow{
			Framework: rec[0],
			Qubits:    int(ints[0]),
			Depth:     int(ints[1]),
			Shots:     int(ints[2]),
			Bitstring: rec[4],
			Count:     int(ints[3]),
		})
	}
	return rows, nil
}

// CombineDurations concatenates every per-partition duration file under
// partDir into one sorted dataset at outPath. An empty partition set still
// produces a header-only file.
func CombineDurations(partDir, outPath string) error {
	paths, err := filepath.Glob(filepath.Join(partDir, "partition_*.csv"))
	if err != nil {
		return fmt.Errorf("bad partition glob: %w", err)
	}

	var all []DurationRow
	for _, path := range paths {
		rows, err := ReadDurations(path)
		if err != nil {
			return err
		}
		all = append(all, rows...)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Framework != b.Framework {
			return a.Framework < b.Framework
		}
		if a.Qubits != b.Qubits {
			return a.Qubits < b.Qubits
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Shots != b.Shots {
			return a.Shots < b.Shots
		}
		return a.Evaluation < b.Evaluation
	})

	return WriteDurations(outPath, all)
}

// CombineResults concatenates every per-partition measurement file under
// partDir into one sorted dataset at outPath.
func CombineResults(partDir, outPath string) error {
	paths, err := filepath.Glob(filepath.Join(partDir, "partition_*.csv"))
	if err != nil {
		return fmt.Errorf("bad partition glob: %w", err)
	}

	var all []ResultRow
	for _, path := range paths {
		rows, err := ReadResults(path)
		if err != nil {
			return err
		}
		all = append(all, rows...)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Framework != b.Framework {
			return a.Framework < b.Framework
		}
		if a.Qubits != b.Qubits {
			return a.Qubits < b.Qubits
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Shots != b.Shots {
			return a.Shots < b.Shots
		}
		return a.Bitstring < b.Bitstring
	})

	return WriteResults(outPath, all)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 || len(records[0]) != len(header) {
		return nil, fmt.Errorf("malformed dataset %s: missing header", path)
	}
	return records[1:], nil
}

func parseInts(path string, record []string, indices ...int) ([]int64, error) {
	values := make([]int64, 0, len(indices))
	for _, idx := range indices {
		v, err := strconv.ParseInt(record[idx], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed dataset %s: column %d: %w", path, idx, err)
		}
		values = append(values, v)
	}
	return values, nil
}
