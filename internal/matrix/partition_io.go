package matrix

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/quafel/quafel/internal/fsutil"
)

var header = []string{"id", "framework", "qubits", "depth", "shots", "evaluations", "seed"}

// FileName returns the partition's CSV file name, shared by every staged
// dataset derived from it.
func FileName(id int) string {
	return fmt.Sprintf("partition_%d.csv", id)
}

// WritePartitions persists each partition as its own CSV file under dir,
// mirroring the intermediate dataset layout consumed by later stages.
func WritePartitions(dir string, partitions []Partition) error {
	if err := fsutil.EnsureDir(dir); err != nil {
		return fmt.Errorf("failed to create partition directory: %w", err)
	}

	for _, p := range partitions {
		path := filepath.Join(dir, FileName(p.ID))
		if err := writePartition(path, p); err != nil {
			return err
		}
	}
	return nil
}

func writePartition(path string, p Partition) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create partition file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	record := []string{
		strconv.Itoa(p.ID),
		p.Framework,
		strconv.Itoa(p.Qubits),
		strconv.Itoa(p.Depth),
		strconv.Itoa(p.Shots),
		strconv.Itoa(p.Evaluations),
		strconv.FormatInt(p.Seed, 10),
	}
	if err := w.WriteAll([][]string{header, record}); err != nil {
		return fmt.Errorf("failed to write partition file %s: %w", path, err)
	}
	return nil
}

// ReadPartitions loads every partition CSV under dir, sorted by ID. An
// empty or missing directory yields an empty slice, letting callers decide
// whether upstream stages must run first.
func ReadPartitions(dir string) ([]Partition, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "partition_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("bad partition glob: %w", err)
	}

	partitions := make([]Partition, 0, len(paths))
	for _, path := range paths {
		p, err := readPartition(path)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, p)
	}

	sort.Slice(partitions, func(i, j int) bool { return partitions[i].ID < partitions[j].ID })
	return partitions, nil
}

func readPartition(path string) (Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return Partition{}, fmt.Errorf("failed to open partition file %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Partition{}, fmt.Errorf("failed to read partition file %s: %w", path, err)
	}
	if len(records) != 2 || len(records[1]) != len(header) {
		return Partition{}, fmt.Errorf("malformed partition file %s: expected header plus one row", path)
	}

	row := records[1]
	fields := make([]int64, 0, 6)
	for _, idx := range []int{0, 2, 3, 4, 5, 6} {
		v, err := strconv.ParseInt(row[idx], 10, 64)
		if err != nil {
			return Partition{}, fmt.Errorf("malformed partition file %s: column %q: %w", path, header[idx], err)
		}
		fields = append(fields, v)
	}

	return Partition{
		ID:          int(fields[0]),
		Framework:   row[1],
		Qubits:      int(fields[1]),
		Depth:       int(fields[2]),
		Shots:       int(fields[3]),
		Evaluations: int(fields[4]),
		Seed:        fields[5],
	}, nil
}
