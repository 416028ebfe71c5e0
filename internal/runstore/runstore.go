// Package runstore keeps an in-memory record of every task of the
// current run. The report server reads it to answer task queries while
// the run is still executing.
package runstore

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"
)

const tableTasks = "tasks"

// Task is one unit of pipeline work and its execution record.
type Task struct {
	ID        string
	Kind      string
	Framework string
	Partition int
	State     string
	Duration  time.Duration
	Error     string
}

// Store holds the task records of a single run.
type Store struct {
	db *memdb.MemDB
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTasks: {
				Name: tableTasks,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"framework": {
						Name:         "framework",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Framework"},
					},
					"state": {
						Name:    "state",
						Indexer: &memdb.StringFieldIndex{Field: "State"},
					},
				},
			},
		},
	}
}

// New creates an empty store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("creating task store: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert registers a task. The task ID must be unique within the run.
func (s *Store) Insert(task Task) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if existing, err := txn.First(tableTasks, "id", task.ID); err != nil {
		return fmt.Errorf("looking up task %q: %w", task.ID, err)
	} else if existing != nil {
		return fmt.Errorf("task %q already registered", task.ID)
	}

	if err := txn.Insert(tableTasks, &task); err != nil {
		return fmt.Errorf("registering task %q: %w", task.ID, err)
	}
	txn.Commit()
	return nil
}

// SetState records a state transition for the task, along with its
// elapsed duration and error message if any.
func (s *Store) SetState(id, state string, duration time.Duration, taskErr error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableTasks, "id", id)
	if err != nil {
		return fmt.Errorf("looking up task %q: %w", id, err)
	}
	if raw == nil {
		return fmt.Errorf("task %q not registered", id)
	}

	updated := *raw.(*Task)
	updated.State = state
	updated.Duration = duration
	if taskErr != nil {
		updated.Error = taskErr.Error()
	}

	if err := txn.Insert(tableTasks, &updated); err != nil {
		return fmt.Errorf("updating task %q: %w", id, err)
	}
	txn.Commit()
	return nil
}

// Get returns one task by ID.
func (s *Store) Get(id string) (Task, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableTasks, "id", id)
	if err != nil {
		return Task{}, fmt.Errorf("looking up task %q: %w", id, err)
	}
	if raw == nil {
		return Task{}, fmt.Errorf("task %q not registered", id)
	}
	return *raw.(*Task), nil
}

// List returns all tasks sorted by ID.
func (s *Store) List() ([]Task, error) {
	return s.list("id", nil)
}

// ListByState returns all tasks in the given state, sorted by ID.
func (s *Store) ListByState(state string) ([]Task, error) {
	return s.list("state", []interface{}{state})
}

func (s *Store) list(index string, args []interface{}) ([]Task, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableTasks, index, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks by %s: %w", index, err)
	}

	var tasks []Task
	for raw := it.Next(); raw != nil; raw = it.Next() {
		tasks = append(tasks, *raw.(*Task))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}
