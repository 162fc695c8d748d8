package gb

import (
	"database/sql"
	"time"
)

// Operation is one recorded invocation of a mutating command.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// Materialization records one `copy` of a group.
type Materialization struct {
	ID          string
	Root        string
	GroupNumber int
	Destination string
	BackupName  string
	FileCount   int
	TotalSize   int64
	Failures    int
	CreatedAt   time.Time
}

// Database stores the operation history. It is never consulted for
// grouping decisions; the partition file is authoritative for those.
type Database interface {
	// CreateOperation records the start of a command and assigns its ID.
	CreateOperation(operation, parameters string) (*Operation, error)

	// FinishOperation sets the final status and finish time of an operation.
	FinishOperation(id int64, status string) error

	// ListOperations returns up to limit operations, newest first.
	ListOperations(limit int) ([]*Operation, error)

	// CreateMaterialization records a completed copy.
	CreateMaterialization(m *Materialization) error

	// FindMaterializationsByGroup returns the copies of one group under root,
	// newest first.
	FindMaterializationsByGroup(root string, groupNumber int) ([]*Materialization, error)

	// Close closes the database connection.
	Close() error
}
