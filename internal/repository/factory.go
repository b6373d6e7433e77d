// Package repository provides the data access layer for the Aurelius
// catalogue service. This file holds the repository bundle the backends
// assemble and the health interface the server checks.
package repository

import (
	"context"
)

// Repositories holds all repository instances for one database backend.
type Repositories struct {
	User     UserRepository
	Code     ConfirmationCodeRepository
	Category CategoryRepository
	Genre    GenreRepository
	Title    TitleRepository
	Review   ReviewRepository
	Comment  CommentRepository
}

// DatabaseHealth is an interface for database health checks and shutdown.
// Both the SQLite and PostgreSQL connection wrappers satisfy it.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}
