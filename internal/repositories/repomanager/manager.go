package repomanager

import (
	"context"
	"database/sql"

	"github.com/neuronai/neuronbot/internal/dbx"
	"github.com/neuronai/neuronbot/internal/repositories/interviews"
	"github.com/neuronai/neuronbot/internal/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Interviews(db dbx.DBTX) interviews.Repository
}
