package repository

import (
	"github.com/glyph-id/glyph/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	User   UserRepository
	Factor FactorRepository
	Signal SignalRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		User:   NewUserRepository(db),
		Factor: NewFactorRepository(db),
		Signal: NewSignalRepository(db),
	}
}
