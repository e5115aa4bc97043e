package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory builds the GORM repositories once per database handle.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

var (
	globalFactory *Factory
	factoryOnce   sync.Once
)

// InitializeFactory sets the process-wide factory. Later calls are ignored.
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalRepositories panics when InitializeFactory has not run, since
// every caller is wired during startup.
func GetGlobalRepositories() *Repositories {
	if globalFactory == nil {
		panic("repository: InitializeFactory must run before GetGlobalRepositories")
	}
	return globalFactory.GetRepositories()
}
