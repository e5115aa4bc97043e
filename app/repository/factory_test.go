package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFactoryBuildsRepositoriesOnce(t *testing.T) {
	t.Parallel()

	f := NewFactory(&gorm.DB{})
	first := f.GetRepositories()
	require.NotNil(t, first)
	assert.Same(t, first, f.GetRepositories())

	assert.NotNil(t, first.Profile)
	assert.NotNil(t, first.Issue)
	assert.NotNil(t, first.Chat)
	assert.NotNil(t, first.Message)
	assert.NotNil(t, first.ProviderAccount)
}

func TestGlobalRepositoriesKeepFirstFactory(t *testing.T) {
	InitializeFactory(&gorm.DB{})
	first := GetGlobalRepositories()

	InitializeFactory(&gorm.DB{})
	assert.Same(t, first, GetGlobalRepositories())
}
