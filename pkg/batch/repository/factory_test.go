package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/go_batch_tutorial/pkg/batch/config"
	"github.com/tigerroll/go_batch_tutorial/pkg/batch/repository/memory"
)

func TestNewJobRepository(t *testing.T) {
	ctx := context.Background()

	for _, dbType := range []string{"", "memory"} {
		repo, err := NewJobRepository(ctx, config.DatabaseConfig{Type: dbType})
		require.NoError(t, err)
		assert.IsType(t, &memory.InMemoryJobRepository{}, repo)
		assert.NoError(t, repo.Close())
	}

	_, err := NewJobRepository(ctx, config.DatabaseConfig{Type: "snowflake"})
	assert.Error(t, err)
}
