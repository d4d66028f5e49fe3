package seeders_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/database/seeders"
	"github.com/shashiranjanraj/orderly/internal/testutil"
)

func TestRunAllIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, seeders.RunAll(ctx, db, &out))
	require.NoError(t, seeders.RunAll(ctx, db, &out))
	assert.Contains(t, out.String(), "seeded products")

	var products []models.Product
	require.NoError(t, db.Order("name").Find(&products).Error)
	require.Len(t, products, len(seeders.Menu))
	assert.Equal(t, "Caesar Salad", products[0].Name)
	assert.Equal(t, "8.99", products[0].Price.StringFixed(2))
}
