package outlets

import (
	"context"
	"testing"

	"github.com/angelmondragon/resale-backend/pkg/db/models"
	"github.com/angelmondragon/resale-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestFindByID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:outlets_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Outlet{}))

	outlet := models.Outlet{
		ID:      uuid.New(),
		Name:    "Downtown",
		Address: types.Address{Line1: "12 Main St", City: "Austin", State: "TX", PostalCode: "78701"},
	}
	require.NoError(t, db.Create(&outlet).Error)
	repo := NewRepository(db)

	found, err := repo.FindByID(context.Background(), outlet.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Austin", found.Address.City)

	missing, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
