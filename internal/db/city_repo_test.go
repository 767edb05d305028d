package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"precipwatch/internal/types"
)

func TestCityRepository_Create_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCityRepository(db)
	ctx := context.Background()

	city := &types.City{
		ID:        "city_1",
		Name:      "Lausanne",
		Latitude:  46.5197,
		Longitude: 6.6323,
	}

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Create(ctx, city)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestCityRepository_Create_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCityRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("unique_violation"))

	err := repo.Create(ctx, &types.City{ID: "city_1", Name: "Lausanne"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestCityRepository_GetByID_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCityRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*string) = "city_1"
			*dest[1].(*string) = "Lausanne"
			*dest[2].(*float64) = 46.5197
			*dest[3].(*float64) = 6.6323
			*dest[4].(*time.Time) = now
			return nil
		},
	}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"city_1"}).Return(row)

	city, err := repo.GetByID(ctx, "city_1")
	require.NoError(t, err)
	assert.Equal(t, "Lausanne", city.Name)
	assert.Equal(t, 46.5197, city.Latitude)
}

func TestCityRepository_GetByID_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCityRepository(db)
	ctx := context.Background()

	row := &mockRow{scanErr: pgx.ErrNoRows}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"city_missing"}).Return(row)

	_, err := repo.GetByID(ctx, "city_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundCity, appErr.Code)
}

func TestCityRepository_List_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCityRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	rows := newMockRows([][]any{
		{"city_1", "Geneva", 46.2044, 6.1432, now},
		{"city_2", "Lausanne", 46.5197, 6.6323, now},
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	cities, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "Geneva", cities[0].Name)
	assert.Equal(t, "Lausanne", cities[1].Name)
}

func TestCityRepository_Update_NotFound(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCityRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Update(ctx, &types.City{ID: "city_missing", Name: "Nowhere"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundCity, appErr.Code)
}

func TestCityRepository_Delete_Success(t *testing.T) {
	db := new(mockDBTX)
	repo := NewCityRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"city_1"}).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	err := repo.Delete(ctx, "city_1")
	require.NoError(t, err)
	db.AssertExpectations(t)
}
