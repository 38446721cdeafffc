// Package database_test contains unit tests for the database package.
package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janseva-labs/schemeharvest/internal/database"
	"github.com/janseva-labs/schemeharvest/internal/harvest"
)

func sampleRecord(name string) harvest.SchemeRecord {
	return harvest.SchemeRecord{
		Name:            name,
		Region:          "Kerala",
		Link:            "https://kerala.gov.in/schemes/" + name,
		DescriptionText: "Financial assistance for small farmers.",
		SourceURL:       "https://kerala.gov.in/schemes",
		ScrapedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgresProvider_UpsertSchemes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := database.NewPostgresProviderWithPool(mock)

	records := []harvest.SchemeRecord{sampleRecord("pm-kisan"), sampleRecord("krishi-bhagya")}

	batch := mock.ExpectBatch()
	for range records {
		batch.ExpectExec("INSERT INTO schemes").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	written, err := p.UpsertSchemes(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, len(records), written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProvider_UpsertSchemes_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := database.NewPostgresProviderWithPool(mock)

	written, err := p.UpsertSchemes(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestPostgresProvider_UpsertSchemes_BatchFailureReportsProgress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := database.NewPostgresProviderWithPool(mock)

	records := []harvest.SchemeRecord{sampleRecord("a"), sampleRecord("b")}

	batch := mock.ExpectBatch()
	batch.ExpectExec("INSERT INTO schemes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	batch.ExpectExec("INSERT INTO schemes").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("constraint violation"))

	written, err := p.UpsertSchemes(context.Background(), records)
	require.Error(t, err)
	assert.Equal(t, 1, written)
}

func TestPostgresProvider_UpsertScheme(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := database.NewPostgresProviderWithPool(mock)

	rec := sampleRecord("pm-kisan")
	mock.ExpectExec("INSERT INTO schemes").
		WithArgs(rec.Name, rec.Region, rec.Link, rec.DescriptionText, rec.DescriptionHTML,
			rec.EligibilityText, rec.EligibilityHTML, rec.SourceURL, rec.Category,
			rec.BenefitAmount, rec.ScrapedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, p.UpsertScheme(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoOpProvider(t *testing.T) {
	p := &database.NoOpProvider{}
	written, err := p.UpsertSchemes(context.Background(), []harvest.SchemeRecord{sampleRecord("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	require.NoError(t, p.UpsertScheme(context.Background(), sampleRecord("x")))
	require.NoError(t, p.Close())
}
