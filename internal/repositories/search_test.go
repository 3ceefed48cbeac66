package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NaguKun/Analyseur-de-CV/internal/models"
)

var errNotExecuted = errors.New("query recorded, not executed")

type recordedQuery struct {
	sql  string
	args []interface{}
}

// recordingPool captures the statements gorm builds for postgres and fails
// every one of them, so no server is needed.
type recordingPool struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (p *recordingPool) record(query string, args []interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, recordedQuery{sql: query, args: args})
}

func (p *recordingPool) last(t *testing.T) recordedQuery {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.queries)
	return p.queries[len(p.queries)-1]
}

func (p *recordingPool) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errNotExecuted
}

func (p *recordingPool) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	p.record(query, args)
	return nil, errNotExecuted
}

func (p *recordingPool) QueryContext(_ context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	p.record(query, args)
	return nil, errNotExecuted
}

func (p *recordingPool) QueryRowContext(_ context.Context, query string, args ...interface{}) *sql.Row {
	p.record(query, args)
	return nil
}

func newRecordingRepository(t *testing.T) (*searchRepository, *recordingPool) {
	t.Helper()
	pool := &recordingPool{}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &searchRepository{db: db, batchSize: 2}, pool
}

func TestLocationRowsEscapesLikeWildcards(t *testing.T) {
	repo, pool := newRecordingRepository(t)

	_, err := repo.LocationRows(context.Background(), `50%_off\site`)
	require.ErrorIs(t, err, errNotExecuted)

	q := pool.last(t)
	assert.Contains(t, q.sql, "location ILIKE $1")
	assert.Equal(t, []interface{}{`%50\%\_off\\site%`}, q.args)
}

func TestEducationRowsDegreeMatching(t *testing.T) {
	repo, pool := newRecordingRepository(t)

	_, err := repo.EducationRows(context.Background(), "MSc", false)
	require.ErrorIs(t, err, errNotExecuted)
	q := pool.last(t)
	assert.Contains(t, q.sql, "degree = $1")
	assert.NotContains(t, q.sql, "LOWER")
	assert.Equal(t, []interface{}{"MSc"}, q.args)

	_, err = repo.EducationRows(context.Background(), "MSc", true)
	require.ErrorIs(t, err, errNotExecuted)
	q = pool.last(t)
	assert.Contains(t, q.sql, "LOWER(degree) = $1")
	assert.Equal(t, []interface{}{"msc"}, q.args)
}

func TestSkillsByNamesUsesNormalizedNamesWhenFolding(t *testing.T) {
	repo, pool := newRecordingRepository(t)

	_, err := repo.SkillsByNames(context.Background(), []string{"Machine  Learning", "Go"}, true)
	require.ErrorIs(t, err, errNotExecuted)
	q := pool.last(t)
	assert.Contains(t, q.sql, "normalized_name IN ($1,$2)")
	assert.Equal(t, []interface{}{"machine learning", "go"}, q.args)

	_, err = repo.SkillsByNames(context.Background(), []string{"Go"}, false)
	require.ErrorIs(t, err, errNotExecuted)
	q = pool.last(t)
	assert.Contains(t, q.sql, "name IN ($1)")
	assert.NotContains(t, q.sql, "normalized_name IN")
	assert.Equal(t, []interface{}{"Go"}, q.args)
}

func TestScanEmbeddingsKeysetQuery(t *testing.T) {
	repo, pool := newRecordingRepository(t)

	err := repo.ScanEmbeddings(context.Background(), nil, func([]models.EmbeddingRow) error {
		t.Fatal("no rows expected")
		return nil
	})
	require.ErrorIs(t, err, errNotExecuted)

	q := pool.last(t)
	assert.Contains(t, q.sql, "id > $1")
	assert.Contains(t, q.sql, "ORDER BY id ASC")
	assert.Contains(t, q.sql, "LIMIT")
	require.NotEmpty(t, q.args)
	assert.Equal(t, uint(0), q.args[0])
}

func TestScanEmbeddingsBatchesExplicitIDs(t *testing.T) {
	repo, pool := newRecordingRepository(t)

	err := repo.ScanEmbeddings(context.Background(), []uint{4, 9, 12}, func([]models.EmbeddingRow) error {
		return nil
	})
	require.ErrorIs(t, err, errNotExecuted)

	q := pool.last(t)
	assert.Contains(t, q.sql, "id IN ($1,$2)")
	assert.Equal(t, []interface{}{uint(4), uint(9)}, q.args, "the first batch holds batchSize ids")
}
