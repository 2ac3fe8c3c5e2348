package session

import (
	"context"
	"log"
	"testing"
	"time"

	"horsemarket-web/internal/api"
	"horsemarket-web/internal/db"
	"horsemarket-web/internal/testhelpers"
	"horsemarket-web/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type PgStoreTestSuite struct {
	suite.Suite
	pgContainer *testhelpers.PostgresContainer
	pool        *pgxpool.Pool
	sut         *PgStore
	ctx         context.Context
}

func (s *PgStoreTestSuite) SetupSuite() {
	time.Local = time.UTC

	s.ctx = context.Background()
	pgContainer, err := testhelpers.CreatePostgresContainer(s.ctx)
	if err != nil {
		log.Fatal(err)
	}
	s.pgContainer = pgContainer

	if err := db.RunMigrations(pgContainer.ConnectionString, migrations.FS); err != nil {
		log.Fatal(err)
	}

	pool, err := db.GetPool(s.ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatal(err)
	}

	s.pool = pool
	s.sut = NewPgStore(pool)
}

func (s *PgStoreTestSuite) TearDownSuite() {
	s.pool.Close()

	if err := s.pgContainer.Terminate(s.ctx); err != nil {
		log.Fatalf("error terminating postgres container: %s", err)
	}
}

func (s *PgStoreTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "DELETE FROM web_session")
	if err != nil {
		log.Fatalf("error truncating web_session table: %s", err)
	}
}

func newSession(expiresIn time.Duration) *Session {
	now := time.Now().Truncate(time.Millisecond)
	return &Session{
		ID:        uuid.New(),
		Token:     "jwt",
		APICookie: "sid=abc",
		User:      &api.User{ID: "u1", Name: "Rider", Email: "rider@example.com", Role: "USER"},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func (s *PgStoreTestSuite) TestCreateAndGet() {
	t := s.T()

	session := newSession(time.Hour)
	require.NoError(t, s.sut.Create(s.ctx, session))

	stored, err := s.sut.Get(s.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Token, stored.Token)
	assert.Equal(t, session.APICookie, stored.APICookie)
	assert.Equal(t, *session.User, *stored.User)
	assert.True(t, session.ExpiresAt.Equal(stored.ExpiresAt))
}

func (s *PgStoreTestSuite) TestGetMissing() {
	_, err := s.sut.Get(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *PgStoreTestSuite) TestUpdateClearsUser() {
	t := s.T()

	session := newSession(time.Hour)
	require.NoError(t, s.sut.Create(s.ctx, session))

	session.User = nil
	session.Token = ""
	require.NoError(t, s.sut.Update(s.ctx, session))

	stored, err := s.sut.Get(s.ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.User)
	assert.Empty(t, stored.Token)

	assert.ErrorIs(t, s.sut.Update(s.ctx, newSession(time.Hour)), ErrNotFound)
}

func (s *PgStoreTestSuite) TestDeleteExpired() {
	t := s.T()

	live := newSession(time.Hour)
	stale := newSession(-time.Hour)
	require.NoError(t, s.sut.Create(s.ctx, live))
	require.NoError(t, s.sut.Create(s.ctx, stale))

	n, err := s.sut.DeleteExpired(s.ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.sut.Get(s.ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.sut.Delete(s.ctx, live.ID))
	_, err = s.sut.Get(s.ctx, live.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgStoreTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration suite in short mode")
	}
	suite.Run(t, new(PgStoreTestSuite))
}
