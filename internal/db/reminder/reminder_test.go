package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/suite"

	c "remindbot/internal/core/domain/common"
	domain "remindbot/internal/core/domain/reminder"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/db"
)

const (
	OWNER_ID       = user.ID(1)
	OTHER_OWNER_ID = user.ID(2)
)

var Now = time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)

type testSuite struct {
	suite.Suite
	pool *pgxpool.Pool
	repo *PgxReminderRepository
}

func (suite *testSuite) SetupSuite() {
	suite.pool = db.CreateTestPool()
	suite.repo = NewPgxReminderRepository(suite.pool)
}

func (suite *testSuite) TearDownSuite() {
	suite.pool.Close()
}

func (suite *testSuite) TearDownTest() {
	db.TruncateTables(suite.pool)
}

func TestPgxReminderRepository(t *testing.T) {
	db.SkipWithoutDatabase(t)
	suite.Run(t, new(testSuite))
}

func (s *testSuite) create(ownerID user.ID, fireAt time.Time, every c.Optional[domain.Interval]) domain.Reminder {
	s.T().Helper()
	rem, err := s.repo.Create(context.Background(), domain.CreateInput{
		OwnerID:     ownerID,
		Description: "Test",
		FireAt:      fireAt,
		Every:       every,
		CreatedAt:   Now,
	})
	s.Require().Nil(err)
	return rem
}

func (s *testSuite) TestCreate() {
	cases := []struct {
		id    string
		input domain.CreateInput
	}{
		{
			id: "one-time",
			input: domain.CreateInput{
				OwnerID:     OWNER_ID,
				Description: "Buy milk",
				FireAt:      Now,
				CreatedAt:   Now,
			},
		},
		{
			id: "recurring",
			input: domain.CreateInput{
				OwnerID:     OWNER_ID,
				Description: "Water plants",
				FireAt:      Now.Add(time.Hour),
				Every:       c.Some(domain.Interval{Days: 2, Hours: 30, Minutes: 15}),
				CreatedAt:   Now,
			},
		},
		{
			id: "with attachments in another time zone",
			input: domain.CreateInput{
				OwnerID:        OTHER_OWNER_ID,
				Description:    "Read",
				FireAt:         time.Date(2024, 3, 10, 18, 0, 0, 0, time.FixedZone("UTC+3", 3*60*60)),
				HasAttachments: true,
				Every:          c.Some(domain.Interval{Minutes: 1}),
				CreatedAt:      Now,
			},
		},
	}

	for _, testcase := range cases {
		s.Run(testcase.id, func() {
			rem, err := s.repo.Create(context.Background(), testcase.input)

			assert := s.Require()
			assert.Nil(err)
			assert.True(rem.ID > 0)
			assert.Equal(testcase.input.OwnerID, rem.OwnerID)
			assert.Equal(testcase.input.Description, rem.Description)
			assert.True(testcase.input.FireAt.Equal(rem.FireAt))
			assert.Equal(time.UTC, rem.FireAt.Location())
			assert.Equal(testcase.input.Every, rem.Every)
			assert.Equal(testcase.input.HasAttachments, rem.HasAttachments)
			assert.False(rem.IsDone)

			fetched, err := s.repo.GetByID(context.Background(), rem.OwnerID, rem.ID)
			assert.Nil(err)
			assert.Equal(rem, fetched)
		})
	}
}

func (s *testSuite) TestIDsAreLocalToOwner() {
	first := s.create(OWNER_ID, Now, c.None[domain.Interval]())
	second := s.create(OWNER_ID, Now, c.None[domain.Interval]())
	other := s.create(OTHER_OWNER_ID, Now, c.None[domain.Interval]())

	assert := s.Require()
	assert.Equal(domain.ID(1), first.ID)
	assert.Equal(domain.ID(2), second.ID)
	assert.Equal(domain.ID(1), other.ID)

	_, err := s.repo.GetByID(context.Background(), OTHER_OWNER_ID, second.ID)
	assert.ErrorIs(err, domain.ErrReminderDoesNotExist)
}

func (s *testSuite) TestRead() {
	s.create(OWNER_ID, Now.Add(2*time.Hour), c.None[domain.Interval]())
	s.create(OWNER_ID, Now.Add(-time.Hour), c.None[domain.Interval]())
	s.create(OWNER_ID, Now.Add(time.Hour), c.None[domain.Interval]())
	s.create(OTHER_OWNER_ID, Now, c.None[domain.Interval]())
	_, err := s.repo.Update(context.Background(), domain.UpdateInput{
		OwnerID:        OWNER_ID,
		ID:             3,
		DoIsDoneUpdate: true,
		IsDone:         true,
	})
	s.Require().Nil(err)

	cases := []struct {
		id       string
		options  domain.ReadOptions
		expected []domain.ID
	}{
		{
			id:       "all by id",
			options:  domain.ReadOptions{OwnerID: OWNER_ID},
			expected: []domain.ID{1, 2, 3},
		},
		{
			id:       "by fire time asc",
			options:  domain.ReadOptions{OwnerID: OWNER_ID, OrderBy: domain.OrderByFireAtAsc},
			expected: []domain.ID{2, 3, 1},
		},
		{
			id:       "by fire time desc",
			options:  domain.ReadOptions{OwnerID: OWNER_ID, OrderBy: domain.OrderByFireAtDesc},
			expected: []domain.ID{1, 3, 2},
		},
		{
			id: "active",
			options: domain.ReadOptions{
				OwnerID: OWNER_ID,
				IsDone:  c.Some(false),
				OrderBy: domain.OrderByFireAtAsc,
			},
			expected: []domain.ID{2, 1},
		},
		{
			id:       "done",
			options:  domain.ReadOptions{OwnerID: OWNER_ID, IsDone: c.Some(true)},
			expected: []domain.ID{3},
		},
		{
			id:       "fire time not after",
			options:  domain.ReadOptions{OwnerID: OWNER_ID, FireAtBefore: c.Some(Now.Add(time.Hour))},
			expected: []domain.ID{2, 3},
		},
		{
			id: "limit",
			options: domain.ReadOptions{
				OwnerID: OWNER_ID,
				OrderBy: domain.OrderByFireAtDesc,
				Limit:   c.Some[uint](1),
			},
			expected: []domain.ID{1},
		},
	}

	for _, testcase := range cases {
		s.Run(testcase.id, func() {
			reminders, err := s.repo.Read(context.Background(), testcase.options)

			assert := s.Require()
			assert.Nil(err)
			ids := make([]domain.ID, 0, len(reminders))
			for _, rem := range reminders {
				ids = append(ids, rem.ID)
			}
			assert.Equal(testcase.expected, ids)
		})
	}
}

func (s *testSuite) TestUpdate() {
	assert := s.Require()
	rem := s.create(OWNER_ID, Now, c.Some(domain.Interval{Days: 1}))
	fireAt := Now.Add(48 * time.Hour)

	updated, err := s.repo.Update(context.Background(), domain.UpdateInput{
		OwnerID:             OWNER_ID,
		ID:                  rem.ID,
		DoDescriptionUpdate: true,
		Description:         "Updated",
		DoFireAtUpdate:      true,
		FireAt:              fireAt,
		DoEveryUpdate:       true,
		Every:               c.None[domain.Interval](),
	})

	assert.Nil(err)
	assert.Equal("Updated", updated.Description)
	assert.True(fireAt.Equal(updated.FireAt))
	assert.False(updated.Every.IsPresent)
	assert.False(updated.IsDone)
	assert.False(updated.HasAttachments)

	updated, err = s.repo.Update(context.Background(), domain.UpdateInput{
		OwnerID:                OWNER_ID,
		ID:                     rem.ID,
		DoHasAttachmentsUpdate: true,
		HasAttachments:         true,
	})
	assert.Nil(err)
	assert.Equal("Updated", updated.Description)
	assert.True(fireAt.Equal(updated.FireAt))
	assert.True(updated.HasAttachments)

	_, err = s.repo.Update(context.Background(), domain.UpdateInput{OwnerID: OTHER_OWNER_ID, ID: rem.ID})
	assert.ErrorIs(err, domain.ErrReminderDoesNotExist)
}

func (s *testSuite) TestDelete() {
	assert := s.Require()
	rem := s.create(OWNER_ID, Now, c.None[domain.Interval]())

	assert.ErrorIs(s.repo.Delete(context.Background(), OTHER_OWNER_ID, rem.ID), domain.ErrReminderDoesNotExist)
	assert.Nil(s.repo.Delete(context.Background(), OWNER_ID, rem.ID))
	assert.ErrorIs(s.repo.Delete(context.Background(), OWNER_ID, rem.ID), domain.ErrReminderDoesNotExist)
}

func (s *testSuite) TestReadDueOwners() {
	s.create(3, Now.Add(-time.Minute), c.None[domain.Interval]())
	s.create(OWNER_ID, Now, c.None[domain.Interval]())
	s.create(OWNER_ID, Now.Add(-time.Hour), c.None[domain.Interval]())
	s.create(OTHER_OWNER_ID, Now.Add(time.Second), c.None[domain.Interval]())
	done := s.create(4, Now.Add(-time.Hour), c.None[domain.Interval]())
	_, err := s.repo.Update(context.Background(), domain.UpdateInput{
		OwnerID:        4,
		ID:             done.ID,
		DoIsDoneUpdate: true,
		IsDone:         true,
	})
	s.Require().Nil(err)

	owners, err := s.repo.ReadDueOwners(context.Background(), Now)

	s.Require().Nil(err)
	s.Require().Equal([]user.ID{OWNER_ID, 3}, owners)
}
