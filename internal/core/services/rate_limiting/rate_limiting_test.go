package ratelimiting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"remindbot/internal/core/domain/logging"
	ratelimiter "remindbot/internal/core/domain/rate_limiter"
	"remindbot/internal/core/domain/user"
	"remindbot/internal/core/services"
)

type input struct {
	OwnerID user.ID
}

func (i input) GetRateLimitKey() string {
	return ratelimiter.UpdatesKey(i.OwnerID)
}

type result struct{}

type stubService struct {
	Calls int
}

func (s *stubService) Run(ctx context.Context, input input) (result result, err error) {
	s.Calls++
	return result, nil
}

type testRateLimitingSuite struct {
	suite.Suite
	Logger      *logging.FakeLogger
	RateLimiter *ratelimiter.FakeRateLimiter
	Inner       *stubService
	Service     services.Service[input, result]
}

func (suite *testRateLimitingSuite) SetupTest() {
	suite.Logger = logging.NewFakeLogger()
	suite.RateLimiter = ratelimiter.NewFakeRateLimiter(false)
	suite.Inner = &stubService{}
	suite.Service = WithRateLimiting[input, result](
		suite.Logger,
		suite.RateLimiter,
		ratelimiter.Limit{Value: 10, Interval: ratelimiter.Minute},
		suite.Inner,
	)
}

func TestRateLimitingService(t *testing.T) {
	suite.Run(t, new(testRateLimitingSuite))
}

func (suite *testRateLimitingSuite) TestNotLimited() {
	ctx := context.Background()
	suite.RateLimiter.IsAllowed = true

	_, err := suite.Service.Run(ctx, input{OwnerID: 7})

	assert := suite.Require()
	assert.Nil(err)
	assert.Equal(1, suite.Inner.Calls)
	assert.Equal([]string{"updates::7"}, suite.RateLimiter.CheckedKeys)
	assert.Equal(0, suite.Logger.CountLevel(logging.WARNING))
}

func (suite *testRateLimitingSuite) TestLimited() {
	ctx := context.Background()
	suite.RateLimiter.IsAllowed = false

	_, err := suite.Service.Run(ctx, input{OwnerID: 7})

	assert := suite.Require()
	assert.ErrorIs(err, ratelimiter.ErrRateLimitExceeded)
	assert.Equal(0, suite.Inner.Calls)
	assert.Equal(1, suite.Logger.CountLevel(logging.WARNING))
}
