package deps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v9"
	"github.com/jackc/pgx/v4/pgxpool"

	"remindbot/internal/config"
	"remindbot/internal/core/domain/attachment"
	dl "remindbot/internal/core/domain/logging"
	"remindbot/internal/core/domain/notification"
	drl "remindbot/internal/core/domain/rate_limiter"
	dsession "remindbot/internal/core/domain/session"
	duow "remindbot/internal/core/domain/unit_of_work"
	"remindbot/internal/db/memory"
	uow "remindbot/internal/db/unit_of_work"
	blobstorage "remindbot/internal/implementations/blob_storage"
	"remindbot/internal/implementations/logging"
	ratelimiter "remindbot/internal/implementations/rate_limiter"
	"remindbot/internal/implementations/session"
	"remindbot/internal/implementations/telegram"
)

type Deps struct {
	Config    *config.Config
	AwsConfig aws.Config
	Logger    dl.Logger

	DB    *pgxpool.Pool
	Redis *redis.Client

	Now func() time.Time

	UnitOfWork        duow.UnitOfWork
	SessionRepository dsession.Repository
	RateLimiter       drl.RateLimiter
	BlobStorage       attachment.BlobStorage

	Telegram *telegram.Client
	Notifier notification.Notifier
}

func InitDeps() (*Deps, func()) {
	deps := &Deps{}

	deps.initConfig()
	deps.Now = func() time.Time { return time.Now().UTC() }

	closeLogger := deps.initLogger()
	closePgxPool := deps.initUnitOfWork()
	closeRedisClient := deps.initRedisAdapters()
	deps.initBlobStorage()

	deps.Telegram = telegram.NewClient(
		deps.Config.TelegramBaseURL,
		deps.Config.TelegramToken,
		deps.Config.TelegramRequestTimeout,
	)
	deps.Notifier = telegram.NewNotifier(deps.Telegram, deps.Config.Location, deps.Now)

	flushSentry := deps.initSentry()

	return deps, func() {
		closeFuncs := []func(){
			closeRedisClient,
			closePgxPool,
			flushSentry,
		}

		var wg sync.WaitGroup
		wg.Add(len(closeFuncs))
		for _, closeFunc := range closeFuncs {
			closeFunc := closeFunc
			go func() {
				closeFunc()
				wg.Done()
			}()
		}

		wg.Wait()
		closeLogger()
	}
}

func (deps *Deps) initConfig() {
	config, err := config.Load()
	if err != nil {
		panic(err)
	}
	deps.Config = config
}

// initAwsConfig falls back to the default credential chain (environment,
// shared config, instance role) when no static keys are configured.
func (deps *Deps) initAwsConfig() {
	options := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(deps.Config.AwsRegion),
		awsConfig.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(
				retry.AddWithMaxBackoffDelay(retry.NewStandard(), deps.Config.BlobTimeout/3),
				3,
			)
		}),
	}
	if deps.Config.AwsAccessKey != "" {
		options = append(options, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(deps.Config.AwsAccessKey, deps.Config.AwsSecretKey, ""),
		))
	}

	cfg, err := awsConfig.LoadDefaultConfig(context.Background(), options...)
	if err != nil {
		deps.Logger.Error(context.Background(), "Could not load AWS config.", dl.Entry("err", err))
		panic(err)
	}
	deps.AwsConfig = cfg
}

func (deps *Deps) initLogger() func() {
	logger := logging.NewZapLogger()
	deps.Logger = logger
	return func() { logger.Sync() }
}

func (deps *Deps) initUnitOfWork() func() {
	if !deps.Config.UsesPostgres() {
		deps.Logger.Warning(context.Background(), "POSTGRESQL_URL is not set, reminders are kept in memory.")
		deps.UnitOfWork = memory.NewUnitOfWork(nil)
		return func() {}
	}

	db, err := pgxpool.Connect(context.Background(), deps.Config.PostgresqlURL)
	if err != nil {
		deps.Logger.Error(context.Background(), "Could not connect to DB.", dl.Entry("err", err))
		panic(err)
	}
	deps.DB = db
	deps.UnitOfWork = uow.NewPgxUnitOfWork(db)
	return func() {
		deps.Logger.Info(context.Background(), "Shutting down DB connection.")
		db.Close()
		deps.Logger.Info(context.Background(), "DB connection shut down.")
	}
}

func (deps *Deps) initRedisAdapters() func() {
	if !deps.Config.UsesRedis() {
		deps.Logger.Warning(context.Background(), "REDIS_URL is not set, sessions and rate limits are kept in memory.")
		deps.SessionRepository = session.NewMemory(deps.Config.SessionTTL, deps.Now)
		deps.RateLimiter = ratelimiter.NewMemory(deps.Now)
		return func() {}
	}

	redisOpt, err := redis.ParseURL(deps.Config.RedisURL)
	if err != nil {
		deps.Logger.Error(context.Background(), "Could not connect to Redis.", dl.Entry("err", err))
		panic(err)
	}
	redisClient := redis.NewClient(redisOpt)
	deps.Redis = redisClient
	deps.SessionRepository = session.NewRedis(redisClient, deps.Config.SessionTTL)
	deps.RateLimiter = ratelimiter.NewRedis(redisClient, deps.Logger, deps.Now)
	return func() {
		deps.Logger.Info(context.Background(), "Shutting down Redis client.")
		redisClient.Close()
		deps.Logger.Info(context.Background(), "Redis client shut down.")
	}
}

func (deps *Deps) initBlobStorage() {
	if !deps.Config.UsesS3() {
		deps.Logger.Warning(context.Background(), "S3_BUCKET is not set, attachments are kept in memory.")
		deps.BlobStorage = blobstorage.NewMemory()
		return
	}

	deps.initAwsConfig()
	deps.BlobStorage = blobstorage.NewS3(deps.AwsConfig, blobstorage.S3Options{
		Bucket:       deps.Config.S3Bucket,
		Endpoint:     deps.Config.S3Endpoint,
		UsePathStyle: deps.Config.S3UsePathStyle,
	})
}

func (deps *Deps) initSentry() func() {
	if deps.Config.SentryDsn == nil {
		deps.Logger.Info(context.Background(), "Sentry is disabled.")
		return func() {}
	}

	environment := "production"
	if deps.Config.IsTestMode {
		environment = "test"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              deps.Config.SentryDsn.String(),
		Environment:      environment,
		AttachStacktrace: true,
		TracesSampleRate: 0.01,
	})
	if err != nil {
		panic(fmt.Sprintf("could not init Sentry: %v\n", err))
	}
	deps.Logger.Info(context.Background(), "Sentry has been successfully initialized.", dl.Entry("environment", environment))
	return func() {
		ok := sentry.Flush(5 * time.Second)
		deps.Logger.Info(context.Background(), "Sentry events flushed.", dl.Entry("ok", ok))
	}
}
