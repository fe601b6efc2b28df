package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/propchain/marketd/internal/blob/s3"
	"github.com/propchain/marketd/internal/cache/redis"
	"github.com/propchain/marketd/internal/config"
	"github.com/propchain/marketd/internal/domain"
	"github.com/propchain/marketd/internal/server/handler"
	"github.com/propchain/marketd/internal/service"
	"github.com/propchain/marketd/internal/store/postgres"
)

// Dependencies bundles everything the application lifecycle needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store domain.Store

	// Redis-backed collaborators. All nil when Redis is not configured; the
	// services degrade to single-instance operation without them.
	Cache       domain.PropertyCache
	Locks       domain.LockManager
	RateLimiter domain.RateLimiter
	Bus         domain.SignalBus

	// Archiver is nil when no S3 bucket is configured.
	Archiver domain.Archiver

	Admin   *service.AdminService
	Listing *service.ListingService
	Auction *service.AuctionService
	Escrow  *service.EscrowService

	// Pingers for the health endpoint.
	DBPinger    handler.Pinger
	CachePinger handler.Pinger
}

// Wire constructs the concrete dependency implementations from the
// configuration and returns them with a cleanup function to be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.Store = postgres.NewStore(pgClient.Pool())
	deps.DBPinger = pgClient.Pool()

	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewPropertyCache(redisClient)
		deps.Locks = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Bus = redis.NewSignalBus(redisClient)
		deps.CachePinger = redisClient
	} else {
		logger.Warn("redis not configured; locks, cache, rate limiting, and events are disabled")
	}

	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(deps.Store, s3blob.NewWriter(s3Client))
	}

	deps.Admin = service.NewAdminService(deps.Store, deps.Bus, logger)
	deps.Listing = service.NewListingService(deps.Store, deps.Cache, deps.Locks, deps.Bus, logger)
	deps.Auction = service.NewAuctionService(deps.Store, deps.Cache, deps.Locks, deps.Bus, logger)
	deps.Escrow = service.NewEscrowService(deps.Store, deps.Cache, deps.Locks, deps.Bus, logger)

	return deps, cleanup, nil
}
