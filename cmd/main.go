package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/wes-cook-live/internal/archive"
	"github.com/weiawesome/wes-cook-live/internal/auth"
	"github.com/weiawesome/wes-cook-live/internal/cache"
	"github.com/weiawesome/wes-cook-live/internal/config"
	"github.com/weiawesome/wes-cook-live/internal/directory"
	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/handler"
	"github.com/weiawesome/wes-cook-live/internal/hub"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
	"github.com/weiawesome/wes-cook-live/internal/kafka"
	"github.com/weiawesome/wes-cook-live/internal/mention"
	"github.com/weiawesome/wes-cook-live/internal/notify"
	"github.com/weiawesome/wes-cook-live/internal/registry"
	"github.com/weiawesome/wes-cook-live/internal/repository"
	"github.com/weiawesome/wes-cook-live/internal/room"
	"github.com/weiawesome/wes-cook-live/internal/service"
	"github.com/weiawesome/wes-cook-live/pkg/database"
	"github.com/weiawesome/wes-cook-live/pkg/jwt"
	pkglog "github.com/weiawesome/wes-cook-live/pkg/log"
	"github.com/weiawesome/wes-cook-live/pkg/middleware"
	"github.com/weiawesome/wes-cook-live/pkg/pubsub"
	"github.com/weiawesome/wes-cook-live/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	ids, err := idgen.New(idgen.Config{Kind: cfg.IDs.Generator, NodeID: cfg.IDs.NodeID})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create id generator")
	}

	// Repositories
	userRepo := repository.NewGormUserRepository(db, ids)
	recipeRepo := repository.NewGormRecipeRepository(db, ids)
	socialRepo := repository.NewGormSocialRepository(db, ids)
	notificationRepo := repository.NewGormNotificationRepository(db, ids)

	var chatLog repository.ChatLog = repository.NewGormChatLog(db, ids)
	if cfg.Persistence.ChatLog == "cassandra" {
		cassandraLog, err := repository.NewCassandraChatLog(repository.CassandraConfig{
			Hosts:       cfg.Cassandra.Hosts,
			Keyspace:    cfg.Cassandra.Keyspace,
			Username:    cfg.Cassandra.Username,
			Password:    cfg.Cassandra.Password,
			Consistency: cfg.Cassandra.Consistency,
			Timeout:     cfg.Cassandra.Timeout,
		}, ids)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to cassandra")
		}
		defer cassandraLog.Close()
		chatLog = cassandraLog
		logger.Info().Strs("hosts", cfg.Cassandra.Hosts).Msg("chat log on cassandra")
	}

	// Redis backs the user cache and the presence registry when enabled.
	var (
		redisClient *redis.Client
		userCache   cache.UserCache
		presence    registry.Presence
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("failed to connect to redis")
		}
		userCache = cache.NewRedisUserCache(redisClient, "cook:user")
		if cfg.Registry.Enabled {
			presence = registry.NewRedisRegistry(redisClient, cfg.Registry, cfg.Server.InstanceID)
		}
		logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
	}

	dir := directory.New(userRepo, userCache, cfg.Cache.UserTTL)

	tokens, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Duration, cfg.JWT.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}
	authenticator := auth.NewAuthenticator(tokens, dir)

	wsHub := hub.NewHub(cfg.WebSocket)
	tracker := room.NewTracker()
	sequencer := room.NewSequencer(room.SequencerConfig{
		IdleTimeout: cfg.Rooms.IdleTimeout,
		QueueSize:   cfg.Rooms.QueueSize,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// Notifications reach sockets directly or through the bus.
	var pusher notify.Pusher
	if cfg.PubSub.Driver == "local" {
		pusher = notify.NewLocalPusher(wsHub)
	} else {
		var bus pubsub.PubSub
		if cfg.PubSub.Driver == "redis" && redisClient != nil {
			bus = pubsub.NewRedisPubSubWithClient(redisClient)
		} else {
			var err error
			bus, err = pubsub.NewPubSub(cfg.PubSub)
			if err != nil {
				logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create pubsub")
			}
		}
		defer bus.Close()
		pusher = notify.NewRelayPusher(bus)

		relay := notify.NewRelay(bus, wsHub)
		g.Go(func() error { return relay.Run(gctx) })
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("notification relay started")
	}

	var activity kafka.ActivityProducer = kafka.NoopProducer{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewConfluentProducer(cfg.Kafka)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create kafka producer")
		}
		activity = producer
		logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("room activity to kafka")
	}

	dispatcher := notify.NewDispatcher(notificationRepo, dir, pusher)
	mentions := mention.NewResolver(dir, dispatcher, cfg.Mention.Domain)

	cookingSvc := service.NewCookingService(service.CookingDeps{
		Hub:       wsHub,
		Tracker:   tracker,
		Sequencer: sequencer,
		Recipes:   recipeRepo,
		ChatLog:   chatLog,
		Notifier:  dispatcher,
		Mentions:  mentions,
		Presence:  presence,
		Activity:  activity,
	})
	var archives service.SessionArchiver
	if cfg.Archive.Enabled {
		store, err := storage.New(ctx, cfg.Archive.Storage)
		if err != nil {
			logger.Fatal().Err(err).Str("driver", cfg.Archive.Storage.Driver).Msg("failed to create archive storage")
		}
		archives = archive.NewArchiver(store, chatLog, archive.Config{
			MaxEntries: cfg.Archive.MaxEntries,
			URLExpiry:  cfg.Archive.URLExpiry,
		})
		logger.Info().Str("driver", cfg.Archive.Storage.Driver).Msg("session archives enabled")
	}

	recipeSvc := service.NewRecipeService(recipeRepo, socialRepo, tracker, dispatcher, mentions, archives)
	userSvc := service.NewUserService(userRepo, dir, dispatcher)

	if err := cookingSvc.Start(gctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start cooking service")
	}

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), pkglog.GinMiddleware(logger))

	handler.NewWSHandler(wsHub, cookingSvc, authenticator, cfg.WebSocket).RegisterRoutes(r)
	authMiddleware := middleware.NewAuthMiddleware(authenticator)
	handler.NewHandler(cookingSvc, recipeSvc, userSvc, dispatcher, authMiddleware).RegisterRoutes(r)
	if cfg.Archive.Enabled && cfg.Archive.Storage.Driver == "local" {
		r.Group(cfg.Archive.Storage.Local.URLPrefix, authMiddleware.RequireAuth()).
			Static("/", cfg.Archive.Storage.Local.BasePath)
	}

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("instance", cfg.Server.InstanceID).Msg("cook live listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("server forced to shutdown")
		}
		wsHub.CloseAll()
		return cookingSvc.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("cook live stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("cook live stopped")
}
