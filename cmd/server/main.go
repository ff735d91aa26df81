package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/dmoreira/shoplist/internal/config"
	"github.com/dmoreira/shoplist/internal/database"
	"github.com/dmoreira/shoplist/internal/handler"
	"github.com/dmoreira/shoplist/internal/middleware"
	"github.com/dmoreira/shoplist/internal/queue"
	"github.com/dmoreira/shoplist/internal/repository"
	"github.com/dmoreira/shoplist/internal/router"
	"github.com/dmoreira/shoplist/pkg/logger"
)

func main() {
	// .env is optional; real deployments inject variables directly.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	// Redis backs the rate limiter and the purchase-history cache.
	// Both middlewares degrade to pass-through when it is absent.
	rdb := config.NewRedisClient()
	markLimiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	purchaseCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	lists := repository.NewListRepo(db)
	items := repository.NewItemRepo(db)
	categories := repository.NewCategoryRepo(db)
	sessions := repository.NewSessionRepo(db)
	marks := repository.NewMarkRepo(db)
	purchases := repository.NewPurchaseRepo(db)

	h := router.Handlers{
		Auth:       handler.NewAuthHandler(cfg, users, tokens),
		Lists:      handler.NewListHandler(lists, users),
		Items:      handler.NewItemHandler(items, lists),
		Categories: handler.NewCategoryHandler(categories),
		Marking:    handler.NewMarkingHandler(sessions, marks, lists, items, purchases, users, log),
		Purchases:  handler.NewPurchaseHandler(purchases, cfg.HistoryLimit, log),
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, h, cfg.JWTSecret, markLimiter, purchaseCache)

	// Background consumer mirroring finalized purchases into a log file.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.WithError(err).Error("purchase consumer stopped")
		}
	}()

	addr := ":" + cfg.Port
	log.WithField("env", cfg.Env).Infof("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
