package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parish-data/internal/config"
	"parish-data/internal/database"
	httpapi "parish-data/internal/http"
	"parish-data/internal/logger"
	"parish-data/internal/repository"
	"parish-data/internal/service"
	"parish-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "parish-data")
	if err != nil {
		log, _ = zap.NewProduction()
	}
	defer log.Sync()

	// KV：优先 Redis，连不上退化为进程内存（导入会话/字段缓存仍可用）
	var kv store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("redis unavailable, falling back to memory KV", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
		kv = store.NewMemoryKV()
	} else {
		kv = store.NewRedisKV(redisClient)
	}

	// Repos：DB 可用时用 Postgres，否则内存（本地联调不依赖外部服务）
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for parish-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}

	var (
		peopleRepo     repository.PeopleRepository
		tagsRepo       repository.TagsRepository
		householdsRepo repository.HouseholdsRepository
		defsRepo       repository.FieldDefsRepository
		notesRepo      repository.NotesRepository
	)
	if db != nil {
		peopleRepo = repository.NewPostgresPeopleRepository(db)
		tagsRepo = repository.NewPostgresTagsRepository(db)
		householdsRepo = repository.NewPostgresHouseholdsRepository(db)
		defsRepo = repository.NewPostgresFieldDefsRepository(db)
		notesRepo = repository.NewPostgresNotesRepository(db)
	} else {
		peopleRepo = repository.NewMemoryPeopleRepository()
		tagsRepo = repository.NewMemoryTagsRepository()
		householdsRepo = repository.NewMemoryHouseholdsRepository()
		defsRepo = repository.NewMemoryFieldDefsRepository()
		notesRepo = repository.NewMemoryNotesRepository()
	}

	// Services
	defService := service.NewFieldDefService(defsRepo, kv, log)
	personService := service.NewPersonService(peopleRepo, defService, log)
	tagService := service.NewTagService(tagsRepo, peopleRepo, log)
	householdService := service.NewHouseholdService(householdsRepo, peopleRepo, log)
	noteService := service.NewNoteService(notesRepo, peopleRepo, log)
	exportService := service.NewExportService(peopleRepo, tagsRepo, defService, log)
	webhook := service.NewWebhookClient(cfg.Import.WebhookURL, log)
	importService := service.NewImportService(
		personService, defService, kv, webhook,
		time.Duration(cfg.Import.SessionTTLSeconds)*time.Second, log)

	// HTTP
	router := httpapi.NewRouter(log)
	router.RegisterAdminRoutes(
		httpapi.NewPeopleHandler(personService, noteService, log),
		httpapi.NewFieldDefsHandler(defService, log),
		httpapi.NewTagsHandler(tagService, log),
		httpapi.NewHouseholdsHandler(householdService, log),
		httpapi.NewImportExportHandler(importService, exportService, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-errCh:
	}

	_ = srv.Stop()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
