package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jengzang/fog-backend-go/internal/config"
	"github.com/jengzang/fog-backend-go/internal/database"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/notify"
	"github.com/jengzang/fog-backend-go/internal/region"
	"github.com/jengzang/fog-backend-go/internal/store"
	"github.com/jengzang/fog-backend-go/internal/tessellation"
)

// catalogFile 区域元数据文件，位于资源目录中
const catalogFile = "regions.json"

// app 组装好的存储及其依赖
type app struct {
	db    *sql.DB
	hub   *notify.Hub
	redis *notify.RedisPublisher
	store *store.Store
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	resources := os.DirFS(cfg.ResourcesDir)
	cache, err := tessellation.NewCache(tessellation.CachePolicy{
		SizeLimit:  cfg.CacheSizeLimit,
		CountLimit: cfg.CacheCountLimit,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	tess, err := tessellation.New(resources, tessellation.WithCache(cache))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load tessellation from %s: %w", cfg.ResourcesDir, err)
	}
	catalog, err := region.LoadCatalog(resources, catalogFile)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.S().Infof("[App] loaded %d regions from %s", catalog.Len(), cfg.ResourcesDir)

	a := &app{db: db}

	// 变更通知：进程内订阅者，以及可选的 redis 频道
	var publishers []notify.Publisher
	if client := notify.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.S().Warnf("[App] redis %s unreachable: %v", cfg.RedisAddr, err)
		}
		a.redis = notify.NewRedisPublisher(client, cfg.RedisChannel)
		publishers = append(publishers, a.redis)
	}
	a.hub = notify.NewHub(publishers...)

	a.store = store.New(db, tess,
		store.WithWorkers(cfg.Workers),
		store.WithCatalog(catalog),
		store.WithPublisher(a.hub),
	)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if err := a.db.Close(); err != nil {
		logger.S().Warnf("[App] failed to close database: %v", err)
	}
}
