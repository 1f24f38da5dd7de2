package config

import (
	"runtime"
	"strings"

	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 FOG_PORT
const EnvPrefix = "FOG"

// 配置键，同时作为命令行参数名
const (
	KeyPort              = "port"
	KeyDBPath            = "db_path"
	KeyResourcesDir      = "resources_dir"
	KeyJWTSecret         = "jwt_secret"
	KeyCacheSizeLimit    = "cache_size_limit"
	KeyCacheCountLimit   = "cache_count_limit"
	KeyWorkers           = "workers"
	KeyCoverSlack        = "cover_slack"
	KeyDistanceThreshold = "distance_threshold"
	KeyRedisAddr         = "redis_addr"
	KeyRedisPassword     = "redis_password"
	KeyRedisDB           = "redis_db"
	KeyRedisChannel      = "redis_channel"
	KeyRateLimit         = "rate_limit"
	KeyMaxUploadSize     = "max_upload_size"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
)

// Config 应用配置
type Config struct {
	Port         string
	DBPath       string
	ResourcesDir string // 区域覆盖资源目录
	JWTSecret    string

	// 区域覆盖缓存上限，0 表示不限制
	CacheSizeLimit  int64
	CacheCountLimit int

	Workers           int     // 并行处理的实例单元数
	CoverSlack        int     // 覆盖计算的层级容差
	DistanceThreshold float64 // 轨迹点连接的最大距离（米）

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	RateLimit     int   // 每分钟导入请求上限
	MaxUploadSize int64 // 最大上传文件大小（字节）

	Log logger.Config
}

// SetDefaults 设置默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, ":8080")
	v.SetDefault(KeyDBPath, "./data/fog.db")
	v.SetDefault(KeyResourcesDir, "./resources")
	v.SetDefault(KeyJWTSecret, "your-secret-key-change-in-production")
	v.SetDefault(KeyCacheSizeLimit, 10*1024*1024)
	v.SetDefault(KeyCacheCountLimit, 0)
	v.SetDefault(KeyWorkers, runtime.GOMAXPROCS(0))
	v.SetDefault(KeyCoverSlack, 1)
	v.SetDefault(KeyDistanceThreshold, 100.0)
	v.SetDefault(KeyRedisChannel, "fog:changes")
	v.SetDefault(KeyRateLimit, 10)
	v.SetDefault(KeyMaxUploadSize, 1024*1024*800) // 800MB
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load 加载配置：.env 文件、环境变量 FOG_*、以及绑定到 v 的命令行参数
func Load(v *viper.Viper) *Config {
	_ = godotenv.Load(".env")

	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	return &Config{
		Port:              v.GetString(KeyPort),
		DBPath:            v.GetString(KeyDBPath),
		ResourcesDir:      v.GetString(KeyResourcesDir),
		JWTSecret:         v.GetString(KeyJWTSecret),
		CacheSizeLimit:    v.GetInt64(KeyCacheSizeLimit),
		CacheCountLimit:   v.GetInt(KeyCacheCountLimit),
		Workers:           v.GetInt(KeyWorkers),
		CoverSlack:        v.GetInt(KeyCoverSlack),
		DistanceThreshold: v.GetFloat64(KeyDistanceThreshold),
		RedisAddr:         v.GetString(KeyRedisAddr),
		RedisPassword:     v.GetString(KeyRedisPassword),
		RedisDB:           v.GetInt(KeyRedisDB),
		RedisChannel:      v.GetString(KeyRedisChannel),
		RateLimit:         v.GetInt(KeyRateLimit),
		MaxUploadSize:     v.GetInt64(KeyMaxUploadSize),
		Log: logger.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}
}
