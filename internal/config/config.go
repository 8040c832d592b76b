package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	UploadDir         string         `json:"upload_dir"`
	JWTSecret         string         `json:"jwt_secret"`
	Redis             RedisConfig    `json:"redis"`
	Postgres          PostgresConfig `json:"postgres"`
	Port              string         `json:"port"`
	MaxFetchSize      int64          `json:"max_fetch_size"`
	FetchTimeout      int            `json:"fetch_timeout"`       // 秒
	ReconcileInterval int            `json:"reconcile_interval"`  // 秒
	RateLimit         struct {
		Requests int `json:"requests"`
		Duration int `json:"duration"`
	} `json:"rate_limit"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// DSN 组装 pgx 连接串
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// MigrateURL golang-migrate 使用 pgx5 scheme
func (p PostgresConfig) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Load 读取 JSON 配置文件，再用 .env 覆盖敏感项
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file, using config values")
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}

	return &cfg, nil
}
