package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	sdk "github.com/matrixorigin/moi-go-sdk"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	MOI      MOIConfig      `yaml:"moi"`
	Database DatabaseConfig `yaml:"database"`
	Email    EmailConfig    `yaml:"email"`
	Security SecurityConfig `yaml:"security"`
	Redis    RedisConfig    `yaml:"redis"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port         int   `yaml:"port"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// MOIConfig enables the analytics mirror when APIKey is set.
type MOIConfig struct {
	BaseURL       string `yaml:"base_url"`
	APIKey        string `yaml:"api_key"`
	CatalogID     int64  `yaml:"catalog_id"`
	DatabaseID    int64  `yaml:"database_id"`
	TasksTableID  int64  `yaml:"tasks_table_id"`
	ReportTableID int64  `yaml:"reports_table_id"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	// LeastLoadedProcedure names the stored procedure used for
	// auto-assignment. Empty runs the ranking query inline.
	LeastLoadedProcedure string `yaml:"least_loaded_procedure"`
	AutoMigrate          bool   `yaml:"auto_migrate"`
}

type EmailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"pass"`
	From     string `yaml:"from"`
}

type SecurityConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	RequireAuth bool          `yaml:"require_auth"`
}

type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	ResendCooldown time.Duration `yaml:"resend_cooldown"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 5000, MaxBodyBytes: 10 << 20},
		MOI:      MOIConfig{BaseURL: "https://freetier-01.cn-hangzhou.cluster.cn-dev.matrixone.tech"},
		Log:      LogConfig{Level: "info", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{Host: "127.0.0.1", Port: 3306, Name: "smart_check", LeastLoadedProcedure: "get_user_with_least_tasks"},
		Email:    EmailConfig{SMTPHost: "smtp.gmail.com", SMTPPort: 587},
		Security: SecurityConfig{JWTSecret: "smart-check-secret", TokenTTL: 7 * 24 * time.Hour},
		Redis:    RedisConfig{ResendCooldown: time.Minute},
	}
}

// Load reads .env, then the first YAML file found, then the environment.
func Load(configFile string) *Config {
	_ = godotenv.Load()

	c := Default()
	paths := []string{"etc/config-dev.yaml", "/etc/smart-check/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	envOverride(&c.MOI.BaseURL, "MOI_BASE_URL")
	envOverride(&c.MOI.APIKey, "MOI_API_KEY")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Database.LeastLoadedProcedure, "DB_LEAST_LOADED_PROCEDURE")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverride(&c.Redis.Addr, "REDIS_ADDR")
	envOverride(&c.Email.SMTPHost, "SMTP_HOST")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")
	envOverrideInt(&c.Email.SMTPPort, "SMTP_PORT")
	envOverrideBool(&c.Database.AutoMigrate, "DB_AUTO_MIGRATE")
	envOverrideBool(&c.Security.RequireAuth, "REQUIRE_AUTH")
	bindSecrets(c)

	return c
}

// bindSecrets resolves credentials that must never live in the YAML file.
func bindSecrets(c *Config) {
	v := viper.New()
	_ = v.BindEnv("email.user", "EMAIL_USER")
	_ = v.BindEnv("email.pass", "EMAIL_PASS")
	_ = v.BindEnv("security.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")

	setIf(&c.Email.User, v.GetString("email.user"))
	setIf(&c.Email.Pass, v.GetString("email.pass"))
	setIf(&c.Security.JWTSecret, v.GetString("security.jwt_secret"))
	setIf(&c.Database.Password, v.GetString("database.password"))
	setIf(&c.Redis.Password, v.GetString("redis.password"))
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	cfg := gomysql.NewConfig()
	cfg.User = c.Database.User
	cfg.Passwd = c.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
	cfg.DBName = c.Database.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

// NewRawClient returns nil when no MOI key is configured.
func (c *Config) NewRawClient() (*sdk.RawClient, error) {
	if c.MOI.APIKey == "" {
		return nil, nil
	}
	return sdk.NewRawClient(c.MOI.BaseURL, c.MOI.APIKey)
}

// NewRedis returns nil when no address is configured.
func (c *Config) NewRedis() *redis.Client {
	if c.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	})
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envOverride(dst *string, key string) {
	setIf(dst, os.Getenv(key))
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
