package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const (
	driverName = "mysql"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type AuthConfig struct {
	Secret        string `yaml:"secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// 貸出規則と延滞料金の料率。ゼロ値は LoadConfig でデフォルトに置換される
type LibraryConfig struct {
	LoanPeriodDays int       `yaml:"loan_period_days"`
	BorrowLimit    int       `yaml:"borrow_limit"`
	Fee            FeeConfig `yaml:"fee"`
}

type FeeConfig struct {
	FirstWeekRate float64 `yaml:"first_week_rate"` // $/day, overdue days 1..7
	AfterRate     float64 `yaml:"after_rate"`      // $/day, day 8 onward
	Cap           float64 `yaml:"cap"`             // max per loan
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Addr        string         `yaml:"addr"`
	DB          DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Library     LibraryConfig  `yaml:"library"`
	Certificate Certs          `yaml:"certificate"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}

	// 未指定項目はデフォルト値で埋める
	if cfg.Addr == "" {
		cfg.Addr = ":8443"
	}
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Library.LoanPeriodDays <= 0 {
		cfg.Library.LoanPeriodDays = 14
	}
	if cfg.Library.BorrowLimit <= 0 {
		cfg.Library.BorrowLimit = 5
	}
	if cfg.Library.Fee.FirstWeekRate <= 0 {
		cfg.Library.Fee.FirstWeekRate = 0.50
	}
	if cfg.Library.Fee.AfterRate <= 0 {
		cfg.Library.Fee.AfterRate = 1.00
	}
	if cfg.Library.Fee.Cap <= 0 {
		cfg.Library.Fee.Cap = 15.00
	}
	return &cfg, nil
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
