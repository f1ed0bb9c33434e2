package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

// SetDB swaps the global connection. Tests use this with an in-memory database.
func SetDB(conn *gorm.DB) {
	db = conn
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT open the database in init(); main() connects after the HTTP
	// server is listening so startup never blocks on storage.
}

// ResolveDBPath returns the sqlite file path. BUS_DB_PATH wins; otherwise the
// database lives under the per-user data directory.
func ResolveDBPath() string {
	if p := strings.TrimSpace(os.Getenv("BUS_DB_PATH")); p != "" {
		return p
	}
	root := os.Getenv("LOCALAPPDATA")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "bus_core.db"
		}
		root = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(root, "BUSCore", "app", "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "bus_core.db"
	}
	return filepath.Join(dir, "bus_core.db")
}

// ConnectDatabaseWithRetry connects and sets the global DB.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry() {
	path := ResolveDBPath()

	// busy_timeout keeps concurrent write transactions queued instead of
	// failing immediately; WAL lets ledger reads proceed alongside a writer.
	dsn := path + "?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL"

	var attempt int
	for {
		attempt++
		var err error
		db, err = gorm.Open(sqlite.Open(dsn), initConfig())
		if err == nil {
			// sqlite serializes writers; keep the pool small so write
			// transactions line up instead of thrashing on SQLITE_BUSY.
			if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
				maxOpen := intFromEnv("DB_MAX_OPEN_CONNS", 4)
				maxIdle := intFromEnv("DB_MAX_IDLE_CONNS", 2)
				connMaxLife := time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second

				if maxOpen > 0 {
					sqlDB.SetMaxOpenConns(maxOpen)
				}
				if maxIdle >= 0 {
					sqlDB.SetMaxIdleConns(maxIdle)
				}
				if connMaxLife > 0 {
					sqlDB.SetConnMaxLifetime(connMaxLife)
				}
			}
			log.Printf("connected to database at %s (attempt=%d)", path, attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
	return newLogger
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
