package journal

import (
	"fmt"

	"github.com/rustyeddy/straddle/config"
)

// Open returns the store selected by cfg.Type.
func Open(cfg config.JournalConfig) (Store, error) {
	switch cfg.Type {
	case "", "csv":
		return NewCSV(cfg.Path)
	case "sqlite":
		return NewSQLite(cfg.DBPath)
	case "redis":
		return NewRedis(RedisConfig{Addr: cfg.RedisAddr, Key: cfg.RedisKey})
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

// OpenReadOnly returns the store selected by cfg.Type for queries. File
// backed logs must already exist.
func OpenReadOnly(cfg config.JournalConfig) (Store, error) {
	switch cfg.Type {
	case "", "csv":
		return OpenCSVReadOnly(cfg.Path)
	case "sqlite":
		return OpenSQLiteReadOnly(cfg.DBPath)
	case "redis":
		return NewRedis(RedisConfig{Addr: cfg.RedisAddr, Key: cfg.RedisKey})
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}
