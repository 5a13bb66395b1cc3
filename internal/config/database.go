package config

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectShards establishes one pooled MySQL connection per shard, keyed by
// shard ID. Every shard carries the full auth schema; a user's rows live only
// on the shard serving their region.
func ConnectShards(cfg *Config) (map[string]*gorm.DB, error) {
	var gormLogger logger.Interface
	if cfg.IsDev() {
		gormLogger = logger.Default.LogMode(logger.Info)
	} else {
		gormLogger = logger.Default.LogMode(logger.Error)
	}

	shards := make(map[string]*gorm.DB, len(cfg.Shards))
	for _, spec := range cfg.Shards {
		db, err := gorm.Open(mysql.Open(spec.DSN), &gorm.Config{
			Logger:                 gormLogger,
			SkipDefaultTransaction: true, // Better performance
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to shard %s: %w", spec.ID, err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB for shard %s: %w", spec.ID, err)
		}

		// Connection pool settings, scoped per shard
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping shard %s: %w", spec.ID, err)
		}

		shards[spec.ID] = db
		log.Printf("✅ Shard connected [%s: %s]", spec.ID, spec.Name)
	}

	return shards, nil
}

// CloseShards closes every shard connection
func CloseShards(shards map[string]*gorm.DB) {
	for id, db := range shards {
		sqlDB, err := db.DB()
		if err != nil {
			continue
		}
		if err := sqlDB.Close(); err != nil {
			log.Printf("❌ Error closing shard %s: %v", id, err)
		}
	}
}

// HealthCheck pings every shard and reports the first failure
func HealthCheck(shards map[string]*gorm.DB) error {
	for id, db := range shards {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("shard %s: %w", id, err)
		}
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("shard %s: %w", id, err)
		}
	}
	return nil
}
