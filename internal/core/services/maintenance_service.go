package services

import (
	"context"
	"log"
	"time"

	"instanteats-auth/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
)

// MaintenanceService runs scheduled housekeeping: pruning login history rows
// past the retention window on every shard. Refresh token records are NOT
// pruned; revoked sessions stay for audit.
type MaintenanceService struct {
	history       repositories.LoginHistoryRepository
	shardRegions  []string
	retentionDays int
	cron          *cron.Cron
}

// NewMaintenanceService creates a new maintenance service. shardRegions holds
// one representative region per shard so each partition is swept once.
func NewMaintenanceService(history repositories.LoginHistoryRepository, shardRegions []string, retentionDays int) *MaintenanceService {
	return &MaintenanceService{
		history:       history,
		shardRegions:  shardRegions,
		retentionDays: retentionDays,
		cron:          cron.New(),
	}
}

// Start schedules the daily pruning job (03:00)
func (s *MaintenanceService) Start() {
	if _, err := s.cron.AddFunc("0 3 * * *", s.pruneLoginHistory); err != nil {
		log.Printf("❌ Failed to schedule login history pruning: %v", err)
		return
	}
	s.cron.Start()
	log.Printf("🚀 MaintenanceService started [retention: %d days]", s.retentionDays)
}

// Stop stops the scheduler
func (s *MaintenanceService) Stop() {
	s.cron.Stop()
	log.Println("🛑 MaintenanceService stopped")
}

func (s *MaintenanceService) pruneLoginHistory() {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	for _, region := range s.shardRegions {
		ctx, cancel := withStoreTimeout(context.Background())
		deleted, err := s.history.DeleteOlderThan(ctx, region, cutoff)
		cancel()
		if err != nil {
			log.Printf("❌ Login history pruning failed for region %s: %v", region, err)
			continue
		}
		if deleted > 0 {
			log.Printf("✅ Pruned %d login history entries [region: %s]", deleted, region)
		}
	}
}
