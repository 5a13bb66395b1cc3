package repositories

import (
	"log"
	"strings"

	"instanteats-auth/internal/config"

	"gorm.io/gorm"
)

// PartitionResolver maps a user's region to the database partition holding
// their rows. This package only consumes the mapping; partition-selection
// policy lives in configuration.
type PartitionResolver interface {
	Resolve(region string) *gorm.DB
}

type resolverShard struct {
	id      string
	regions []string
	db      *gorm.DB
}

type shardResolver struct {
	shards   []resolverShard
	fallback resolverShard
}

// NewPartitionResolver builds a resolver from shard specs and their open
// connections. The first shard is the fallback for unknown regions.
func NewPartitionResolver(specs []config.ShardSpec, dbs map[string]*gorm.DB) PartitionResolver {
	r := &shardResolver{}
	for _, spec := range specs {
		db, ok := dbs[spec.ID]
		if !ok {
			continue
		}
		regions := make([]string, 0, len(spec.Regions))
		for _, region := range spec.Regions {
			regions = append(regions, strings.ToLower(strings.TrimSpace(region)))
		}
		r.shards = append(r.shards, resolverShard{id: spec.ID, regions: regions, db: db})
	}
	if len(r.shards) > 0 {
		r.fallback = r.shards[0]
	}
	return r
}

// Resolve returns the partition for a region (case-insensitive). Unknown
// regions fall back to the first shard, matching the platform's routing table.
func (r *shardResolver) Resolve(region string) *gorm.DB {
	normalized := strings.ToLower(strings.TrimSpace(region))

	for _, shard := range r.shards {
		for _, candidate := range shard.regions {
			if candidate == normalized || strings.Contains(normalized, candidate) {
				return shard.db
			}
		}
	}

	log.Printf("⚠️ No shard found for region %q, defaulting to %s", region, r.fallback.id)
	return r.fallback.db
}
