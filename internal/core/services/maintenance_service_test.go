package services

import (
	"context"
	"testing"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneLoginHistorySweepsEveryShard(t *testing.T) {
	data := newFakeData()
	history := &fakeHistoryRepo{d: data}
	svc := NewMaintenanceService(history, []string{"california", "new york"}, 90)

	now := time.Now()
	seed := func(region string, age time.Duration) {
		entry := &models.LoginHistory{
			Email:     "someone@example.com",
			Success:   true,
			Timestamp: now.Add(-age),
		}
		require.NoError(t, history.Create(context.Background(), region, entry))
	}

	seed("california", 91*24*time.Hour)
	seed("california", time.Hour)
	seed("new york", 120*24*time.Hour)
	seed("new york", 24*time.Hour)

	svc.pruneLoginHistory()

	assert.Len(t, data.historyFor("california"), 1)
	assert.Len(t, data.historyFor("new york"), 1)
	assert.Equal(t, now.Add(-time.Hour), data.historyFor("california")[0].Timestamp)
}
