package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/snippet-vault/internal/model"
	"github.com/sakif/snippet-vault/internal/repository"
)

// StatsService serves the dashboard analytics. All the aggregation happens in
// the store; this layer just fronts it with logging.
type StatsService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewStatsService(store repository.Store, logger *slog.Logger) *StatsService {
	return &StatsService{store: store, logger: logger}
}

func (s *StatsService) Stats(ctx context.Context) (*model.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Error("failed to gather stats", slog.String("error", err.Error()))
		return nil, fmt.Errorf("gathering stats: %w", err)
	}
	return stats, nil
}
