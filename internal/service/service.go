package service

import (
	"crypto-backtest/config"
	"crypto-backtest/internal/repository"
	"crypto-backtest/pkg/cache"
	"crypto-backtest/pkg/logger"
)

// Service aggregates the application services.
type Service struct {
	BacktestService BacktestService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	cache cache.Cache,
) *Service {
	return &Service{
		BacktestService: NewBacktestService(cfg, log, repo.CandleRepo, cache),
	}
}
