package repository

import (
	"crypto-backtest/config"
	"crypto-backtest/pkg/logger"
)

// Repository aggregates the data-provider collaborators.
type Repository struct {
	CandleRepo CandleRepository
}

func NewRepository(cfg *config.Config, log *logger.Logger) *Repository {
	return &Repository{
		CandleRepo: NewBinanceCandleRepository(cfg, log),
	}
}
