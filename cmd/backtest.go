package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"crypto-backtest/internal/dto"
	"crypto-backtest/internal/repository"
	"crypto-backtest/internal/service"
)

var backtestFlags struct {
	symbols        []string
	interval       string
	strategy       string
	start          string
	end            string
	initialBalance float64
	positionSize   float64
	takeProfit     float64
	stopLoss       float64
	maxDrawdown    float64
	maxPositions   int
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a one-shot backtest and print the result as JSON",
	Run:   RunBacktestCLI,
}

func init() {
	flags := backtestCmd.Flags()
	flags.StringSliceVar(&backtestFlags.symbols, "symbol", nil, "symbol to backtest, repeatable (e.g. BTCUSDT)")
	flags.StringVar(&backtestFlags.interval, "interval", "1h", "candle interval (1m..1M)")
	flags.StringVar(&backtestFlags.strategy, "strategy", "RSI", "strategy type: RSI, MACD or CUSTOM")
	flags.StringVar(&backtestFlags.start, "start", "", "start date (YYYY-MM-DD)")
	flags.StringVar(&backtestFlags.end, "end", "", "end date (YYYY-MM-DD)")
	flags.Float64Var(&backtestFlags.initialBalance, "balance", 10000, "initial balance in USD")
	flags.Float64Var(&backtestFlags.positionSize, "position-size", 1000, "position size in USD")
	flags.Float64Var(&backtestFlags.takeProfit, "take-profit", 5, "take profit percent")
	flags.Float64Var(&backtestFlags.stopLoss, "stop-loss", 2, "stop loss percent")
	flags.Float64Var(&backtestFlags.maxDrawdown, "max-drawdown", 20, "max drawdown percent before new entries halt")
	flags.IntVar(&backtestFlags.maxPositions, "max-positions", 1, "max concurrently open positions")
}

func RunBacktestCLI(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer appDep.Close()

	req, err := buildBacktestRequest()
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	repo := repository.NewRepository(appDep.cfg, appDep.log)
	services := service.NewService(appDep.cfg, appDep.log, repo, appDep.cache)

	var output interface{}
	if len(backtestFlags.symbols) == 1 {
		req.StrategyParams.Symbol = backtestFlags.symbols[0]
		output, err = services.BacktestService.RunBacktest(ctx, req)
	} else {
		output, err = services.BacktestService.RunBatchBacktest(ctx, req, backtestFlags.symbols)
	}
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func buildBacktestRequest() (dto.BacktestRequest, error) {
	var req dto.BacktestRequest

	if len(backtestFlags.symbols) == 0 {
		return req, fmt.Errorf("at least one --symbol is required")
	}

	startDate, err := parseDate(backtestFlags.start)
	if err != nil {
		return req, fmt.Errorf("invalid --start: %w", err)
	}
	endDate, err := parseDate(backtestFlags.end)
	if err != nil {
		return req, fmt.Errorf("invalid --end: %w", err)
	}
	if !startDate.Before(endDate) {
		return req, fmt.Errorf("--start must be before --end")
	}

	req = dto.BacktestRequest{
		StrategyType: dto.StrategyType(backtestFlags.strategy),
		StrategyParams: dto.StrategyParams{
			Interval: backtestFlags.interval,
			RiskParams: dto.RiskParamsRequest{
				PositionSizeUsd:    backtestFlags.positionSize,
				TakeProfitPercent:  backtestFlags.takeProfit,
				StopLossPercent:    backtestFlags.stopLoss,
				MaxDrawdownPercent: backtestFlags.maxDrawdown,
				MaxPositions:       backtestFlags.maxPositions,
			},
		},
		StartDate:      startDate,
		EndDate:        endDate,
		InitialBalance: backtestFlags.initialBalance,
	}
	return req, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
