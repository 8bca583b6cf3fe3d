package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "crypto-backtest",
	Short: "Backtest crypto trading strategies over historical candles",
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(backtestCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
