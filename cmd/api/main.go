package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srgjo27/fair_ticket/internal/platform/config"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "fairticket",
	Short:         "Fair ticket sale controller: admission queue, lottery and live tracks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	rootCmd.AddCommand(serveCmd, migrateCmd, initPoolCmd)
}

func loadConfig() (config.Config, error) {
	return config.Load(envFile)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fairticket:", err)
		os.Exit(1)
	}
}
