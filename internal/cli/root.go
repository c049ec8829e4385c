package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finbrief/internal/app"
	"finbrief/internal/config"
	"finbrief/internal/logging"
	"finbrief/internal/service"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "finbrief",
	Short: "Generate and deliver a weekly financial newsletter",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
}

// Execute runs the root command. Run failures carry a classified kind that
// maps to a distinct exit status: 2 generation, 3 persistence, 4 delivery,
// 5 subscriber resolution. Everything else exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var failure *service.Failure
	if !errors.As(err, &failure) {
		return 1
	}
	switch failure.Kind {
	case service.FailGenerate:
		return 2
	case service.FailPersist:
		return 3
	case service.FailDeliver:
		return 4
	case service.FailSubscribers:
		return 5
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deactivateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
