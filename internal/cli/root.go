// Package cli provides the command-line interface for the report generator.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stocksignal/internal/config"
	"stocksignal/internal/logging"
	"stocksignal/internal/security"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-01"
)

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Config: cfg, Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stocksignal",
		Short: "IDX stock reports with an AI council, delivered to WhatsApp",
		Long: `StockSignal analyses Indonesia Stock Exchange tickers.

It fetches prices and fundamentals, computes indicators, reads broker and
foreign flow, gathers news, asks a council of AI analysts for their view and
renders a WhatsApp ready report with a chart.

Use 'stocksignal help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dir, _ := cmd.Flags().GetString("config"); dir != "" && !app.ready && dir != app.Config.Dir {
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = cfg
			}
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.Close()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/stocksignal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addAnalysisCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	rootCmd.AddCommand(newWhatsAppCmd(app))
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("StockSignal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			masked := maskedConfig(app.Config)
			if output.IsJSON() {
				return output.JSON(masked)
			}
			showConfig(output, masked)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": app.Config.Dir})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			if !app.Config.HasLLM() {
				output.Warning("GOOGLE_API_KEY is empty; the council will use rule based opinions")
			}
			return nil
		},
	})

	return cmd
}

// maskedConfig returns a copy safe to print.
func maskedConfig(cfg *config.Config) config.Config {
	c := *cfg
	c.Credentials.Google.APIKey = security.MaskCredential(c.Credentials.Google.APIKey)
	c.Credentials.Serper.APIKey = security.MaskCredential(c.Credentials.Serper.APIKey)
	c.Credentials.GoAPI.APIKey = security.MaskCredential(c.Credentials.GoAPI.APIKey)
	return c
}

func showConfig(output *Output, cfg config.Config) {
	output.Bold("Analysis")
	output.Printf("  Timeframe:       %s\n", cfg.Analysis.Timeframe)
	output.Printf("  Cache:           %d min\n", cfg.Analysis.CacheMinutes)
	output.Printf("  Chart Dir:       %s (%d bars)\n", cfg.Analysis.ChartDir, cfg.Analysis.ChartBars)
	output.Printf("  Risk Method:     %s\n", cfg.Analysis.RiskMethod)
	output.Printf("  USD/IDR:         %.0f\n", cfg.Analysis.USDIDRRate)
	output.Println()

	output.Bold("LLM")
	output.Printf("  Model:           %s\n", cfg.LLM.Model)
	output.Printf("  Timeout:         %s\n", cfg.LLM.Timeout)
	output.Println()

	output.Bold("WhatsApp")
	output.Printf("  Bridge:          %s\n", cfg.WhatsApp.ServiceURL)
	output.Printf("  Default Phone:   %s\n", cfg.WhatsApp.DefaultPhone)
	output.Printf("  Delete Chart:    %v\n", cfg.WhatsApp.DeleteChartAfter)
	output.Println()

	output.Bold("Cache")
	output.Printf("  Backend:         %s\n", cfg.Cache.Backend)
	if cfg.Cache.Backend == "redis" {
		output.Printf("  Redis:           %s/%d\n", cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	} else {
		output.Printf("  Database:        %s\n", cfg.Cache.DBPath)
	}
	output.Println()

	output.Bold("Credentials")
	output.Printf("  Google:          %s\n", cfg.Credentials.Google.APIKey)
	output.Printf("  Serper:          %s\n", cfg.Credentials.Serper.APIKey)
	output.Printf("  GoAPI:           %s\n", cfg.Credentials.GoAPI.APIKey)
}
