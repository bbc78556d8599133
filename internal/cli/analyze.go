package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"stocksignal/internal/analysis/indicators"
	"stocksignal/internal/analysis/technical"
	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
	"stocksignal/internal/pipeline"
	"stocksignal/internal/report"
	"stocksignal/internal/security"
	"stocksignal/pkg/utils"
)

func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newSendCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		timeframe string
		noCache   bool
		send      bool
		phone     string
	)

	cmd := &cobra.Command{
		Use:   "analyze TICKER",
		Short: "Run the full report pipeline for a ticker",
		Example: `  stocksignal analyze BBCA
  stocksignal analyze GOTO --timeframe weekly --no-cache
  stocksignal analyze TLKM --send --phone 628123456789`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			if err := app.ensure(ctx); err != nil {
				return err
			}

			var progress pipeline.ProgressFunc
			if !output.IsJSON() {
				progress = func(p float64, msg string) {
					output.Dim("[%3.0f%%] %s", p*100, msg)
				}
			}

			rep, err := app.Analyzer.RunAnalysis(ctx, args[0], pipeline.Options{
				Timeframe: models.ParseTimeframe(timeframe),
				NoCache:   noCache,
			}, progress)
			if err != nil {
				output.Error("Analysis failed: %s", security.MaskSensitive(err.Error()))
				return err
			}

			var sendErr error
			if send {
				sendErr = app.Analyzer.SendReport(ctx, rep, phone)
			}

			if output.IsJSON() {
				result := map[string]interface{}{"report": rep, "sent": send && sendErr == nil}
				if sendErr != nil {
					result["send_error"] = security.MaskSensitive(sendErr.Error())
				}
				if err := output.JSON(result); err != nil {
					return err
				}
				return sendErr
			}

			printReport(output, rep)
			if send {
				if sendErr != nil {
					output.Error("WhatsApp delivery failed: %s", security.MaskSensitive(sendErr.Error()))
					return sendErr
				}
				output.Success("✓ Report sent")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "daily", "bar interval: daily, weekly or monthly")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore a cached report and recompute")
	cmd.Flags().BoolVar(&send, "send", false, "send the report to WhatsApp when done")
	cmd.Flags().StringVarP(&phone, "phone", "p", "", "recipient number or group id (default: whatsapp.default_phone)")

	return cmd
}

func printReport(output *Output, rep *models.Report) {
	output.Println()
	if rep.FromCache {
		output.Info("⚡ Served from cache (%s)", rep.CreatedAt.Format("2006-01-02 15:04"))
	}
	output.Printf("%s  %s\n", report.Headline(rep), output.Verdict(report.VerdictLabel(rep)))
	output.Println()
	output.Println(report.FormatTerminal(rep))
	if rep.ChartPath != "" {
		output.Dim("Chart: %s", rep.ChartPath)
	}
	output.Printf("IDX session: %s\n", output.MarketStatus(utils.GetMarketStatus(time.Now())))
}

func newSendCmd(app *App) *cobra.Command {
	var phone string

	cmd := &cobra.Command{
		Use:   "send TICKER",
		Short: "Send the latest stored report for a ticker to WhatsApp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			if err := app.ensure(ctx); err != nil {
				return err
			}

			rep, err := app.Analyzer.Report(ctx, args[0])
			if err != nil {
				if apperrors.Is(err, apperrors.ErrCacheMiss) || apperrors.Is(err, apperrors.ErrNotFound) {
					output.Warning("No stored report for %s. Run 'stocksignal analyze %s' first.", args[0], args[0])
				}
				return err
			}
			if err := app.Analyzer.SendReport(ctx, rep, phone); err != nil {
				output.Error("WhatsApp delivery failed: %s", security.MaskSensitive(err.Error()))
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"ticker": rep.Ticker, "sent": true})
			}
			output.Success("✓ %s report sent", rep.Ticker)
			return nil
		},
	}

	cmd.Flags().StringVarP(&phone, "phone", "p", "", "recipient number or group id (default: whatsapp.default_phone)")
	return cmd
}

// ExportRow is one bar with its indicator readings.
type ExportRow struct {
	Date       string `csv:"date" json:"date"`
	Open       string `csv:"open" json:"open"`
	High       string `csv:"high" json:"high"`
	Low        string `csv:"low" json:"low"`
	Close      string `csv:"close" json:"close"`
	Volume     int64  `csv:"volume" json:"volume"`
	EMA20      string `csv:"ema_20" json:"ema_20"`
	EMA50      string `csv:"ema_50" json:"ema_50"`
	RSI        string `csv:"rsi_14" json:"rsi_14"`
	MACD       string `csv:"macd" json:"macd"`
	MACDSignal string `csv:"macd_signal" json:"macd_signal"`
	ATR        string `csv:"atr_14" json:"atr_14"`
	BBUpper    string `csv:"bb_upper" json:"bb_upper"`
	BBLower    string `csv:"bb_lower" json:"bb_lower"`
	MFI        string `csv:"mfi_14" json:"mfi_14"`
}

// ExportRows joins candles with the indicator series. Warm-up bars, which
// the indicator library fills with zeros, are left empty.
func ExportRows(candles []models.Candle, set *indicators.Set) []ExportRow {
	rows := make([]ExportRow, len(candles))
	at := func(key string, i int) string {
		if set == nil || !set.Has(key) {
			return ""
		}
		v := set.At(key, i)
		if v == 0 {
			return ""
		}
		return formatNum(v)
	}
	for i, c := range candles {
		rows[i] = ExportRow{
			Date:       c.Timestamp.Format("2006-01-02"),
			Open:       formatNum(c.Open),
			High:       formatNum(c.High),
			Low:        formatNum(c.Low),
			Close:      formatNum(c.Close),
			Volume:     c.Volume,
			EMA20:      at(indicators.KeyEMA20, i),
			EMA50:      at(indicators.KeyEMA50, i),
			RSI:        at(indicators.KeyRSI, i),
			MACD:       at(indicators.KeyMACD, i),
			MACDSignal: at(indicators.KeyMACDSignal, i),
			ATR:        at(indicators.KeyATR, i),
			BBUpper:    at(indicators.KeyBBUpper, i),
			BBLower:    at(indicators.KeyBBLower, i),
			MFI:        at(indicators.KeyMFI, i),
		}
	}
	return rows
}

func formatNum(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func newExportCmd(app *App) *cobra.Command {
	var (
		timeframe string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "export TICKER",
		Short: "Export prices and indicators as CSV",
		Example: `  stocksignal export BBCA > bbca.csv
  stocksignal export ANTM --timeframe weekly --out antm.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			ticker, err := security.ValidateTicker(args[0])
			if err != nil {
				return err
			}
			if err := app.ensure(ctx); err != nil {
				return err
			}

			tf := models.ParseTimeframe(timeframe)
			data, err := app.Market.Fetch(ctx, ticker, tf)
			if err != nil {
				return err
			}
			tech := app.Technical
			if tech == nil {
				tech = technical.NewAnalyzer(nil, 0)
			}
			_, set, err := tech.Analyze(ctx, technical.Input{
				Ticker:    data.Symbol,
				Timeframe: tf,
				Candles:   data.Candles,
				Valuation: data.Valuation,
			})
			if err != nil {
				return err
			}
			rows := ExportRows(data.Candles, set)

			if output.IsJSON() {
				return output.JSON(rows)
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outPath, err)
				}
				defer f.Close()
				w = f
			}
			if err := gocsv.Marshal(&rows, w); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
			if outPath != "" {
				output.Success("✓ %d rows written to %s", len(rows), outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&timeframe, "timeframe", "t", "daily", "bar interval: daily, weekly or monthly")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a file instead of stdout")
	return cmd
}
