package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
	"stocksignal/internal/security"
	"stocksignal/pkg/utils"
)

func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newFavoritesCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newPortfolioCmd(app))
}

func newFavoritesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite tickers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add TICKER",
		Short: "Add a ticker to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, err := security.ValidateTicker(args[0])
			if err != nil {
				return err
			}
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.AddFavorite(cmd.Context(), ticker); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"ticker": ticker, "status": "added"})
			}
			output.Success("★ %s added to favorites", ticker)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm TICKER",
		Aliases: []string{"remove"},
		Short:   "Remove a ticker from favorites",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker := security.SanitizeTicker(args[0])
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			if err := app.Store.RemoveFavorite(cmd.Context(), ticker); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"ticker": ticker, "status": "removed"})
			}
			output.Success("☆ %s removed from favorites", ticker)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List favorite tickers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			favs, err := app.Store.ListFavorites(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"favorites": favs})
			}
			if len(favs) == 0 {
				output.Dim("No favorites yet. Add one with 'stocksignal favorites add BBCA'.")
				return nil
			}
			for _, t := range favs {
				output.Printf("★ %s\n", t)
			}
			return nil
		},
	})

	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently analysed tickers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if limit < 1 || limit > 100 {
				return apperrors.NewValidationError("limit", limit, "must be between 1 and 100")
			}
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			history, err := app.Store.ListHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"history": history})
			}
			if len(history) == 0 {
				output.Dim("No searches yet.")
				return nil
			}
			for i, t := range history {
				output.Printf("%2d. %s\n", i+1, t)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of tickers to show (1-100)")
	return cmd
}

func newPortfolioCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf"},
		Short:   "Track holdings and their profit or loss",
	}

	var (
		avgPrice float64
		lots     int
	)
	addCmd := &cobra.Command{
		Use:     "add TICKER",
		Short:   "Add or update a holding",
		Example: "  stocksignal portfolio add BBCA --price 9000 --lots 10",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker, err := security.ValidateTicker(args[0])
			if err != nil {
				return err
			}
			if avgPrice <= 0 {
				return apperrors.NewValidationError("price", avgPrice, "must be greater than zero")
			}
			if lots <= 0 {
				return apperrors.NewValidationError("lots", lots, "must be greater than zero")
			}
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			entry := models.PortfolioEntry{Ticker: ticker, AvgPrice: avgPrice, Lots: lots, UpdatedAt: time.Now()}
			if err := app.Store.UpsertPortfolio(cmd.Context(), entry); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("✓ %s: %d lot @ %s", ticker, lots, utils.FormatRupiah(avgPrice))
			return nil
		},
	}
	addCmd.Flags().Float64Var(&avgPrice, "price", 0, "average buy price per share")
	addCmd.Flags().IntVar(&lots, "lots", 0, "number of lots (1 lot = 100 shares)")
	_ = addCmd.MarkFlagRequired("price")
	_ = addCmd.MarkFlagRequired("lots")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:     "rm TICKER",
		Aliases: []string{"remove"},
		Short:   "Remove a holding",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ticker := security.SanitizeTicker(args[0])
			if err := app.ensure(cmd.Context()); err != nil {
				return err
			}
			deleted, err := app.Store.DeletePortfolio(cmd.Context(), ticker)
			if err != nil {
				return err
			}
			if !deleted {
				return apperrors.Wrapf(apperrors.ErrNotFound, "holding %s", ticker)
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"ticker": ticker, "status": "removed"})
			}
			output.Success("✓ %s removed from portfolio", ticker)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "Value holdings at the latest price",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			if err := app.ensure(ctx); err != nil {
				return err
			}
			entries, err := app.Store.ListPortfolio(ctx)
			if err != nil {
				return err
			}
			summary := app.Portfolio.Summarize(ctx, entries)
			if output.IsJSON() {
				return output.JSON(summary)
			}
			if len(summary.Lines) == 0 {
				output.Dim("Portfolio is empty. Add a holding with 'stocksignal portfolio add'.")
				return nil
			}
			printPortfolio(output, summary)
			return nil
		},
	})

	return cmd
}

func printPortfolio(output *Output, s models.PortfolioSummary) {
	table := NewTable(output, "TICKER", "LOTS", "SHARES", "AVG", "LAST", "VALUE", "P/L")
	for _, l := range s.Lines {
		last := utils.FormatRupiah(l.LastPrice)
		if l.PriceError != "" {
			last = "n/a"
		}
		table.AddRow(
			l.Ticker,
			strconv.Itoa(l.Lots),
			utils.FormatVolume(l.Shares),
			utils.FormatRupiah(l.AvgPrice),
			last,
			utils.FormatRupiah(l.MarketValue),
			output.PnL(l.PnL, l.PnLPercent),
		)
	}
	table.Render()
	output.Println()
	output.Printf("Invested %s | Value %s | P/L %s\n",
		utils.FormatRupiah(s.Invested), utils.FormatRupiah(s.MarketValue), output.PnL(s.PnL, s.PnLPercent))
	for _, l := range s.Lines {
		if l.PriceError != "" {
			output.Warning("%s valued at cost: %s", l.Ticker, l.PriceError)
		}
	}
}
