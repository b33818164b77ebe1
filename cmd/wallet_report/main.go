// Command wallet_report prints the headline balance, holdings and day-grouped
// activity of an address using the same services as the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/wallet-dashboard/internal/app"
	"github.com/wallet-dashboard/internal/config"
	apperrors "github.com/wallet-dashboard/internal/errors"
	"github.com/wallet-dashboard/internal/logging"
	"github.com/wallet-dashboard/internal/service"
)

// notAvailable is printed in place of a headline that could not be derived
const notAvailable = "NOT AVAILABLE"

func main() {
	addrFlag := flag.String("address", "", "Wallet address (required)")
	networkFlag := flag.String("network", "", "Network key or chain id (default: DEFAULT_NETWORK)")
	sortFlag := flag.String("sort", "", "Holdings sort column (price, balance, value, percentage, symbol)")
	orderFlag := flag.String("order", "asc", "Sort order (asc, desc)")
	flag.Parse()

	if *addrFlag == "" {
		fmt.Fprintln(os.Stderr, "Usage: wallet_report -address 0x... [-network sepolia] [-sort balance] [-order desc]")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat("text"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logging.GetGlobalLogger())

	application, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize services: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	r := &report{out: os.Stdout, app: application}
	ok := r.balance(ctx, *addrFlag, *networkFlag)
	ok = r.holdings(ctx, service.HoldingsInput{
		Address:   *addrFlag,
		Network:   *networkFlag,
		SortField: *sortFlag,
		Direction: *orderFlag,
	}) && ok
	ok = r.activity(ctx, *addrFlag, *networkFlag) && ok

	if !ok {
		os.Exit(1)
	}
}

type report struct {
	out io.Writer
	app *app.App
}

func (r *report) failed(section string, err error) {
	catErr := apperrors.Categorize(err)
	fmt.Fprintf(r.out, "%s: %s\n\n", section, catErr.Message)
}

func (r *report) balance(ctx context.Context, address, network string) bool {
	view, err := r.app.Portfolio.GetWalletBalance(ctx, address, network)
	if err != nil {
		fmt.Fprintf(r.out, "Balance: %s\n", notAvailable)
		r.failed("Balance", err)
		return false
	}
	fmt.Fprintf(r.out, "%s on %s\n", view.Address, view.Network.Name)
	fmt.Fprintf(r.out, "Balance: %s (%s)\n\n", view.FormattedUSD, view.Formatted)
	return true
}

func (r *report) holdings(ctx context.Context, input service.HoldingsInput) bool {
	view, err := r.app.Portfolio.GetHoldings(ctx, input)
	if err != nil {
		r.failed("Holdings", err)
		return false
	}

	fmt.Fprintln(r.out, "Holdings")
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tPRICE\tBALANCE\tVALUE\tPORTFOLIO %")
	for _, h := range view.Holdings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", h.Symbol, h.PriceText, h.BalanceText, h.ValueText, h.PercentageText)
	}
	_ = tw.Flush()
	fmt.Fprintf(r.out, "Total: %s\n\n", view.FormattedTotal)
	return true
}

func (r *report) activity(ctx context.Context, address, network string) bool {
	view, err := r.app.Activity.GetActivity(ctx, address, network)
	if err != nil {
		r.failed("Activity", err)
		return false
	}

	fmt.Fprintln(r.out, "Activity")
	if len(view.Days) == 0 {
		fmt.Fprintln(r.out, "No transactions yet")
		return true
	}
	for _, day := range view.Days {
		fmt.Fprintln(r.out, day.Header)
		tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		for _, e := range day.Entries {
			fmt.Fprintf(tw, "  %s\t%s\t%s %s\t%s\t%s\n", e.Hour, e.Label, e.Delta, e.Symbol, e.ShortCounterparty, e.ExplorerURL)
		}
		_ = tw.Flush()
	}
	return true
}
