package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/xenking/devops-storefront/internal/catalog"
	"github.com/xenking/devops-storefront/internal/domain/product"
)

func main() {
	var (
		baseURL string
		timeout time.Duration
		strict  bool
	)

	flag.StringVar(&baseURL, "catalog-url", "", "catalog API base URL (or SHOP_CATALOG_URL env)")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "request timeout, 0 for none")
	flag.BoolVar(&strict, "strict", false, "exit non-zero when the fallback catalog is used")
	flag.Parse()

	if baseURL == "" {
		baseURL = os.Getenv("SHOP_CATALOG_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:5000/api"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	live, err := run(ctx, baseURL, timeout)
	if err != nil {
		slog.Error("probe failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !live && strict {
		os.Exit(2)
	}
}

func run(ctx context.Context, baseURL string, timeout time.Duration) (bool, error) {
	loader, err := catalog.NewLoader(catalog.Config{BaseURL: baseURL, Timeout: timeout})
	if err != nil {
		return false, err
	}

	slog.Info("fetching catalog", slog.String("endpoint", loader.Endpoint()))

	live := true
	products, err := loader.Fetch(ctx)
	if err != nil {
		slog.Warn("catalog unavailable, using fallback", slog.String("error", err.Error()))
		products = catalog.Fallback()
		live = false
	}

	source := "live"
	if !live {
		source = "fallback"
	}
	slog.Info("catalog resolved", slog.String("source", source), slog.Int("products", len(products)))

	return live, printProducts(products)
}

func printProducts(products []product.Product) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tIMAGE")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t$%s\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.ImageURL())
	}
	return tw.Flush()
}
