// Command voucher-ingest loads voucher campaigns from gzip-compressed CSV
// exports into the voucher ledger.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-checkout/internal/domain/voucher"
	"github.com/xenking/storefront-checkout/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000
)

func main() {
	var (
		databaseURL string
		dryRun      bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and dedupe only, do not write")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		files := flag.Args()
		if len(files) == 0 {
			return errors.New("usage: voucher-ingest [flags] campaign1.csv.gz [campaign2.csv.gz ...]")
		}
		if databaseURL == "" && !dryRun {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		return run(ctx, lg, files, databaseURL, dryRun)
	})
}

func run(ctx context.Context, lg *zap.Logger, files []string, databaseURL string, dryRun bool) error {
	lg.Info("Parsing campaign files", zap.Int("files", len(files)))

	parsed, err := parseFiles(ctx, lg, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	vouchers := dedupe(lg, parsed)
	lg.Info("Unique vouchers", zap.Int("count", len(vouchers)))

	if dryRun || len(vouchers) == 0 {
		return nil
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeVouchers(ctx, lg, repository.NewVoucherRepository(pool), vouchers)
}

// parseFiles reads every file concurrently. Results keep the file order so
// the first file listed wins on duplicate codes.
func parseFiles(ctx context.Context, lg *zap.Logger, files []string) ([][]voucher.Voucher, error) {
	results := make([][]voucher.Voucher, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			vs, err := readFile(ctx, path)
			if err != nil {
				return errors.Wrapf(err, "file %s", path)
			}
			lg.Info("Parsed file", zap.String("path", path), zap.Int("vouchers", len(vs)))
			results[i] = vs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// dedupe drops repeated codes. The bloom filter answers the common "never
// seen" case; a hit is confirmed against the exact set.
func dedupe(lg *zap.Logger, parsed [][]voucher.Voucher) []voucher.Voucher {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	seen := make(map[string]struct{})

	var (
		out     []voucher.Voucher
		dropped int
	)
	for _, vs := range parsed {
		for _, v := range vs {
			if filter.TestString(v.Code) {
				if _, ok := seen[v.Code]; ok {
					dropped++
					continue
				}
			}
			filter.AddString(v.Code)
			seen[v.Code] = struct{}{}
			out = append(out, v)
		}
	}
	if dropped > 0 {
		lg.Info("Dropped duplicate codes", zap.Int("count", dropped))
	}
	return out
}

type upserter interface {
	Upsert(ctx context.Context, v *voucher.Voucher) (string, error)
}

func writeVouchers(ctx context.Context, lg *zap.Logger, repo upserter, vouchers []voucher.Voucher) error {
	lg.Info("Writing vouchers", zap.Int("count", len(vouchers)))

	for i := range vouchers {
		if _, err := repo.Upsert(ctx, &vouchers[i]); err != nil {
			return errors.Wrapf(err, "upsert voucher %s", vouchers[i].Code)
		}
		if n := i + 1; n%progressEvery == 0 || n == len(vouchers) {
			lg.Info("Write progress", zap.Int("written", n), zap.Int("total", len(vouchers)))
		}
	}
	return nil
}
