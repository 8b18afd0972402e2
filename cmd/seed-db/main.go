// Command seed-db loads a demo address book and voucher set so the checkout
// flow can be exercised end to end.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/voucher"
	"github.com/xenking/storefront-checkout/internal/repository"
)

// seedVoucher pairs a voucher with the users who have claimed it.
type seedVoucher struct {
	voucher  voucher.Voucher
	claimers []string
}

func main() {
	var (
		databaseURL string
		userID      string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&userID, "user", "demo-user", "user id that owns the seeded addresses and claims")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if databaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		return run(ctx, lg, databaseURL, userID)
	})
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, userID string) error {
	lg.Info("Connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedAddresses(ctx, lg, repository.NewAddressRepository(pool), userID); err != nil {
		return errors.Wrap(err, "seed addresses")
	}
	if err := seedVouchers(ctx, lg, repository.NewVoucherRepository(pool), userID, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "seed vouchers")
	}

	lg.Info("Seed completed")
	return nil
}

func seedAddresses(ctx context.Context, lg *zap.Logger, repo *repository.AddressRepository, userID string) error {
	addrs := []address.Address{
		{
			ID:            userID + "-home",
			UserID:        userID,
			Label:         "Home",
			RecipientName: "Siti Aminah",
			PhoneNumber:   "08123456789",
			AddressLine:   "Jl. Merdeka No. 10",
			City:          "Bandung",
			Province:      "Jawa Barat",
			PostalCode:    "40111",
			IsDefault:     true,
		},
		{
			ID:            userID + "-office",
			UserID:        userID,
			Label:         "Office",
			RecipientName: "Siti Aminah",
			PhoneNumber:   "08123456789",
			AddressLine:   "Jl. Jend. Sudirman Kav. 52",
			City:          "Jakarta Selatan",
			Province:      "DKI Jakarta",
			PostalCode:    "12190",
		},
	}

	for i := range addrs {
		if err := repo.Save(ctx, &addrs[i]); err != nil {
			return err
		}
		lg.Info("Saved address", zap.String("id", addrs[i].ID), zap.String("label", addrs[i].Label))
	}
	return nil
}

func seedVouchers(ctx context.Context, lg *zap.Logger, repo *repository.VoucherRepository, userID string, now time.Time) error {
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 3, 0)
	expired := now.AddDate(0, 0, -7)
	cap15k := decimal.NewFromInt(15000)

	seeds := []seedVoucher{
		{
			voucher: voucher.Voucher{
				Code:          "SAVE10",
				Name:          "10% off, up to 15.000",
				DiscountType:  voucher.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(10),
				MinPurchase:   decimal.NewFromInt(50000),
				MaxDiscount:   &cap15k,
				StartDate:     start,
				EndDate:       &end,
				IsActive:      true,
			},
			claimers: []string{userID},
		},
		{
			voucher: voucher.Voucher{
				Code:          "FLAT20K",
				Name:          "20.000 off orders above 150.000",
				DiscountType:  voucher.DiscountFixed,
				DiscountValue: decimal.NewFromInt(20000),
				MinPurchase:   decimal.NewFromInt(150000),
				StartDate:     start,
				IsActive:      true,
			},
			claimers: []string{userID},
		},
		{
			voucher: voucher.Voucher{
				Code:          "EXPIRED5",
				Name:          "Expired campaign",
				DiscountType:  voucher.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(5),
				StartDate:     start.AddDate(0, -1, 0),
				EndDate:       &expired,
				IsActive:      true,
			},
		},
	}

	for _, s := range seeds {
		id, err := repo.Upsert(ctx, &s.voucher)
		if err != nil {
			return err
		}
		for _, u := range s.claimers {
			if err := repo.Claim(ctx, id, u); err != nil {
				return err
			}
		}
		lg.Info("Upserted voucher",
			zap.String("code", s.voucher.Code),
			zap.String("id", id),
			zap.Int("claims", len(s.claimers)),
		)
	}
	return nil
}
