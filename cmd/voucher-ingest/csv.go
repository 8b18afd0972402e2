package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/voucher"
)

// Columns of a campaign export. Header order is free; these names are
// required except max_discount, end_date and is_active.
const (
	colCode          = "code"
	colName          = "name"
	colDiscountType  = "discount_type"
	colDiscountValue = "discount_value"
	colMinPurchase   = "min_purchase"
	colMaxDiscount   = "max_discount"
	colStartDate     = "start_date"
	colEndDate       = "end_date"
	colIsActive      = "is_active"
)

var requiredColumns = []string{colCode, colDiscountType, colDiscountValue, colMinPurchase, colStartDate}

func readFile(ctx context.Context, path string) ([]voucher.Voucher, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return parseCSV(ctx, gz)
}

func parseCSV(ctx context.Context, r io.Reader) ([]voucher.Voucher, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, errors.Errorf("missing column %q", c)
		}
	}

	var out []voucher.Voucher
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}

		v, err := parseRecord(func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		})
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		out = append(out, v)
	}
}

func parseRecord(field func(col string) string) (voucher.Voucher, error) {
	v := voucher.Voucher{
		Code:         voucher.NormalizeCode(field(colCode)),
		Name:         field(colName),
		DiscountType: voucher.DiscountType(strings.ToLower(field(colDiscountType))),
		IsActive:     true,
	}
	if v.Code == "" {
		return v, errors.New("empty code")
	}

	var err error
	if v.DiscountValue, err = decimal.NewFromString(field(colDiscountValue)); err != nil {
		return v, errors.Wrap(err, "discount_value")
	}
	if !v.DiscountValue.IsPositive() {
		return v, errors.Errorf("discount_value must be positive, got %s", v.DiscountValue)
	}
	switch v.DiscountType {
	case voucher.DiscountPercentage:
		if v.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return v, errors.Errorf("percentage above 100: %s", v.DiscountValue)
		}
	case voucher.DiscountFixed:
	default:
		return v, errors.Errorf("unknown discount_type %q", v.DiscountType)
	}

	if v.MinPurchase, err = decimal.NewFromString(field(colMinPurchase)); err != nil {
		return v, errors.Wrap(err, "min_purchase")
	}
	if s := field(colMaxDiscount); s != "" {
		m, err := decimal.NewFromString(s)
		if err != nil {
			return v, errors.Wrap(err, "max_discount")
		}
		v.MaxDiscount = &m
	}

	if v.StartDate, err = parseDate(field(colStartDate)); err != nil {
		return v, errors.Wrap(err, "start_date")
	}
	if s := field(colEndDate); s != "" {
		end, err := parseDate(s)
		if err != nil {
			return v, errors.Wrap(err, "end_date")
		}
		if end.Before(v.StartDate) {
			return v, errors.New("end_date before start_date")
		}
		v.EndDate = &end
	}

	if s := field(colIsActive); s != "" {
		if v.IsActive, err = strconv.ParseBool(s); err != nil {
			return v, errors.Wrap(err, "is_active")
		}
	}
	return v, nil
}

// parseDate accepts RFC 3339 timestamps and plain dates (UTC midnight).
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
