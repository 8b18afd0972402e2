package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/storefront-checkout/internal/domain/voucher"
)

const header = "code,name,discount_type,discount_value,min_purchase,max_discount,start_date,end_date,is_active\n"

func writeGz(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseCSV(t *testing.T) {
	body := header +
		" save10 ,Save 10%,percentage,10,50000,15000,2026-01-01,2026-12-31T23:59:59Z,\n" +
		"FLAT20K,Flat,FIXED,20000,0,,2026-01-01T00:00:00+07:00,,false\n"

	vs, err := parseCSV(context.Background(), strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, vs, 2)

	save := vs[0]
	assert.Equal(t, "SAVE10", save.Code)
	assert.Equal(t, voucher.DiscountPercentage, save.DiscountType)
	assert.Equal(t, "10", save.DiscountValue.String())
	require.NotNil(t, save.MaxDiscount)
	assert.Equal(t, "15000", save.MaxDiscount.String())
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), save.StartDate)
	require.NotNil(t, save.EndDate)
	assert.True(t, save.IsActive)

	flat := vs[1]
	assert.Equal(t, voucher.DiscountFixed, flat.DiscountType)
	assert.Nil(t, flat.MaxDiscount)
	assert.Nil(t, flat.EndDate)
	assert.False(t, flat.IsActive)
	assert.Equal(t, time.Date(2025, 12, 31, 17, 0, 0, 0, time.UTC), flat.StartDate)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing column", body: "code,name\nA,B\n", want: "missing column"},
		{name: "empty code", body: header + ",x,fixed,1,0,,2026-01-01,,\n", want: "empty code"},
		{name: "bad type", body: header + "A,x,bogo,1,0,,2026-01-01,,\n", want: "unknown discount_type"},
		{name: "zero value", body: header + "A,x,fixed,0,0,,2026-01-01,,\n", want: "must be positive"},
		{name: "percent over 100", body: header + "A,x,percentage,120,0,,2026-01-01,,\n", want: "above 100"},
		{name: "bad date", body: header + "A,x,fixed,1,0,,01/02/2026,,\n", want: "start_date"},
		{name: "end before start", body: header + "A,x,fixed,1,0,,2026-02-01,2026-01-01,\n", want: "before start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCSV(context.Background(), strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseFiles_DedupeFirstFileWins(t *testing.T) {
	lg := zaptest.NewLogger(t)
	a := writeGz(t, "a.csv.gz", header+"SAVE10,First,percentage,10,0,,2026-01-01,,\nONLYA,A,fixed,1,0,,2026-01-01,,\n")
	b := writeGz(t, "b.csv.gz", header+"save10,Second,percentage,20,0,,2026-01-01,,\nONLYB,B,fixed,1,0,,2026-01-01,,\n")

	parsed, err := parseFiles(context.Background(), lg, []string{a, b})
	require.NoError(t, err)

	vs := dedupe(lg, parsed)
	codes := make([]string, len(vs))
	for i, v := range vs {
		codes[i] = v.Code
	}
	assert.Equal(t, []string{"SAVE10", "ONLYA", "ONLYB"}, codes)
	assert.Equal(t, "First", vs[0].Name)
}

func TestParseFiles_MissingFile(t *testing.T) {
	_, err := parseFiles(context.Background(), zaptest.NewLogger(t), []string{filepath.Join(t.TempDir(), "nope.gz")})
	require.Error(t, err)
}

type recordingUpserter struct {
	codes []string
	err   error
}

func (r *recordingUpserter) Upsert(_ context.Context, v *voucher.Voucher) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.codes = append(r.codes, v.Code)
	return "id-" + v.Code, nil
}

func TestWriteVouchers(t *testing.T) {
	vs := []voucher.Voucher{{Code: "A"}, {Code: "B"}}

	rec := &recordingUpserter{}
	require.NoError(t, writeVouchers(context.Background(), zaptest.NewLogger(t), rec, vs))
	assert.Equal(t, []string{"A", "B"}, rec.codes)

	err := writeVouchers(context.Background(), zaptest.NewLogger(t), &recordingUpserter{err: errors.New("boom")}, vs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert voucher A")
}
