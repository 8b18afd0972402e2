// Package payment holds the payment method catalogue.
package payment

import (
	"github.com/shopspring/decimal"
)

// Method identifies a payment method.
type Method string

// Supported payment methods.
const (
	MethodCOD          Method = "cod"
	MethodQRIS         Method = "qris"
	MethodBankTransfer Method = "bank_transfer"
	MethodEWallet      Method = "ewallet"
	MethodCard         Method = "card"
	MethodCrypto       Method = "crypto"
)

// MethodInfo describes a payment method for display.
type MethodInfo struct {
	ID             Method
	Name           string
	Description    string
	Fee            decimal.Decimal
	ProcessingTime string

	// prefix starts transaction ids issued for this method.
	prefix string
}

var catalogue = []MethodInfo{
	{ID: MethodCOD, Name: "Cash on Delivery", Description: "Pay cash when your order arrives", Fee: decimal.Zero, ProcessingTime: "Instant", prefix: "COD"},
	{ID: MethodQRIS, Name: "QRIS", Description: "Scan QR code to pay", Fee: decimal.Zero, ProcessingTime: "Instant", prefix: "QRIS"},
	{ID: MethodBankTransfer, Name: "Bank Transfer", Description: "Transfer from your bank account", Fee: decimal.Zero, ProcessingTime: "1-24 hours", prefix: "BT"},
	{ID: MethodEWallet, Name: "E-Wallet", Description: "GoPay, OVO, Dana, ShopeePay", Fee: decimal.NewFromInt(1000), ProcessingTime: "Instant", prefix: "EW"},
	{ID: MethodCard, Name: "Credit/Debit Card", Description: "Visa, Mastercard, JCB", Fee: decimal.NewFromInt(2000), ProcessingTime: "Instant", prefix: "CARD"},
	{ID: MethodCrypto, Name: "Cryptocurrency", Description: "BTC, ETH, USDT", Fee: decimal.NewFromInt(5000), ProcessingTime: "Instant", prefix: "CRYPTO"},
}

// Methods returns the catalogue in display order.
func Methods() []MethodInfo {
	out := make([]MethodInfo, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup returns the catalogue entry for m.
func Lookup(m Method) (MethodInfo, bool) {
	for _, info := range catalogue {
		if info.ID == m {
			return info, true
		}
	}
	return MethodInfo{}, false
}

// Valid reports whether m is in the catalogue.
func (m Method) Valid() bool {
	_, ok := Lookup(m)
	return ok
}

// TransactionID returns the display transaction id for an order, e.g.
// "BT-1a2b3c4d".
func TransactionID(m Method, orderID string) string {
	info, ok := Lookup(m)
	if !ok {
		return ""
	}
	short := orderID
	if len(short) > 8 {
		short = short[:8]
	}
	return info.prefix + "-" + short
}
