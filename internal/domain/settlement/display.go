package settlement

import (
	"encoding/base64"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// BankAccount is a transfer destination shown to the user. Account numbers
// are not part of the simulation.
type BankAccount struct {
	BankName      string
	AccountHolder string
	Amount        decimal.Decimal
}

var banks = []string{"BCA", "BNI", "BRI", "Mandiri"}

// BankAccounts returns the fixed transfer destinations for amount.
func BankAccounts(holder string, amount decimal.Decimal) []BankAccount {
	out := make([]BankAccount, len(banks))
	for i, b := range banks {
		out[i] = BankAccount{BankName: b, AccountHolder: holder, Amount: amount}
	}
	return out
}

// QRISPayload returns the placeholder QR content: base64 of
// {"merchant","orderId","amount","timestamp"}.
func QRISPayload(merchant, orderID string, amount decimal.Decimal, at time.Time) string {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("merchant")
	e.Str(merchant)
	e.FieldStart("orderId")
	e.Str(orderID)
	e.FieldStart("amount")
	e.RawStr(amount.String())
	e.FieldStart("timestamp")
	e.Str(at.UTC().Format(time.RFC3339))
	e.ObjEnd()

	return base64.StdEncoding.EncodeToString(e.Bytes())
}
