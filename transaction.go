package stockfolio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransactionKind is a typed string identifying the side of a transaction.
type TransactionKind string

const (
	Buy  TransactionKind = "BUY"
	Sell TransactionKind = "SELL"
)

// ParseTransactionKind parses a string into a TransactionKind.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch TransactionKind(s) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown transaction kind: %q", s)
	}
}

// Transaction is an immutable fact recorded in the ledger: one buy or sell of
// an instrument. ID is the insertion order; replay processes transactions
// ordered by (Date, ID) so that same-day entries keep their recorded order.
type Transaction struct {
	ID         int64
	UserID     int64
	Ticker     string
	Kind       TransactionKind
	Quantity   Quantity        // number of units, always positive
	Price      Money           // unit price in the instrument's currency
	FXRate     decimal.Decimal // rate to the reporting currency applied at trade time
	Fees       Money
	Date       Date
	Note       string
}

// NewBuy creates a buy transaction.
func NewBuy(on Date, ticker string, qty float64, price Money, fxRate float64) Transaction {
	return Transaction{
		Ticker:   ticker,
		Kind:     Buy,
		Quantity: Q(qty),
		Price:    price,
		FXRate:   decimal.NewFromFloat(fxRate),
		Fees:     M(0, price.Currency()),
		Date:     on,
	}
}

// NewSell creates a sell transaction.
func NewSell(on Date, ticker string, qty float64, price Money, fxRate float64) Transaction {
	tx := NewBuy(on, ticker, qty, price, fxRate)
	tx.Kind = Sell
	return tx
}

// NewDividend creates a dividend receipt.
func NewDividend(on Date, ticker string, amount, tax Money) DividendReceipt {
	return DividendReceipt{
		Ticker: ticker,
		Amount: amount,
		Tax:    tax,
		Date:   on,
	}
}

// Amount returns the gross amount of the transaction in the instrument's currency.
func (t Transaction) Amount() Money { return t.Price.Mul(t.Quantity) }

// AmountReporting returns the gross amount converted to the reporting
// currency with the transaction's own FX rate.
func (t Transaction) AmountReporting(reporting string) Money {
	return t.Amount().MulRate(t.FXRate, reporting)
}

// Validate rejects malformed transactions at ingestion. Replay assumes its
// input passed this check.
func (t Transaction) Validate() error {
	if t.Ticker == "" {
		return fmt.Errorf("transaction is missing an instrument ticker")
	}
	if t.Kind != Buy && t.Kind != Sell {
		return fmt.Errorf("unknown transaction kind: %q", t.Kind)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("transaction quantity must be positive, got %s", t.Quantity)
	}
	if t.Price.IsNegative() || t.Price.IsZero() {
		return fmt.Errorf("transaction price must be positive, got %s", t.Price)
	}
	if !t.FXRate.IsPositive() {
		return fmt.Errorf("transaction fx rate must be positive, got %s", t.FXRate)
	}
	if t.Fees.IsNegative() {
		return fmt.Errorf("transaction fees cannot be negative, got %s", t.Fees)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction date is missing")
	}
	return nil
}

// DividendReceipt records a dividend payment received for an instrument.
// Dividends accumulate independently of the cost basis.
type DividendReceipt struct {
	ID       int64
	UserID   int64
	Ticker   string
	Amount   Money // pre-tax amount
	Tax      Money // tax withheld at source
	Date     Date
	Note     string
}

// Net returns the dividend amount after tax.
func (d DividendReceipt) Net() Money { return d.Amount.Sub(d.Tax) }

// Validate rejects malformed dividend receipts at ingestion.
func (d DividendReceipt) Validate() error {
	if d.Ticker == "" {
		return fmt.Errorf("dividend is missing an instrument ticker")
	}
	if d.Amount.IsNegative() || d.Amount.IsZero() {
		return fmt.Errorf("dividend amount must be positive, got %s", d.Amount)
	}
	if d.Tax.IsNegative() {
		return fmt.Errorf("dividend tax cannot be negative, got %s", d.Tax)
	}
	if c := d.Tax.Currency(); c != "" && c != d.Amount.Currency() {
		return fmt.Errorf("dividend tax currency %s does not match amount currency %s", c, d.Amount.Currency())
	}
	if d.Date.IsZero() {
		return fmt.Errorf("dividend date is missing")
	}
	return nil
}
