package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount that is written to JSON as a bare number.
// Decoding accepts both numbers and quoted strings.
type Money struct {
	decimal.Decimal
}

// NewMoney parses s into Money.
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Decimal: d}, nil
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// Transaction is a single movement on a linked bank account,
// as reported by the banking gateway.
type Transaction struct {
	ID             string     `json:"id"`
	CollectedAt    *time.Time `json:"collected_at,omitempty"`
	ValueDate      string     `json:"value_date,omitempty"`
	AccountingDate string     `json:"accounting_date,omitempty"`
	Amount         Money      `json:"amount"`
	Balance        *Money     `json:"balance"`
	Currency       string     `json:"currency,omitempty"`
	Description    string     `json:"description,omitempty"`
	Category       string     `json:"category,omitempty"`
	Type           string     `json:"type,omitempty"`
	Status         string     `json:"status,omitempty"`
	Reference      string     `json:"reference,omitempty"`
	InternalID     string     `json:"internal_identification,omitempty"`
}

// TransactionPage is one page of the gateway's transaction listing.
type TransactionPage struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []Transaction `json:"results"`
}

// LinkCredentials are the bank login details used to open a gateway link.
// They are forwarded to the gateway and never stored.
type LinkCredentials struct {
	Institution string `json:"institution"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// BankLink is the gateway's record of a bank connection.
type BankLink struct {
	ID          string `json:"id"`
	Institution string `json:"institution"`
	AccessMode  string `json:"access_mode,omitempty"`
	Status      string `json:"status,omitempty"`
}
