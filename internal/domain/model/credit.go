package model

import "time"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionPurchase TransactionType = "purchase"
	TransactionUsage    TransactionType = "usage"
	TransactionRefund   TransactionType = "refund"
	TransactionBonus    TransactionType = "bonus"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionPurchase, TransactionUsage, TransactionRefund, TransactionBonus:
		return true
	}
	return false
}

// CreditBalance is a cached copy of the server-owned balance. It is never
// authoritative; the server's returned value always wins.
type CreditBalance struct {
	Credits     int64
	LastUpdated time.Time
}

// CreditTransaction is one append-only ledger entry, created server-side.
// Clients only read paginated history.
type CreditTransaction struct {
	ID          string
	Credits     int64
	Type        TransactionType
	Description string
	PackageType PackageType
	CreatedAt   time.Time
}

// CreditHistoryPage is a paginated slice of the ledger.
type CreditHistoryPage struct {
	Transactions []*CreditTransaction
	Total        int
	Limit        int
	Offset       int
}
