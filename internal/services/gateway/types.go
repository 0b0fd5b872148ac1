package gateway

import (
	"time"

	"github.com/shopspring/decimal"
)

// Descriptor describes one outbound transfer leg.
type Descriptor struct {
	SourceAccount      string
	DestinationAccount string
	DestinationBank    string
	Amount             decimal.Decimal
	Reference          string
	Description        string
	RecipientName      string
}

// Receipt is returned by the rail on a successful transfer.
type Receipt struct {
	TransactionID string
	Timestamp     time.Time
}
