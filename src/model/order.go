package model

import "time"

// OrderExecutionStatus constants represent the lifecycle of an order attempt
// as seen from the client side. Fill confirmation is exchange-side and not
// tracked here.
const (
	OrderExecutionStatusSubmitted = "submitted"
	OrderExecutionStatusFailed    = "failed"
	OrderExecutionStatusSkipped   = "skipped"
)

const (
	OrderDirectionEntry = "entry"
	OrderDirectionExit  = "exit"
)

// OrderRecord is the journal row written for every order attempt the bot
// makes, successful or not. It is an audit log, not recovery state: the bot
// re-bootstraps from scratch on restart.
type OrderRecord struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Symbol    string `gorm:"size:50;index" json:"symbol"`
	Side      string `gorm:"size:10" json:"side"`
	OrderType string `gorm:"size:20" json:"order_type"`
	OrderDir  string `gorm:"size:10" json:"order_dir"` // entry, exit

	// Quantity and notional keep the exact decimal representation that was
	// sent to the exchange.
	Quantity string `gorm:"size:50" json:"quantity"`
	Notional string `gorm:"size:50" json:"notional,omitempty"`

	ClientOrderID   string `gorm:"size:64;index" json:"client_order_id"`
	ExchangeOrderID string `gorm:"size:64" json:"exchange_order_id,omitempty"`

	Status       string  `gorm:"size:20;not null" json:"status"`
	ErrorMessage *string `json:"error_message,omitempty"`

	Signal string `gorm:"size:10" json:"signal,omitempty"` // signal that triggered the attempt

	RequestedAt time.Time `json:"requested_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName controls the exact table name for order records.
func (OrderRecord) TableName() string {
	return "order_records"
}
