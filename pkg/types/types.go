package types

import (
	"time"
)

// Receipt Types (device command 48 argument)
type ReceiptType int

const (
	RECEIPT_TYPE_FISCAL     ReceiptType = 1
	RECEIPT_TYPE_INVOICE    ReceiptType = 2
	RECEIPT_TYPE_STORNO     ReceiptType = 3
	RECEIPT_TYPE_CREDITNOTE ReceiptType = 4
)

// Receipt Lifecycle States
type ReceiptState int

const (
	RECEIPT_STATE_CLOSED ReceiptState = iota
	RECEIPT_STATE_OPEN
	RECEIPT_STATE_COMMITTING
)

// String returns string representation of ReceiptState
func (s ReceiptState) String() string {
	switch s {
	case RECEIPT_STATE_CLOSED:
		return "CLOSED"
	case RECEIPT_STATE_OPEN:
		return "OPEN"
	case RECEIPT_STATE_COMMITTING:
		return "COMMITTING"
	default:
		return "UNKNOWN"
	}
}

// Payment Types (device command 53 argument)
type PaymentType int

const (
	PAYMENT_TYPE_CASH PaymentType = iota
	PAYMENT_TYPE_CARD
	PAYMENT_TYPE_CHECK
	PAYMENT_TYPE_VOUCHER
)

// OperatorContext is embedded into every open-receipt command.
// Configured once per bridge session, may be overridden per request.
type OperatorContext struct {
	Code     string `json:"code"`
	Password string `json:"password"`
	Till     string `json:"till"`
}

// SaleItem represents one line item of a sale request
type SaleItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
	VAT   int     `json:"vat"`
}

// SaleRequest represents the JSON payload of /sale
type SaleRequest struct {
	Items           []SaleItem `json:"items"`
	LoyaltyDiscount float64    `json:"loyalty_discount"` // percentage, 0 = none
	PaymentType     int        `json:"payment_type"`
	PaymentAmount   float64    `json:"payment_amount"` // 0 = exact amount due
	CustomerTaxID   string     `json:"customer_tax_id"`
	LoyaltyMemberID string     `json:"loyalty_member_id"`
}

// SaleResult is returned by the composite sale operation
type SaleResult struct {
	Success  bool    `json:"success"`
	Total    float64 `json:"total"`
	Discount float64 `json:"discount"`
	Error    string  `json:"error,omitempty"`
}

// JournalEntry is one recorded sale outcome (see internal/journal)
type JournalEntry struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Total       float64   `json:"total"`
	Discount    float64   `json:"discount"`
	ItemCount   int       `json:"item_count"`
	PaymentType int       `json:"payment_type"`
	MemberID    string    `json:"member_id"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
}

// Config represents merged runtime configuration
type Config struct {
	// HTTP bridge
	HTTPAddr string
	HTTPPort int

	// Fiscal device
	DeviceIP      string
	DevicePort    int
	DeviceTimeout float64 // socket read/write timeout, seconds

	// Bounded receive loop
	PollAttempts int     // max read attempts per command
	PollInterval float64 // seconds between attempts

	// Operator defaults
	OperatorCode     string
	OperatorPassword string
	OperatorTill     string

	// Logging
	LogFile             string
	LogFileLow          string // raw frame hex dumps, empty = disabled
	LogRotationEnabled  bool
	LogRotationMaxSize  int64
	LogRotationMaxFiles int
	LogRotationMaxDays  int

	// Journal
	JournalPath string // sqlite database, empty = disabled
}
