package datecs

import (
	"strconv"
	"strings"
	"time"

	"fpbridge/pkg/types"
	"fpbridge/pkg/utils"
)

// Discount types for sale items and subtotal
const (
	DISCOUNT_NONE        = 0
	DISCOUNT_PERCENT     = 1
	DISCOUNT_SURCHARGE   = 2
	DISCOUNT_FIXED       = 3
	DISCOUNT_FIXED_SURCH = 4
)

// fields joins payload fields with the protocol TAB separator
func fields(parts ...string) string {
	return strings.Join(parts, string(TAB))
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// discountFields renders a discount type/value pair; both fields are
// left empty when no discount applies (the device expects the
// positions, not zeros).
func discountFields(discountType int, discountValue float64) (string, string) {
	if discountType == DISCOUNT_NONE {
		return "", ""
	}
	return strconv.Itoa(discountType), utils.FormatPrice(discountValue)
}

// OpenReceipt opens a fiscal receipt of the given type with the current
// operator context. Type 2 (invoice) carries the customer tax id.
func (c *Connector) OpenReceipt(receiptType types.ReceiptType, customerTaxID string) bool {
	payload := fields(c.operator.Code, c.operator.Password, c.operator.Till, strconv.Itoa(int(receiptType)))
	if customerTaxID != "" {
		payload = fields(payload, customerTaxID)
	}

	resp := c.SendCommand(CMD_OPEN_RECEIPT, payload)
	if resp.Success {
		c.receiptState = types.RECEIPT_STATE_OPEN
	}
	return resp.Success
}

// AddSaleItem registers one line item on the open receipt. The name is
// transliterated and truncated to 36 characters, prices use 2 and
// quantities 3 fixed decimal places; the device parses positionally.
func (c *Connector) AddSaleItem(name string, price, qty float64, vatGroup int, discountType int, discountValue float64, department int, unit string) bool {
	if unit == "" {
		unit = "BUC."
	}
	discType, discVal := discountFields(discountType, discountValue)

	payload := fields(
		utils.Sanitize(name, MAX_ITEM_NAME_LEN),
		strconv.Itoa(vatGroup),
		utils.FormatPrice(price),
		utils.FormatQty(qty),
		discType,
		discVal,
		strconv.Itoa(department),
		unit,
		"",
	)
	return c.SendCommand(CMD_SALE_ITEM, payload).Success
}

// Subtotal computes the running total, optionally printing and
// displaying it and applying a receipt-level discount. The full
// response is returned because the device echoes the computed amount.
func (c *Connector) Subtotal(print, display bool, discountType int, discountValue float64) *Response {
	discType, discVal := discountFields(discountType, discountValue)
	payload := fields(boolFlag(print), boolFlag(display), discType, discVal)
	return c.SendCommand(CMD_SUBTOTAL, payload)
}

// Payment registers a payment. Amount 0 means "exact amount due"; the
// device echoes the change due in the response data.
func (c *Connector) Payment(paymentType int, amount float64) *Response {
	payload := strconv.Itoa(paymentType)
	if amount > 0 {
		payload = fields(payload, utils.FormatPrice(amount))
	}
	return c.SendCommand(CMD_PAYMENT, payload)
}

// CloseReceipt commits and closes the open fiscal receipt. A failed
// close leaves the state machine in COMMITTING: the receipt may already
// be fiscally committed, so the caller must surface the error instead
// of voiding.
func (c *Connector) CloseReceipt() bool {
	c.receiptState = types.RECEIPT_STATE_COMMITTING
	resp := c.SendCommand(CMD_CLOSE_RECEIPT, "")
	if resp.Success {
		c.receiptState = types.RECEIPT_STATE_CLOSED
	}
	return resp.Success
}

// VoidReceipt cancels the open fiscal receipt
func (c *Connector) VoidReceipt() bool {
	resp := c.SendCommand(CMD_VOID_RECEIPT, "")
	if resp.Success {
		c.receiptState = types.RECEIPT_STATE_CLOSED
	}
	return resp.Success
}

// PrintText prints one free-text line on the fiscal receipt, truncated
// to 48 characters after transliteration
func (c *Connector) PrintText(text string, bold, italic, underline, doubleHeight, doubleWidth bool) bool {
	payload := fields(
		utils.Sanitize(text, MAX_TEXT_LINE_LEN),
		boolFlag(bold),
		boolFlag(italic),
		boolFlag(underline),
		boolFlag(doubleHeight),
		boolFlag(doubleWidth),
	)
	return c.SendCommand(CMD_FREE_TEXT, payload).Success
}

// PrintQRCode prints a QR code; the fixed sub-type tag goes ahead of
// the raw data
func (c *Connector) PrintQRCode(data string) bool {
	return c.SendCommand(CMD_QRCODE, fields(QRCODE_SUBTYPE, data)).Success
}

// OpenNonFiscal opens a non-fiscal (informational) receipt
func (c *Connector) OpenNonFiscal() bool {
	return c.SendCommand(CMD_NONFISCAL_OPEN, "").Success
}

// PrintNonFiscalText prints one text line on the non-fiscal receipt
func (c *Connector) PrintNonFiscalText(text string) bool {
	return c.SendCommand(CMD_NONFISCAL_TEXT, utils.Sanitize(text, MAX_TEXT_LINE_LEN)).Success
}

// CloseNonFiscal closes the non-fiscal receipt
func (c *Connector) CloseNonFiscal() bool {
	return c.SendCommand(CMD_NONFISCAL_CLOSE, "").Success
}

// ReportX prints the non-resetting daily report
func (c *Connector) ReportX() bool {
	return c.SendCommand(CMD_REPORT, "X").Success
}

// ReportZ prints the end-of-day report and RESETS the daily fiscal
// counters on the device. Cannot be undone.
func (c *Connector) ReportZ() bool {
	return c.SendCommand(CMD_REPORT, "Z").Success
}

// OpenDrawer pulses the cash drawer for the given duration
func (c *Connector) OpenDrawer(durationMs int) bool {
	return c.SendCommand(CMD_CASH_DRAWER, strconv.Itoa(durationMs)).Success
}

// DisplayText shows two lines on the customer display; each line has
// its own command number and a 20 character limit
func (c *Connector) DisplayText(line1, line2 string) bool {
	ok1 := c.SendCommand(CMD_DISPLAY_LINE1, utils.Sanitize(line1, MAX_DISPLAY_LINE_LEN)).Success
	ok2 := c.SendCommand(CMD_DISPLAY_LINE2, utils.Sanitize(line2, MAX_DISPLAY_LINE_LEN)).Success
	return ok1 && ok2
}

// ClearDisplay clears the customer display
func (c *Connector) ClearDisplay() bool {
	return c.SendCommand(CMD_CLEAR_DISPLAY, "").Success
}

// Diagnostic prints the device diagnostic slip
func (c *Connector) Diagnostic() bool {
	return c.SendCommand(CMD_DIAGNOSTIC, "").Success
}

// Status queries the device status registers
func (c *Connector) Status() *Response {
	return c.SendCommand(CMD_STATUS, "")
}

// SetDateTime syncs the device clock
func (c *Connector) SetDateTime(t time.Time) bool {
	return c.SendCommand(CMD_SET_DATETIME, t.Format("02-01-06 15:04:05")).Success
}
