package datecs

import (
	"fmt"

	"fpbridge/pkg/types"
	"fpbridge/pkg/utils"
)

// LoyaltyProfileURL is the profile link printed as a QR code on loyalty slips
const LoyaltyProfileURL = "https://punktepass.de/p/"

// ProcessPunktePassSale runs one complete sale against the device:
// open, add items, loyalty discount, payment, close. Any hard failure
// between open and close voids the receipt; a partial fiscal receipt
// must never be left open. A failed close is only reported, the
// receipt may already be committed at that point.
func (c *Connector) ProcessPunktePassSale(req types.SaleRequest) types.SaleResult {
	result := types.SaleResult{}

	// The sale is one operation group; the socket is released on every
	// exit path and the next group reconnects on demand.
	defer c.Disconnect()

	if !c.IsConnected() {
		if !c.ConnectDefault() {
			result.Error = c.lastError
			return result
		}
	}

	receiptType := types.RECEIPT_TYPE_FISCAL
	if req.CustomerTaxID != "" {
		receiptType = types.RECEIPT_TYPE_INVOICE
	}
	if !c.OpenReceipt(receiptType, req.CustomerTaxID) {
		result.Error = fmt.Sprintf("open receipt: %s", c.lastError)
		return result
	}

	for _, item := range req.Items {
		if !c.AddSaleItem(item.Name, item.Price, item.Qty, item.VAT, DISCOUNT_NONE, 0, 1, "") {
			result.Error = fmt.Sprintf("add item %q: %s", item.Name, c.lastError)
			c.VoidReceipt()
			return result
		}
		result.Total += utils.Round2(item.Price * item.Qty)
	}

	if req.LoyaltyDiscount > 0 {
		resp := c.Subtotal(true, false, DISCOUNT_PERCENT, req.LoyaltyDiscount)
		if !resp.Success {
			result.Error = fmt.Sprintf("loyalty discount: %s", c.lastError)
			c.VoidReceipt()
			return result
		}
		result.Discount = utils.Round2(result.Total * req.LoyaltyDiscount / 100)
	}

	// Loyalty branding is best-effort: a text print failure does not
	// void a fiscal receipt
	if req.LoyaltyMemberID != "" {
		c.PrintText("--- PunktePass ---", true, false, false, false, false)
		c.PrintText(fmt.Sprintf("Membru: %s", req.LoyaltyMemberID), false, false, false, false, false)
	}

	pay := c.Payment(req.PaymentType, req.PaymentAmount)
	if !pay.Success {
		result.Error = fmt.Sprintf("payment: %s", c.lastError)
		c.VoidReceipt()
		return result
	}

	if req.LoyaltyMemberID != "" {
		c.PrintQRCode(LoyaltyProfileURL + req.LoyaltyMemberID)
	}

	if !c.CloseReceipt() {
		result.Error = fmt.Sprintf("close receipt: %s", c.lastError)
		return result
	}

	result.Success = true
	return result
}
