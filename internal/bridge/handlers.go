package bridge

import (
	"fmt"
	"strings"
	"time"

	"fpbridge/config"
	"fpbridge/internal/datecs"
	"fpbridge/pkg/types"
	"fpbridge/pkg/utils"

	"github.com/dustin/go-humanize"
)

func (s *Server) failure() response {
	return response{
		"success": false,
		"error":   s.connector.LastError(),
	}
}

// handleStatus serves both / and /status.
func (s *Server) handleStatus(req request) response {
	resp := response{
		"success":       true,
		"service":       "fpbridge",
		"version":       config.VERSION,
		"uptime":        humanize.Time(s.startTime),
		"device_ip":     s.config.DeviceIP,
		"device_port":   s.config.DevicePort,
		"connected":     s.connector.IsConnected(),
		"receipt_state": s.connector.ReceiptState().String(),
		"receipt_open":  s.connector.IsReceiptOpen(),
	}
	if last := s.connector.LastError(); last != "" {
		resp["last_error"] = last
	}
	if s.journal != nil {
		resp["journal_size"] = humanize.Bytes(uint64(s.journal.Size()))
	}
	return resp
}

// handlePing probes the device: connect, status query, disconnect.
func (s *Server) handlePing(req request) response {
	if !s.connector.ConnectDefault() {
		return response{
			"success":   false,
			"connected": false,
			"error":     s.connector.LastError(),
		}
	}
	defer s.connector.Disconnect()

	status := s.connector.Status()
	if !status.Success {
		return response{
			"success":   false,
			"connected": true,
			"error":     status.Error,
		}
	}
	return response{
		"success":   true,
		"connected": true,
		"status":    status.Data,
	}
}

func (s *Server) handleReceiptOpen(req request) response {
	receiptType := types.ReceiptType(req.getInt("type", int(types.RECEIPT_TYPE_FISCAL)))
	taxID := req.getString("customer_tax_id", "")

	if !s.connector.OpenReceipt(receiptType, taxID) {
		return s.failure()
	}
	s.hub.Broadcast("receipt_open", response{"type": int(receiptType)})
	return response{"success": true}
}

func (s *Server) handleReceiptItem(req request) response {
	ok := s.connector.AddSaleItem(
		req.getString("name", ""),
		req.getFloat("price", 0),
		req.getFloat("qty", 1),
		req.getInt("vat", 1),
		req.getInt("discount_type", datecs.DISCOUNT_NONE),
		req.getFloat("discount_value", 0),
		req.getInt("department", 1),
		req.getString("unit", ""),
	)
	if !ok {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleReceiptSubtotal(req request) response {
	resp := s.connector.Subtotal(
		req.getBool("print", true),
		req.getBool("display", true),
		req.getInt("discount_type", datecs.DISCOUNT_NONE),
		req.getFloat("discount_value", 0),
	)
	if !resp.Success {
		return response{"success": false, "error": resp.Error}
	}
	return response{"success": true, "data": resp.Data}
}

func (s *Server) handleReceiptPayment(req request) response {
	resp := s.connector.Payment(
		req.getInt("payment_type", int(types.PAYMENT_TYPE_CASH)),
		req.getFloat("amount", 0),
	)
	if !resp.Success {
		return response{"success": false, "error": resp.Error}
	}
	return response{"success": true, "data": resp.Data}
}

func (s *Server) handleReceiptClose(req request) response {
	if !s.connector.CloseReceipt() {
		return s.failure()
	}
	s.hub.Broadcast("receipt_close", nil)
	return response{"success": true}
}

func (s *Server) handleReceiptVoid(req request) response {
	if !s.connector.VoidReceipt() {
		return s.failure()
	}
	s.hub.Broadcast("receipt_void", nil)
	return response{"success": true}
}

func (s *Server) handleReceiptText(req request) response {
	ok := s.connector.PrintText(
		req.getString("text", ""),
		req.getBool("bold", false),
		req.getBool("italic", false),
		req.getBool("underline", false),
		req.getBool("double_height", false),
		req.getBool("double_width", false),
	)
	if !ok {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleReceiptQRCode(req request) response {
	if !s.connector.PrintQRCode(req.getString("data", "")) {
		return s.failure()
	}
	return response{"success": true}
}

// handleSale runs the composite sale, journals the outcome and pushes
// a websocket event either way.
func (s *Server) handleSale(req request) response {
	saleReq := types.SaleRequest{
		LoyaltyDiscount: req.getFloat("loyalty_discount", 0),
		PaymentType:     req.getInt("payment_type", int(types.PAYMENT_TYPE_CASH)),
		PaymentAmount:   req.getFloat("payment_amount", 0),
		CustomerTaxID:   req.getString("customer_tax_id", ""),
		LoyaltyMemberID: req.getString("loyalty_member_id", ""),
	}
	if items, ok := req["items"].([]interface{}); ok {
		for _, raw := range items {
			fields, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			item := request(fields)
			saleReq.Items = append(saleReq.Items, types.SaleItem{
				Name:  item.getString("name", ""),
				Price: item.getFloat("price", 0),
				Qty:   item.getFloat("qty", 1),
				VAT:   item.getInt("vat", 1),
			})
		}
	}

	result := s.connector.ProcessPunktePassSale(saleReq)

	entry := &types.JournalEntry{
		Total:       result.Total,
		Discount:    result.Discount,
		ItemCount:   len(saleReq.Items),
		PaymentType: saleReq.PaymentType,
		MemberID:    saleReq.LoyaltyMemberID,
		Success:     result.Success,
		Error:       result.Error,
	}
	if s.journal != nil {
		if err := s.journal.LogSale(entry); err != nil && s.logger != nil {
			s.logger.Error(fmt.Sprintf("Journal write failed: %v", err))
		}
	}
	s.hub.Broadcast("sale", entry)

	resp := response{
		"success":  result.Success,
		"total":    result.Total,
		"discount": result.Discount,
		"sale_id":  entry.ID,
	}
	if !result.Success {
		resp["error"] = result.Error
	}
	return resp
}

func (s *Server) handleNonFiscalOpen(req request) response {
	if !s.connector.OpenNonFiscal() {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleNonFiscalText(req request) response {
	if !s.connector.PrintNonFiscalText(req.getString("text", "")) {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleNonFiscalClose(req request) response {
	if !s.connector.CloseNonFiscal() {
		return s.failure()
	}
	return response{"success": true}
}

// handlePunktePassInfo prints the loyalty member slip: separator
// lines, member details, profile QR code. Non-fiscal throughout, so
// a mid-slip failure only aborts the printout.
func (s *Server) handlePunktePassInfo(req request) response {
	memberID := req.getString("member_id", "")
	name := req.getString("name", "")
	points := req.getFloat("points", 0)
	discount := req.getFloat("discount", 0)

	if memberID == "" {
		return response{"success": false, "error": "member_id required"}
	}

	if !s.connector.OpenNonFiscal() {
		return s.failure()
	}

	separator := strings.Repeat("=", 32)
	lines := []string{
		separator,
		"       * PUNKTEPASS *",
		separator,
		fmt.Sprintf("Member:   %s", utils.Sanitize(name, 36)),
		fmt.Sprintf("Card ID:  %s", memberID),
		fmt.Sprintf("Points:   %.0f", points),
		fmt.Sprintf("Discount: %.0f%%", discount),
		separator,
	}
	for _, line := range lines {
		if !s.connector.PrintNonFiscalText(line) {
			s.connector.CloseNonFiscal()
			return s.failure()
		}
	}

	s.connector.PrintQRCode(datecs.LoyaltyProfileURL + memberID)

	if !s.connector.CloseNonFiscal() {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleReportX(req request) response {
	ok := s.connector.ReportX()
	if s.journal != nil {
		s.journal.LogReport("X", ok)
	}
	if !ok {
		return s.failure()
	}
	s.hub.Broadcast("report", response{"kind": "X"})
	return response{"success": true}
}

func (s *Server) handleReportZ(req request) response {
	ok := s.connector.ReportZ()
	if s.journal != nil {
		s.journal.LogReport("Z", ok)
	}
	if !ok {
		return s.failure()
	}
	s.hub.Broadcast("report", response{"kind": "Z"})
	return response{"success": true}
}

func (s *Server) handleDrawerOpen(req request) response {
	if !s.connector.OpenDrawer(req.getInt("duration", 100)) {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleDisplay(req request) response {
	ok := s.connector.DisplayText(
		req.getString("line1", ""),
		req.getString("line2", ""),
	)
	if !ok {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleDisplayClear(req request) response {
	if !s.connector.ClearDisplay() {
		return s.failure()
	}
	return response{"success": true}
}

func (s *Server) handleDiagnostic(req request) response {
	if !s.connector.Diagnostic() {
		return s.failure()
	}
	return response{"success": true}
}

// handleOperator updates the operator context used by open-receipt.
func (s *Server) handleOperator(req request) response {
	s.connector.SetOperator(types.OperatorContext{
		Code:     req.getString("code", ""),
		Password: req.getString("password", ""),
		Till:     req.getString("till", ""),
	})
	op := s.connector.Operator()
	return response{
		"success": true,
		"code":    op.Code,
		"till":    op.Till,
	}
}

// handleDateTime syncs the device clock, either to an explicit
// "datetime" field (RFC 3339) or to the bridge host clock.
func (s *Server) handleDateTime(req request) response {
	t := time.Now()
	if raw := req.getString("datetime", ""); raw != "" {
		parsed, err := time.ParseInLocation(time.RFC3339, raw, time.Local)
		if err != nil {
			return response{"success": false, "error": fmt.Sprintf("bad datetime: %v", err)}
		}
		t = parsed
	}
	if !s.connector.SetDateTime(t) {
		return s.failure()
	}
	return response{"success": true, "datetime": t.Format(time.RFC3339)}
}

func (s *Server) handleJournal(req request) response {
	if s.journal == nil {
		return response{"success": false, "error": "journal disabled"}
	}
	entries, err := s.journal.RecentSales(req.getInt("limit", 50))
	if err != nil {
		return response{"success": false, "error": err.Error()}
	}
	return response{
		"success": true,
		"entries": entries,
		"count":   len(entries),
	}
}

func (s *Server) handleLogs(req request) response {
	if s.logger == nil {
		return response{"success": false, "error": "logging disabled"}
	}
	logs := s.logger.GetRecentLogs(
		req.getString("level", ""),
		req.getInt("limit", 100),
	)
	return response{
		"success": true,
		"logs":    logs,
		"count":   len(logs),
	}
}
