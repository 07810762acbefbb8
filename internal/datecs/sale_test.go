package datecs_test

import (
	"strings"
	"testing"

	"fpbridge/internal/datecs"
	"fpbridge/pkg/types"
)

var saleItems = []types.SaleItem{
	{Name: "Cafe", Price: 2.50, Qty: 2, VAT: 1},
	{Name: "Ceai", Price: 3.00, Qty: 1, VAT: 1},
}

func commandsEqual(got, want []int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestSaleSuccessPath(t *testing.T) {
	sim, conn := newTestPair(t)

	result := conn.ProcessPunktePassSale(types.SaleRequest{
		Items:           saleItems,
		LoyaltyDiscount: 10,
		PaymentType:     0,
	})

	if !result.Success {
		t.Fatalf("sale failed: %s", result.Error)
	}
	if result.Total != 8.00 {
		t.Fatalf("total = %v, want 8.00", result.Total)
	}
	if result.Discount != 0.80 {
		t.Fatalf("discount = %v, want 0.80", result.Discount)
	}

	want := []int{
		datecs.CMD_OPEN_RECEIPT,
		datecs.CMD_SALE_ITEM,
		datecs.CMD_SALE_ITEM,
		datecs.CMD_SUBTOTAL,
		datecs.CMD_PAYMENT,
		datecs.CMD_CLOSE_RECEIPT,
	}
	if got := sim.CommandLog(); !commandsEqual(got, want) {
		t.Fatalf("command sequence = %v, want %v", got, want)
	}
	if conn.ReceiptState() != types.RECEIPT_STATE_CLOSED {
		t.Fatalf("receipt state = %s after close", conn.ReceiptState())
	}
}

func TestSaleItemFailureVoidsReceipt(t *testing.T) {
	sim, conn := newTestPair(t)
	sim.FailOn(datecs.CMD_SALE_ITEM, 2)

	result := conn.ProcessPunktePassSale(types.SaleRequest{
		Items:           saleItems,
		LoyaltyDiscount: 10,
	})

	if result.Success {
		t.Fatal("sale must fail when an item is rejected")
	}
	want := []int{
		datecs.CMD_OPEN_RECEIPT,
		datecs.CMD_SALE_ITEM,
		datecs.CMD_SALE_ITEM,
		datecs.CMD_VOID_RECEIPT,
	}
	if got := sim.CommandLog(); !commandsEqual(got, want) {
		t.Fatalf("command sequence = %v, want %v", got, want)
	}
	if conn.IsReceiptOpen() {
		t.Fatal("receipt left open after void")
	}
}

func TestSaleDiscountFailureVoidsReceipt(t *testing.T) {
	sim, conn := newTestPair(t)
	sim.FailOn(datecs.CMD_SUBTOTAL, 1)

	result := conn.ProcessPunktePassSale(types.SaleRequest{
		Items:           saleItems,
		LoyaltyDiscount: 10,
	})

	if result.Success {
		t.Fatal("sale must fail when the discount is rejected")
	}
	log := sim.CommandLog()
	if log[len(log)-1] != datecs.CMD_VOID_RECEIPT {
		t.Fatalf("last command = %d, want void", log[len(log)-1])
	}
}

func TestSalePaymentFailureVoidsReceipt(t *testing.T) {
	sim, conn := newTestPair(t)
	sim.FailOn(datecs.CMD_PAYMENT, 1)

	result := conn.ProcessPunktePassSale(types.SaleRequest{
		Items: saleItems,
	})

	if result.Success {
		t.Fatal("sale must fail when payment is rejected")
	}
	want := []int{
		datecs.CMD_OPEN_RECEIPT,
		datecs.CMD_SALE_ITEM,
		datecs.CMD_SALE_ITEM,
		datecs.CMD_PAYMENT,
		datecs.CMD_VOID_RECEIPT,
	}
	if got := sim.CommandLog(); !commandsEqual(got, want) {
		t.Fatalf("command sequence = %v, want %v", got, want)
	}
}

func TestSaleCloseFailureIsReportedNotVoided(t *testing.T) {
	sim, conn := newTestPair(t)
	sim.FailOn(datecs.CMD_CLOSE_RECEIPT, 1)

	result := conn.ProcessPunktePassSale(types.SaleRequest{
		Items: saleItems,
	})

	if result.Success {
		t.Fatal("sale must report the failed close")
	}
	if !strings.Contains(result.Error, "close") {
		t.Fatalf("error = %q, want close failure", result.Error)
	}
	log := sim.CommandLog()
	if log[len(log)-1] != datecs.CMD_CLOSE_RECEIPT {
		t.Fatalf("last command = %d; the bridge must not void after a close attempt", log[len(log)-1])
	}
	if conn.ReceiptState() != types.RECEIPT_STATE_COMMITTING {
		t.Fatalf("receipt state = %s, want COMMITTING (ambiguous device state)", conn.ReceiptState())
	}
}

func TestSaleLoyaltyPrintFailureIsNotFatal(t *testing.T) {
	sim, conn := newTestPair(t)
	sim.FailOn(datecs.CMD_FREE_TEXT, 1)

	result := conn.ProcessPunktePassSale(types.SaleRequest{
		Items:           saleItems,
		LoyaltyMemberID: "M-1001",
	})

	if !result.Success {
		t.Fatalf("text print failure must not fail the sale: %s", result.Error)
	}
	log := sim.CommandLog()
	if log[len(log)-1] != datecs.CMD_CLOSE_RECEIPT {
		t.Fatalf("last command = %d, want close", log[len(log)-1])
	}
	for _, cmd := range log {
		if cmd == datecs.CMD_VOID_RECEIPT {
			t.Fatal("receipt voided on a best-effort print failure")
		}
	}
}

func TestSaleReleasesConnection(t *testing.T) {
	sim, conn := newTestPair(t)

	result := conn.ProcessPunktePassSale(types.SaleRequest{Items: saleItems})
	if !result.Success {
		t.Fatalf("sale failed: %s", result.Error)
	}
	if conn.IsConnected() {
		t.Fatal("device socket still held after the sale completed")
	}

	// The void path releases the socket too
	sim.FailOn(datecs.CMD_PAYMENT, 2)
	result = conn.ProcessPunktePassSale(types.SaleRequest{Items: saleItems})
	if result.Success {
		t.Fatal("expected payment failure")
	}
	if conn.IsConnected() {
		t.Fatal("device socket still held after a voided sale")
	}
}
