package simulator_test

import (
	"net"
	"testing"
	"time"

	"fpbridge/internal/datecs"
	"fpbridge/internal/simulator"
	"fpbridge/pkg/types"
)

func newPair(t *testing.T) (*simulator.Simulator, *datecs.Connector) {
	t.Helper()

	sim := simulator.New()
	if err := sim.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("start simulator: %v", err)
	}
	t.Cleanup(sim.Stop)

	cfg := &types.Config{
		DeviceIP:      "127.0.0.1",
		DevicePort:    sim.Port(),
		DeviceTimeout: 2,
		PollAttempts:  50,
		PollInterval:  0.01,
	}
	conn := datecs.NewConnector(cfg, nil)
	t.Cleanup(conn.Disconnect)
	return sim, conn
}

func ringUpSale(t *testing.T, conn *datecs.Connector, price, qty float64) {
	t.Helper()
	if !conn.OpenReceipt(types.RECEIPT_TYPE_FISCAL, "") {
		t.Fatalf("open: %s", conn.LastError())
	}
	if !conn.AddSaleItem("Cafe", price, qty, 1, datecs.DISCOUNT_NONE, 0, 1, "") {
		t.Fatalf("item: %s", conn.LastError())
	}
	if !conn.Payment(0, 0).Success {
		t.Fatalf("payment: %s", conn.LastError())
	}
	if !conn.CloseReceipt() {
		t.Fatalf("close: %s", conn.LastError())
	}
}

func TestXReportKeepsDailyTotal(t *testing.T) {
	sim, conn := newPair(t)

	ringUpSale(t, conn, 2.50, 2)
	if sim.DailyTotal() != 5.00 {
		t.Fatalf("daily total = %v, want 5.00", sim.DailyTotal())
	}

	if !conn.ReportX() {
		t.Fatalf("X report: %s", conn.LastError())
	}
	if sim.DailyTotal() != 5.00 {
		t.Fatalf("X report altered the daily total register: %v", sim.DailyTotal())
	}
}

func TestZReportResetsDailyTotal(t *testing.T) {
	sim, conn := newPair(t)

	ringUpSale(t, conn, 2.50, 2)
	if !conn.ReportZ() {
		t.Fatalf("Z report: %s", conn.LastError())
	}
	if sim.DailyTotal() != 0 {
		t.Fatalf("Z report must reset the register, got %v", sim.DailyTotal())
	}
}

func TestReportsShareCommandNumber(t *testing.T) {
	sim, conn := newPair(t)

	conn.ReportX()
	conn.ReportZ()

	log := sim.CommandLog()
	payloads := sim.PayloadLog()
	if len(log) != 2 || log[0] != datecs.CMD_REPORT || log[1] != datecs.CMD_REPORT {
		t.Fatalf("command log = %v, want two %d commands", log, datecs.CMD_REPORT)
	}
	if payloads[0] != "X" || payloads[1] != "Z" {
		t.Fatalf("payloads = %v, want [X Z]", payloads)
	}
}

func TestVoidedSaleDoesNotReachDailyTotal(t *testing.T) {
	sim, conn := newPair(t)

	conn.OpenReceipt(types.RECEIPT_TYPE_FISCAL, "")
	conn.AddSaleItem("Cafe", 9.99, 1, 1, datecs.DISCOUNT_NONE, 0, 1, "")
	if !conn.VoidReceipt() {
		t.Fatalf("void: %s", conn.LastError())
	}
	if sim.DailyTotal() != 0 {
		t.Fatalf("voided receipt leaked into the daily total: %v", sim.DailyTotal())
	}
}

func TestRejectsCorruptChecksum(t *testing.T) {
	sim, _ := newPair(t)

	frame := datecs.BuildFrame(32, datecs.CMD_STATUS, "")
	frame[len(frame)-2] = 'F' // corrupt the BCC
	frame[len(frame)-3] = 'F'

	raw, err := net.Dial("tcp", sim.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()

	if _, err := raw.Write(frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 64)
	n, err := raw.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	resp := datecs.ParseResponse(buf[:n])
	if resp.Success {
		t.Fatal("corrupt frame must not be accepted")
	}
}
