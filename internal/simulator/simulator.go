// Package simulator emulates a Datecs FP fiscal printer on a TCP
// socket: it validates inbound frames, tracks receipt state and the
// cumulative daily total register, and answers with well-formed reply
// frames. Used by the test suite and the fpsim development binary.
package simulator

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"fpbridge/internal/datecs"
	"fpbridge/pkg/utils"
)

// Simulator is a single-device fiscal printer stand-in
type Simulator struct {
	listener net.Listener

	mutex        sync.Mutex
	receiptOpen  bool
	receiptTotal float64
	discount     float64
	dailyTotal   float64
	commandLog   []int
	payloadLog   []string
	counts       map[int]int
	failOn       map[int]int // command -> 1-based occurrence to NAK
	silent       bool
	closed       bool
}

// New creates a simulator; call Start to begin listening
func New() *Simulator {
	return &Simulator{
		counts: make(map[int]int),
		failOn: make(map[int]int),
	}
}

// Start listens on the given address ("127.0.0.1:0" picks a free port)
func (s *Simulator) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("simulator listen: %w", err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

// Stop closes the listener
func (s *Simulator) Stop() {
	s.mutex.Lock()
	s.closed = true
	s.mutex.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
}

// Addr returns the bound listen address
func (s *Simulator) Addr() string {
	return s.listener.Addr().String()
}

// Port returns the bound TCP port
func (s *Simulator) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// DailyTotal returns the cumulative daily total register
func (s *Simulator) DailyTotal() float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.dailyTotal
}

// CommandLog returns the command numbers received so far, in order
func (s *Simulator) CommandLog() []int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	log := make([]int, len(s.commandLog))
	copy(log, s.commandLog)
	return log
}

// PayloadLog returns the payloads received so far, parallel to CommandLog
func (s *Simulator) PayloadLog() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	log := make([]string, len(s.payloadLog))
	copy(log, s.payloadLog)
	return log
}

// FailOn makes the nth occurrence (1-based) of a command NAK
func (s *Simulator) FailOn(command, nth int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failOn[command] = nth
}

// SetSilent makes the simulator swallow frames without replying
func (s *Simulator) SetSilent(silent bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.silent = silent
}

func (s *Simulator) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Simulator) handleConn(conn net.Conn) {
	defer conn.Close()

	var acc []byte
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		acc = append(acc, buf[:n]...)

		for {
			frame, rest, ok := nextFrame(acc)
			if !ok {
				break
			}
			acc = rest
			if reply := s.process(frame); reply != nil {
				conn.Write(reply)
			}
		}
	}
}

// nextFrame extracts one complete SOH..ETX frame from the buffer
func nextFrame(acc []byte) (frame, rest []byte, ok bool) {
	start := bytes.IndexByte(acc, datecs.SOH)
	if start < 0 {
		return nil, acc, false
	}
	end := bytes.IndexByte(acc[start:], datecs.ETX)
	if end < 0 {
		return nil, acc, false
	}
	end += start
	return acc[start : end+1], acc[end+1:], true
}

// process parses a command frame and produces the reply bytes
func (s *Simulator) process(frame []byte) []byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(frame) < 9 {
		return s.nak()
	}

	command := int(frame[3]) - datecs.CMD_OFFSET

	enq := bytes.IndexByte(frame[4:], datecs.ENQ)
	if enq < 0 {
		return s.nak()
	}
	enq += 4
	payload := string(frame[4:enq])

	// Verify the BCC over LEN..ENQ
	if len(frame) < enq+6 {
		return s.nak()
	}
	wantBCC := string(frame[enq+1 : enq+5])
	if datecs.Checksum(frame[1:enq+1]) != wantBCC {
		return s.nak()
	}

	s.commandLog = append(s.commandLog, command)
	s.payloadLog = append(s.payloadLog, payload)
	s.counts[command]++

	if s.silent {
		return nil
	}
	if nth, scripted := s.failOn[command]; scripted && s.counts[command] == nth {
		return s.nak()
	}

	return s.execute(command, payload)
}

func (s *Simulator) execute(command int, payload string) []byte {
	switch command {
	case datecs.CMD_OPEN_RECEIPT:
		if s.receiptOpen {
			return s.nak()
		}
		s.receiptOpen = true
		s.receiptTotal = 0
		s.discount = 0
		return s.reply(command, "1")

	case datecs.CMD_SALE_ITEM:
		if !s.receiptOpen {
			return s.nak()
		}
		f := strings.Split(payload, "\t")
		if len(f) >= 4 {
			price, _ := strconv.ParseFloat(f[2], 64)
			qty, _ := strconv.ParseFloat(f[3], 64)
			s.receiptTotal += utils.Round2(price * qty)
		}
		return s.reply(command, utils.FormatPrice(s.receiptTotal))

	case datecs.CMD_SUBTOTAL:
		if !s.receiptOpen {
			return s.nak()
		}
		f := strings.Split(payload, "\t")
		if len(f) >= 4 && f[2] == strconv.Itoa(datecs.DISCOUNT_PERCENT) {
			pct, _ := strconv.ParseFloat(f[3], 64)
			s.discount = utils.Round2(s.receiptTotal * pct / 100)
		}
		return s.reply(command, utils.FormatPrice(s.receiptTotal-s.discount))

	case datecs.CMD_PAYMENT:
		if !s.receiptOpen {
			return s.nak()
		}
		return s.reply(command, "0.00")

	case datecs.CMD_CLOSE_RECEIPT:
		if !s.receiptOpen {
			return s.nak()
		}
		s.dailyTotal += s.receiptTotal - s.discount
		s.receiptOpen = false
		return s.reply(command, "1")

	case datecs.CMD_VOID_RECEIPT:
		if !s.receiptOpen {
			return s.nak()
		}
		s.receiptOpen = false
		return s.reply(command, "1")

	case datecs.CMD_REPORT:
		total := utils.FormatPrice(s.dailyTotal)
		switch payload {
		case "X":
			return s.reply(command, total)
		case "Z":
			s.dailyTotal = 0
			return s.reply(command, total)
		}
		return s.nak()

	case datecs.CMD_STATUS:
		open := "0"
		if s.receiptOpen {
			open = "1"
		}
		return s.reply(command, "FP-700\t"+open)

	default:
		// display, drawer, text, QR, diagnostic, datetime: acknowledge
		return s.reply(command, "1")
	}
}

// reply builds a response frame: SOH LEN CMD data ENQ BCC ETX
func (s *Simulator) reply(command int, data string) []byte {
	msg := make([]byte, 0, len(data)+1)
	msg = append(msg, byte(command+datecs.CMD_OFFSET))
	msg = append(msg, data...)

	length := byte(len(msg) + 3)

	sum := make([]byte, 0, len(msg)+2)
	sum = append(sum, length)
	sum = append(sum, msg...)
	sum = append(sum, datecs.ENQ)

	frame := make([]byte, 0, len(msg)+8)
	frame = append(frame, datecs.SOH, length)
	frame = append(frame, msg...)
	frame = append(frame, datecs.ENQ)
	frame = append(frame, datecs.Checksum(sum)...)
	frame = append(frame, datecs.ETX)
	return frame
}

// nak is a deliberately ill-formed short reply; the connector reports
// it as a failed command
func (s *Simulator) nak() []byte {
	return []byte{0x15, datecs.ETX}
}
