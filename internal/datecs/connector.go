package datecs

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"fpbridge/internal/logging"
	"fpbridge/pkg/types"
	"fpbridge/pkg/utils"
)

// Connector owns the TCP connection to one fiscal device, the rotating
// sequence counter and the receipt state machine. It is not safe for
// concurrent use; the bridge serializes all device access.
type Connector struct {
	config *types.Config
	logger *logging.Logger

	conn         net.Conn
	seqCounter   int
	receiptState types.ReceiptState
	operator     types.OperatorContext
	lastError    string
	lastResponse []byte
}

// NewConnector creates a connector for the device named in config.
// No connection is made until the first command needs one.
func NewConnector(config *types.Config, logger *logging.Logger) *Connector {
	return &Connector{
		config: config,
		logger: logger,
		operator: types.OperatorContext{
			Code:     config.OperatorCode,
			Password: config.OperatorPassword,
			Till:     config.OperatorTill,
		},
	}
}

// SetOperator replaces the operator context (last write wins)
func (c *Connector) SetOperator(op types.OperatorContext) {
	if op.Code != "" {
		c.operator.Code = op.Code
	}
	if op.Password != "" {
		c.operator.Password = op.Password
	}
	if op.Till != "" {
		c.operator.Till = op.Till
	}
}

// Operator returns the current operator context
func (c *Connector) Operator() types.OperatorContext {
	return c.operator
}

// LastError returns the most recent human-readable error message
func (c *Connector) LastError() string {
	return c.lastError
}

// LastResponseDump returns a hex dump of the last raw device reply
func (c *Connector) LastResponseDump() string {
	return utils.Dump(c.lastResponse)
}

// ReceiptState returns the tracked receipt lifecycle state. The device
// itself is the source of truth and can diverge if a command fails
// silently.
func (c *Connector) ReceiptState() types.ReceiptState {
	return c.receiptState
}

// IsReceiptOpen reports whether a fiscal receipt is tracked as open
func (c *Connector) IsReceiptOpen() bool {
	return c.receiptState == types.RECEIPT_STATE_OPEN
}

// IsConnected reports whether a device socket is held
func (c *Connector) IsConnected() bool {
	return c.conn != nil
}

// Connect opens a TCP socket to the device with symmetric read/write
// timeouts. A handle still held from an earlier group is closed before
// it is replaced, so a careless caller cannot leak sockets.
func (c *Connector) Connect(ip string, port int, timeout time.Duration) bool {
	c.Disconnect()

	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		c.fail(fmt.Sprintf("connect %s: %v", addr, err))
		return false
	}
	c.conn = conn
	c.logDebug(fmt.Sprintf("Connected to device %s", addr))
	return true
}

// ConnectDefault connects using the configured device address
func (c *Connector) ConnectDefault() bool {
	return c.Connect(c.config.DeviceIP, c.config.DevicePort, c.timeout())
}

// Disconnect closes the device socket; safe to call when already closed
func (c *Connector) Disconnect() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// NextSeq returns the sequence byte for the next command
func (c *Connector) NextSeq() byte {
	v := SeqValue(c.seqCounter)
	c.seqCounter++
	return byte(v)
}

// SendCommand frames one command, writes it and blocks for the reply
// within the bounded receive window. Auto-connects when no socket is
// held. Failures are reported through the returned Response and
// LastError, never panics.
func (c *Connector) SendCommand(command int, payload string) *Response {
	if len(payload) > MAX_PAYLOAD_LEN {
		c.fail(fmt.Sprintf("command %d: payload too long: %d bytes", command, len(payload)))
		return &Response{Error: c.lastError}
	}

	if !c.IsConnected() {
		if !c.ConnectDefault() {
			return &Response{Error: c.lastError}
		}
	}

	frame := BuildFrame(c.NextSeq(), command, payload)
	c.logFrame("TX", frame)

	c.conn.SetWriteDeadline(time.Now().Add(c.timeout()))
	if _, err := c.conn.Write(frame); err != nil {
		c.fail(fmt.Sprintf("write command %d: %v", command, err))
		return &Response{Error: c.lastError}
	}

	raw, err := c.receive()
	c.lastResponse = raw
	if err != nil {
		c.fail(fmt.Sprintf("command %d: %v", command, err))
		return &Response{Error: c.lastError}
	}
	c.logFrame("RX", raw)

	resp := ParseResponse(raw)
	if !resp.Success {
		c.fail(fmt.Sprintf("command %d: %s", command, resp.Error))
	}
	return resp
}

// receive accumulates reply bytes until an ETX shows up or the bounded
// window lapses. Empty reads are not fatal, the device can be slow to
// start its reply; worst case is PollAttempts * PollInterval.
func (c *Connector) receive() ([]byte, error) {
	interval := c.pollInterval()
	attempts := c.config.PollAttempts
	if attempts <= 0 {
		attempts = 50
	}
	deadline := time.Now().Add(time.Duration(attempts) * interval)

	var buf []byte
	tmp := make([]byte, 512)
	for {
		c.conn.SetReadDeadline(time.Now().Add(interval))
		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			if bytes.IndexByte(buf, ETX) >= 0 {
				return buf, nil
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); !ok || !ne.Timeout() {
				// hard socket error; keep what we already have
				if len(buf) > 0 {
					return buf, nil
				}
				return nil, fmt.Errorf("read: %w", err)
			}
		}
		if time.Now().After(deadline) {
			break
		}
	}

	if len(buf) == 0 {
		return nil, errors.New("no response from device")
	}
	return buf, nil
}

func (c *Connector) timeout() time.Duration {
	if c.config.DeviceTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.config.DeviceTimeout * float64(time.Second))
}

func (c *Connector) pollInterval() time.Duration {
	if c.config.PollInterval <= 0 {
		return 10 * time.Millisecond
	}
	return time.Duration(c.config.PollInterval * float64(time.Second))
}

func (c *Connector) fail(msg string) {
	c.lastError = msg
	if c.logger != nil {
		c.logger.Error(msg)
	}
}

func (c *Connector) logDebug(msg string) {
	if c.logger != nil {
		c.logger.Debug(msg)
	}
}

func (c *Connector) logFrame(direction string, data []byte) {
	if c.logger != nil {
		c.logger.LogFrame(direction, data)
	}
}
