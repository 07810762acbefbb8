// Package datecs implements the framed binary protocol spoken by
// Datecs FP fiscal printers over TCP and exposes the receipt-level
// operation set on top of it.
package datecs

import (
	"bytes"
	"fmt"
)

// Protocol control bytes
const (
	SOH byte = 0x01 // frame start
	ETX byte = 0x03 // frame end
	ENQ byte = 0x05 // payload terminator, checksum follows
	TAB byte = 0x09 // field separator within payload
)

// Sequence and command byte offsets
const (
	SEQ_BASE   = 32  // first sequence value
	SEQ_MODULO = 255 // sequence rotates over [SEQ_BASE, SEQ_BASE+SEQ_MODULO)
	CMD_OFFSET = 32  // added to the command number on the wire
)

// Device command numbers
const (
	CMD_CLEAR_DISPLAY   = 33
	CMD_DISPLAY_LINE2   = 35
	CMD_NONFISCAL_OPEN  = 38
	CMD_NONFISCAL_CLOSE = 39
	CMD_NONFISCAL_TEXT  = 42
	CMD_DISPLAY_LINE1   = 47
	CMD_OPEN_RECEIPT    = 48
	CMD_SALE_ITEM       = 49
	CMD_SUBTOTAL        = 51
	CMD_PAYMENT         = 53
	CMD_FREE_TEXT       = 54
	CMD_CLOSE_RECEIPT   = 56
	CMD_VOID_RECEIPT    = 60
	CMD_SET_DATETIME    = 61
	CMD_REPORT          = 69 // X/Z distinguished by payload tag
	CMD_DIAGNOSTIC      = 71
	CMD_QRCODE          = 84 // sub-type tag "4" prepended to the data
	CMD_STATUS          = 90
	CMD_CASH_DRAWER     = 106
)

// QR code sub-type tag (command 84, first payload field)
const QRCODE_SUBTYPE = "4"

// Device text limits, characters after transliteration
const (
	MAX_ITEM_NAME_LEN    = 36
	MAX_TEXT_LINE_LEN    = 48
	MAX_DISPLAY_LINE_LEN = 20
)

// MAX_PAYLOAD_LEN is the longest payload one frame can carry: LEN is a
// single byte covering SEQ, CMD and the payload plus 3.
const MAX_PAYLOAD_LEN = 250

// SeqValue returns the rotating sequence value for the n-th command
// (0-based). Command n and command n+255 share a value.
func SeqValue(n int) int {
	return SEQ_BASE + n%SEQ_MODULO
}

// Checksum computes the BCC over the given bytes: the sum of byte
// values formatted as 4 uppercase hex digits. Sums beyond 16 bits are
// truncated by the fixed-width format, the device does the same.
func Checksum(data []byte) string {
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return fmt.Sprintf("%04X", sum&0xFFFF)
}

// BuildFrame assembles an outbound command frame:
//
//	SOH LEN SEQ CMD payload ENQ BCC ETX
//
// LEN covers SEQ+CMD+payload plus 3, as a single byte. BCC covers
// LEN through ENQ inclusive.
func BuildFrame(seq byte, command int, payload string) []byte {
	msg := make([]byte, 0, len(payload)+2)
	msg = append(msg, seq, byte(command+CMD_OFFSET))
	msg = append(msg, payload...)

	length := byte(len(msg) + 3)

	sum := make([]byte, 0, len(msg)+2)
	sum = append(sum, length)
	sum = append(sum, msg...)
	sum = append(sum, ENQ)

	frame := make([]byte, 0, len(msg)+9)
	frame = append(frame, SOH, length)
	frame = append(frame, msg...)
	frame = append(frame, ENQ)
	frame = append(frame, Checksum(sum)...)
	frame = append(frame, ETX)
	return frame
}

// Response is a parsed device reply
type Response struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`   // slice between the command byte and the ENQ marker
	Status  string `json:"status"` // trailing status/checksum region
	Error   string `json:"error,omitempty"`
}

// ParseResponse parses an inbound frame. Replies are laid out as
// SOH LEN CMD data ENQ BCC ETX, with the command byte at offset 2.
// A reply is ill-formed if shorter than 6 bytes after trimming, or if
// no ENQ marker is present after the command byte.
func ParseResponse(raw []byte) *Response {
	trimmed := bytes.Trim(raw, "\x00")
	if len(trimmed) < 6 {
		return &Response{Error: fmt.Sprintf("response too short: %d bytes", len(trimmed))}
	}

	enq := bytes.IndexByte(trimmed[3:], ENQ)
	if enq < 0 {
		return &Response{Error: "no ENQ marker in response"}
	}
	enq += 3

	status := string(bytes.TrimRight(trimmed[enq+1:], "\x03"))
	return &Response{
		Success: true,
		Data:    string(trimmed[3:enq]),
		Status:  status,
	}
}
