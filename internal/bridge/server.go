package bridge

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fpbridge/internal/datecs"
	"fpbridge/internal/journal"
	"fpbridge/internal/logging"
	"fpbridge/pkg/types"
)

// request is the decoded JSON body of one bridge call. Malformed or
// missing bodies decode to an empty map, never to an error: the POS
// client omits optional fields freely and expects defaults.
type request map[string]interface{}

// response is the flat JSON object written back. Every response
// carries "success"; failed ones carry "error" on top.
type response map[string]interface{}

type handlerFunc func(req request) response

// Server is the HTTP face of the bridge. One device, one mutex: each
// handler holds the lock for its whole device conversation, so the
// command order on the wire matches HTTP arrival order.
type Server struct {
	config    *types.Config
	logger    *logging.Logger
	connector *datecs.Connector
	journal   *journal.Journal
	hub       *Hub

	routes    map[string]handlerFunc
	deviceMu  sync.Mutex
	startTime time.Time
}

// NewServer wires the connector, journal and websocket hub into a
// routing table. The journal may be nil (journaling disabled).
func NewServer(config *types.Config, logger *logging.Logger, connector *datecs.Connector, jrnl *journal.Journal) *Server {
	s := &Server{
		config:    config,
		logger:    logger,
		connector: connector,
		journal:   jrnl,
		hub:       NewHub(logger),
		startTime: time.Now(),
	}
	s.routes = map[string]handlerFunc{
		"/":                 s.handleStatus,
		"/status":           s.handleStatus,
		"/ping":             s.handlePing,
		"/receipt/open":     s.handleReceiptOpen,
		"/receipt/item":     s.handleReceiptItem,
		"/receipt/subtotal": s.handleReceiptSubtotal,
		"/receipt/payment":  s.handleReceiptPayment,
		"/receipt/close":    s.handleReceiptClose,
		"/receipt/void":     s.handleReceiptVoid,
		"/receipt/text":     s.handleReceiptText,
		"/receipt/qrcode":   s.handleReceiptQRCode,
		"/sale":             s.handleSale,
		"/nonfiscal/open":   s.handleNonFiscalOpen,
		"/nonfiscal/text":   s.handleNonFiscalText,
		"/nonfiscal/close":  s.handleNonFiscalClose,
		"/punktepass/info":  s.handlePunktePassInfo,
		"/report/x":         s.handleReportX,
		"/report/z":         s.handleReportZ,
		"/drawer/open":      s.handleDrawerOpen,
		"/display":          s.handleDisplay,
		"/display/clear":    s.handleDisplayClear,
		"/diagnostic":       s.handleDiagnostic,
		"/operator":         s.handleOperator,
		"/datetime":         s.handleDateTime,
		"/journal":          s.handleJournal,
		"/logs":             s.handleLogs,
	}
	return s
}

// Run starts the listener and blocks until it fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.HTTPAddr, s.config.HTTPPort)
	if s.logger != nil {
		s.logger.Info(fmt.Sprintf("Bridge listening on http://%s", addr))
	}
	return http.ListenAndServe(addr, s)
}

// ServeHTTP dispatches by exact path. The contract is fixed by the
// shipped POS client: CORS on everything, OPTIONS answered before
// routing, HTTP status always 200, errors only inside the JSON body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.URL.Path == "/ws" {
		s.hub.ServeWS(w, r)
		return
	}

	req := decodeBody(r.Body)

	handler, ok := s.routes[r.URL.Path]
	if !ok {
		s.writeJSON(w, response{
			"success": false,
			"error":   fmt.Sprintf("Unknown endpoint: %s", r.URL.Path),
		})
		return
	}

	s.deviceMu.Lock()
	resp := handler(req)
	// Each request is one operation group; the device socket never
	// stays open across unrelated requests.
	s.connector.Disconnect()
	s.deviceMu.Unlock()

	s.writeJSON(w, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, resp response) {
	body, err := json.Marshal(resp)
	if err != nil {
		body = []byte(`{"success":false,"error":"response encoding failed"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func decodeBody(body io.Reader) request {
	req := request{}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return req
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return request{}
	}
	return req
}

// Field accessors with explicit defaults. JSON numbers arrive as
// float64; numeric strings from older POS clients are accepted too.

func (r request) getString(key, def string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return def
}

func (r request) getFloat(key string, def float64) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (r request) getInt(key string, def int) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (r request) getBool(key string, def bool) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return def
}
