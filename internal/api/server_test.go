package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warungpos/print-bridge/internal/command"
	"github.com/warungpos/print-bridge/internal/printer"
	"github.com/warungpos/print-bridge/internal/settings"
	"github.com/warungpos/print-bridge/internal/share"
	"github.com/warungpos/print-bridge/internal/sheets"
	"github.com/warungpos/print-bridge/pkg/receipt"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

type fakeSession struct {
	snap        printer.Snapshot
	devices     []printer.ScanResult
	scanErr     error
	pairErr     error
	pairedID    string
	discErr     error
	disconnects int
	printErr    error
	payloads    [][]byte
}

func (f *fakeSession) Snapshot() printer.Snapshot { return f.snap }

func (f *fakeSession) Scan(ctx context.Context, window time.Duration) ([]printer.ScanResult, error) {
	return f.devices, f.scanErr
}

func (f *fakeSession) Pair(ctx context.Context, id string) error {
	if f.pairErr != nil {
		return f.pairErr
	}
	f.pairedID = id
	f.snap.Connection = printer.StateConnected
	f.snap.DeviceID = id
	return nil
}

func (f *fakeSession) Disconnect() error {
	f.disconnects++
	return f.discErr
}

func (f *fakeSession) Print(ctx context.Context, payload []byte) error {
	if f.printErr != nil {
		return f.printErr
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

var _ command.PrinterSession = (*fakeSession)(nil)

func idleSession() *fakeSession {
	return &fakeSession{snap: printer.Snapshot{
		Connection: printer.StateDisconnected,
		Print:      printer.PrintIdle,
	}}
}

func newTestServer(t *testing.T, session *fakeSession, gateway func() string) *Server {
	t.Helper()
	store := settings.New(filepath.Join(t.TempDir(), "settings.json"), time.Minute)
	appender, err := sheets.NewAppender(context.Background(), "", "", "")
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	forwarder := share.NewForwarder(gateway)
	return NewServer(Deps{
		Session:      session,
		Settings:     store,
		Share:        forwarder,
		Sheets:       appender,
		Executor:     command.NewExecutor(session, store, appender, forwarder, true),
		Hub:          NewHub(log),
		Log:          log,
		BLEAvailable: true,
		Version:      "test",
	})
}

func noGateway() string { return "" }

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "response: %s", w.Body.String())
	return out
}

func sampleReceipt() *receipt.Receipt {
	return &receipt.Receipt{
		ID: "INV-20250812-0042",
		Items: []receipt.Item{
			{Name: "Indomie Goreng", RetailPrice: 3500, Qty: 2},
			{Name: "Beras 5kg", RetailPrice: 72000, BulkPrice: 68000, Qty: 1, Tier: receipt.TierBulk},
		},
		Subtotal:      75000,
		Total:         75000,
		PaymentMethod: receipt.PaymentCash,
		CashReceived:  100000,
		Change:        25000,
		CreatedAt:     time.Date(2025, 8, 12, 14, 30, 0, 0, time.UTC),
		CustomerName:  "Bu Sari",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestStatusDisconnected(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodGet, "/api/status", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "disconnected", body["connection"])
	assert.Equal(t, "idle", body["print"])
	assert.Equal(t, true, body["ble"])
	features := body["features"].(map[string]interface{})
	assert.Equal(t, false, features["whatsapp"])
	assert.Equal(t, false, features["sheets"])
}

func TestScan(t *testing.T) {
	session := idleSession()
	session.devices = []printer.ScanResult{
		{ID: "AA:BB:CC:DD:EE:01", Name: "RPP02N", RSSI: -48, LikelyPrinter: true},
		{ID: "AA:BB:CC:DD:EE:02", Name: "MiBand", RSSI: -70},
	}
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodGet, "/api/scan?seconds=3", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, float64(2), body["count"])
	devices := body["devices"].([]interface{})
	first := devices[0].(map[string]interface{})
	assert.Equal(t, "RPP02N", first["name"])
}

func TestScanInvalidSeconds(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodGet, "/api/scan?seconds=soon", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPairExplicit(t *testing.T) {
	session := idleSession()
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/pair", map[string]string{"device_id": "AA:BB:CC:DD:EE:01"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", session.pairedID)
	body := decodeJSON(t, w)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", body["device_id"])
}

func TestPairAutoPick(t *testing.T) {
	session := idleSession()
	session.devices = []printer.ScanResult{
		{ID: "AA:BB:CC:DD:EE:01", Name: "RPP02N", RSSI: -48, LikelyPrinter: true},
	}
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/pair", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", session.pairedID)
}

func TestPairNoDevices(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/pair", nil)

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeJSON(t, w)
	assert.Contains(t, body["error"], "no printers found nearby")
}

func TestPairAlreadyConnected(t *testing.T) {
	session := idleSession()
	session.pairErr = printer.ErrAlreadyConnected
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/pair", map[string]string{"device_id": "AA:BB:CC:DD:EE:01"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDisconnect(t *testing.T) {
	session := idleSession()
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/disconnect", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, session.disconnects)
}

func TestPrint(t *testing.T) {
	session := idleSession()
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/print", map[string]interface{}{
		"receipt": sampleReceipt(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.NotEmpty(t, body["job_id"])
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "invoice", first["copy"])
	assert.Equal(t, true, first["ok"])

	require.Len(t, session.payloads, 1)
	assert.True(t, bytes.HasPrefix(session.payloads[0], []byte{0x1B, 0x40}))
}

func TestPrintBothCopies(t *testing.T) {
	session := idleSession()
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/print", map[string]interface{}{
		"receipt": sampleReceipt(),
		"copies":  []string{"invoice", "worker"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Len(t, body["results"], 2)
	assert.Len(t, session.payloads, 2)
}

func TestPrintUnknownCopy(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/print", map[string]interface{}{
		"receipt": sampleReceipt(),
		"copies":  []string{"kitchen"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrintInvalidReceipt(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	r := sampleReceipt()
	r.Items = nil
	w := doRequest(t, s, http.MethodPost, "/api/print", map[string]interface{}{"receipt": r})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeJSON(t, w)
	assert.Contains(t, body["error"], "invalid receipt")
}

func TestPrintBusy(t *testing.T) {
	session := idleSession()
	session.printErr = printer.ErrPrintBusy
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/print", map[string]interface{}{
		"receipt": sampleReceipt(),
	})

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeJSON(t, w)
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, false, first["ok"])
}

func TestPrintNoPairing(t *testing.T) {
	session := idleSession()
	session.printErr = printer.ErrNoPairedDevice
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/print", map[string]interface{}{
		"receipt": sampleReceipt(),
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestPrintTest(t *testing.T) {
	session := idleSession()
	s := newTestServer(t, session, noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/print/test", nil)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, session.payloads, 1)
	assert.True(t, bytes.HasPrefix(session.payloads[0], []byte{0x1B, 0x40}))
}

func TestRenderInvoice(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/render/invoice", map[string]interface{}{
		"receipt": sampleReceipt(),
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))
}

func TestRenderInvoiceInvalidMax(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/render/invoice?max=tiny", map[string]interface{}{
		"receipt": sampleReceipt(),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenderQR(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/render/qr", map[string]interface{}{
		"payload": "https://warungpos.id/struk/INV-20250812-0042",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))
}

func TestRenderQRMissingPayload(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/render/qr", map[string]interface{}{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRenderBarcode(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/render/barcode", map[string]interface{}{
		"receipt_id": "INV-20250812-0042",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), pngMagic))
}

func TestShareWhatsApp(t *testing.T) {
	var gotPhone, gotCaption, gotFilename string
	var gotImage []byte
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		gotPhone = r.FormValue("phone")
		gotCaption = r.FormValue("caption")
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotImage, err = io.ReadAll(file)
		require.NoError(t, err)
	}))
	defer gateway.Close()

	s := newTestServer(t, idleSession(), func() string { return gateway.URL })

	w := doRequest(t, s, http.MethodPost, "/api/share/whatsapp", map[string]interface{}{
		"receipt": sampleReceipt(),
		"phone":   "081234567890",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "6281234567890", gotPhone)
	assert.Contains(t, gotCaption, "INV-20250812-0042")
	assert.Equal(t, "receipt.png", gotFilename)
	assert.True(t, bytes.HasPrefix(gotImage, pngMagic))
}

func TestShareWhatsAppUnconfigured(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/share/whatsapp", map[string]interface{}{
		"receipt": sampleReceipt(),
		"phone":   "081234567890",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSyncSalesUnconfigured(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/sync/sales", map[string]interface{}{
		"receipt": sampleReceipt(),
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, "WARUNG POS", body["name"])

	w = doRequest(t, s, http.MethodPut, "/api/settings", map[string]interface{}{
		"name":    "Warung Bu Sari",
		"address": "Jl. Melati 12",
		"phone":   "0812-3456-7890",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	assert.Equal(t, "Warung Bu Sari", body["name"])
	assert.Equal(t, "Jl. Melati 12", body["address"])
}

func TestPutSettingsRequiresName(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPut, "/api/settings", map[string]interface{}{
		"address": "Jl. Melati 12",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommandEndpoint(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/command", map[string]string{"command": "status"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "disconnected", body["connection"])
}

func TestCommandUnknown(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)

	w := doRequest(t, s, http.MethodPost, "/api/command", map[string]string{"command": "reboot"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "unknown command")
}

func TestWebSocketBroadcast(t *testing.T) {
	s := newTestServer(t, idleSession(), noGateway)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	waitForClients(t, s.deps.Hub, 1)
	s.deps.Hub.Connected("AA:BB:CC:DD:EE:01", "RPP02N")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventConnectSuccess, msg.Event)
	assert.Equal(t, "AA:BB:CC:DD:EE:01", msg.Data["device_id"])
	assert.Equal(t, "RPP02N", msg.Data["device_name"])
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d websocket clients, have %d", want, hub.ClientCount())
}
