// Package api exposes the bridge to the POS UI: REST endpoints for printing,
// rendering and settings, a WebSocket event stream, and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warungpos/print-bridge/internal/command"
	"github.com/warungpos/print-bridge/internal/escpos"
	"github.com/warungpos/print-bridge/internal/printer"
	"github.com/warungpos/print-bridge/internal/render"
	"github.com/warungpos/print-bridge/internal/settings"
	"github.com/warungpos/print-bridge/internal/share"
	"github.com/warungpos/print-bridge/internal/sheets"
	"github.com/warungpos/print-bridge/pkg/receipt"
)

// Share images are bounded to this dimension before leaving the bridge.
const shareMaxDim = 1080

// Deps are the collaborators the API surfaces.
type Deps struct {
	Session      command.PrinterSession
	Settings     *settings.Store
	Share        *share.Forwarder
	Sheets       sheets.Appender
	Executor     *command.Executor
	Hub          *Hub
	Log          *slog.Logger
	BLEAvailable bool
	Version      string
}

// Server is the HTTP API server.
type Server struct {
	router *gin.Engine
	deps   Deps
	log    *slog.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Hub == nil {
		deps.Hub = NewHub(deps.Log)
	}

	router := gin.Default()
	router.Use(corsMiddleware())

	s := &Server{
		router: router,
		deps:   deps,
		log:    deps.Log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	apiGroup := s.router.Group("/api")
	{
		apiGroup.GET("/status", s.handleStatus)
		apiGroup.GET("/scan", s.handleScan)
		apiGroup.POST("/pair", s.handlePair)
		apiGroup.POST("/disconnect", s.handleDisconnect)
		apiGroup.POST("/print", s.handlePrint)
		apiGroup.POST("/print/test", s.handlePrintTest)
		apiGroup.POST("/render/invoice", s.handleRenderInvoice)
		apiGroup.POST("/render/qr", s.handleRenderQR)
		apiGroup.POST("/render/barcode", s.handleRenderBarcode)
		apiGroup.POST("/share/whatsapp", s.handleShareWhatsApp)
		apiGroup.POST("/sync/sales", s.handleSyncSales)
		apiGroup.GET("/settings", s.handleGetSettings)
		apiGroup.PUT("/settings", s.handlePutSettings)
		apiGroup.POST("/command", s.handleCommand)
	}

	s.router.GET("/ws", s.deps.Hub.HandleWS)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler exposes the router for http.Server wiring and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// statusForError maps session errors to HTTP status codes: contention is a
// conflict, everything else on the printer path is a bad gateway.
func statusForError(err error) int {
	if errors.Is(err, printer.ErrPrintBusy) || errors.Is(err, printer.ErrAlreadyConnected) {
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.deps.Version,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.deps.Session.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"connection":  snap.Connection,
		"print":       snap.Print,
		"ble":         s.deps.BLEAvailable,
		"device_id":   snap.DeviceID,
		"device_name": snap.DeviceName,
		"paired":      snap.Paired,
		"ws_clients":  s.deps.Hub.ClientCount(),
		"features": gin.H{
			"whatsapp": s.deps.Share != nil && s.deps.Share.Configured(),
			"sheets":   s.deps.Sheets != nil && s.deps.Sheets.Enabled(),
		},
	})
}

func (s *Server) handleScan(c *gin.Context) {
	var window time.Duration
	if raw := c.Query("seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid seconds: %s", raw)})
			return
		}
		window = time.Duration(seconds) * time.Second
	}

	devices, err := s.deps.Session.Scan(c.Request.Context(), window)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	s.deps.Hub.Broadcast(EventScanResult, map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *Server) handlePair(c *gin.Context) {
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := req.DeviceID
	if id == "" {
		devices, err := s.deps.Session.Scan(c.Request.Context(), 0)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		if len(devices) == 0 {
			c.JSON(http.StatusBadGateway, gin.H{"error": "no printers found nearby"})
			return
		}
		id = devices[0].ID
	}

	if err := s.deps.Session.Pair(c.Request.Context(), id); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	snap := s.deps.Session.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"device_id":   snap.DeviceID,
		"device_name": snap.DeviceName,
	})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	if err := s.deps.Session.Disconnect(); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handlePrint(c *gin.Context) {
	var req struct {
		Receipt       *receipt.Receipt   `json:"receipt" binding:"required"`
		Copies        []string           `json:"copies"`
		StoreOverride *receipt.StoreInfo `json:"store_override"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := receipt.Validate(req.Receipt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid receipt: %v", err)})
		return
	}

	copies := req.Copies
	if len(copies) == 0 {
		copies = []string{"invoice"}
	}

	store := req.StoreOverride
	if store == nil {
		profile, err := s.deps.Settings.Get()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load settings: %v", err)})
			return
		}
		store = &receipt.StoreInfo{Name: profile.Name, Address: profile.Address, Phone: profile.Phone}
	}

	jobID := uuid.NewString()
	results := make([]gin.H, 0, len(copies))
	for _, name := range copies {
		var payload []byte
		switch strings.TrimSpace(name) {
		case "invoice":
			payload = escpos.EncodeInvoice(req.Receipt, store)
		case "worker":
			payload = escpos.EncodeWorkerCopy(req.Receipt)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown copy: %s (use invoice, worker)", name)})
			return
		}

		if err := s.deps.Session.Print(c.Request.Context(), payload); err != nil {
			results = append(results, gin.H{"copy": name, "ok": false, "error": err.Error()})
			c.JSON(statusForError(err), gin.H{
				"job_id":  jobID,
				"results": results,
			})
			return
		}
		results = append(results, gin.H{"copy": name, "ok": true})
	}

	s.syncSaleAsync(req.Receipt)

	c.JSON(http.StatusOK, gin.H{
		"job_id":  jobID,
		"results": results,
	})
}

// syncSaleAsync appends the sale to the spreadsheet without holding up the
// print response. Failures are logged, never surfaced to the till.
func (s *Server) syncSaleAsync(r *receipt.Receipt) {
	if s.deps.Sheets == nil || !s.deps.Sheets.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.deps.Sheets.Append(ctx, r); err != nil {
			s.log.Warn("failed to sync sale", "receipt", r.ID, "error", err)
		}
	}()
}

func (s *Server) handlePrintTest(c *gin.Context) {
	profile, err := s.deps.Settings.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load settings: %v", err)})
		return
	}

	if err := s.deps.Session.Print(c.Request.Context(), escpos.EncodeTestPage(profile.Name)); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleRenderInvoice(c *gin.Context) {
	var req struct {
		Receipt       *receipt.Receipt   `json:"receipt" binding:"required"`
		StoreOverride *receipt.StoreInfo `json:"store_override"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := receipt.Validate(req.Receipt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid receipt: %v", err)})
		return
	}

	profile, err := s.deps.Settings.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load settings: %v", err)})
		return
	}
	profile = overlayStore(profile, req.StoreOverride)

	img, err := render.Invoice(req.Receipt, profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to render: %v", err)})
		return
	}

	if raw := c.Query("max"); raw != "" {
		maxDim, err := strconv.Atoi(raw)
		if err != nil || maxDim <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid max: %s", raw)})
			return
		}
		img = render.Downscale(img, maxDim)
	}

	data, err := render.EncodePNG(img)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to encode: %v", err)})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) handleRenderQR(c *gin.Context) {
	var req struct {
		Payload string `json:"payload" binding:"required"`
		Size    int    `json:"size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := render.QR(req.Payload, req.Size)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) handleRenderBarcode(c *gin.Context) {
	var req struct {
		ReceiptID string `json:"receipt_id" binding:"required"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := render.Barcode(req.ReceiptID, req.Width, req.Height)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func (s *Server) handleShareWhatsApp(c *gin.Context) {
	var req struct {
		Receipt *receipt.Receipt `json:"receipt" binding:"required"`
		Phone   string           `json:"phone" binding:"required"`
		Caption string           `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := receipt.Validate(req.Receipt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid receipt: %v", err)})
		return
	}

	profile, err := s.deps.Settings.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load settings: %v", err)})
		return
	}

	img, err := render.Invoice(req.Receipt, profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to render: %v", err)})
		return
	}
	png, err := render.EncodePNG(render.Downscale(img, shareMaxDim))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to encode: %v", err)})
		return
	}

	caption := req.Caption
	if caption == "" {
		caption = fmt.Sprintf("Struk %s - %s", req.Receipt.ID, profile.Name)
	}

	if err := s.deps.Share.Forward(c.Request.Context(), req.Phone, caption, png); err != nil {
		if errors.Is(err, share.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleSyncSales(c *gin.Context) {
	var req struct {
		Receipt *receipt.Receipt `json:"receipt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := receipt.Validate(req.Receipt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid receipt: %v", err)})
		return
	}

	if err := s.deps.Sheets.Append(c.Request.Context(), req.Receipt); err != nil {
		if errors.Is(err, sheets.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	profile, err := s.deps.Settings.Get()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load settings: %v", err)})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var profile settings.StoreProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if profile.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := s.deps.Settings.Put(profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save settings: %v", err)})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) handleCommand(c *gin.Context) {
	var req struct {
		Command string `json:"command" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}

	result := s.deps.Executor.Execute(c.Request.Context(), req.Command)
	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   result.Error,
		})
		return
	}

	response := gin.H{"success": true}
	if result.Message != "" {
		response["message"] = result.Message
	}
	if result.Data != nil {
		for k, v := range result.Data {
			response[k] = v
		}
	}
	c.JSON(http.StatusOK, response)
}

// overlayStore applies a per-request store override on top of the profile.
func overlayStore(profile settings.StoreProfile, o *receipt.StoreInfo) settings.StoreProfile {
	if o == nil {
		return profile
	}
	if o.Name != "" {
		profile.Name = o.Name
	}
	if o.Address != "" {
		profile.Address = o.Address
	}
	if o.Phone != "" {
		profile.Phone = o.Phone
	}
	return profile
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
