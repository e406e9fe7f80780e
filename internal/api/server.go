// Package api provides the HTTP API for observing and playing a session.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/forge-factory/internal/catalog"
	"github.com/talgya/forge-factory/internal/engine"
	"github.com/talgya/forge-factory/internal/inventory"
	"github.com/talgya/forge-factory/internal/persistence"
	"github.com/talgya/forge-factory/internal/player"
	"github.com/talgya/forge-factory/internal/production"
)

// maxSpeed bounds the engine speed multiplier accepted over HTTP.
const maxSpeed = 1000

// Server serves a session over HTTP.
type Server struct {
	Session  *engine.Session
	Eng      *engine.Engine
	Saver    *engine.Saver
	Registry *prometheus.Registry
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Per-IP limits for POST endpoints.
	RateLimit float64
	Burst     int

	srv *http.Server
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	limiter := NewRateLimiter(s.RateLimit, s.Burst)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return RateLimitMiddleware(limiter, s.adminOnly(h))
	}

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/inventory", s.handleInventory)
	mux.HandleFunc("/api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("/api/v1/machines", admin(s.handleMachines))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/craft", admin(postOnly(s.handleCraft)))
	mux.HandleFunc("/api/v1/machines/recipe", admin(postOnly(s.handleSetRecipe)))
	mux.HandleFunc("/api/v1/machines/resource", admin(postOnly(s.handleSetResource)))
	mux.HandleFunc("/api/v1/machines/repair", admin(postOnly(s.handleRepair)))
	mux.HandleFunc("/api/v1/machines/maintain", admin(postOnly(s.handleMaintain)))
	mux.HandleFunc("/api/v1/machines/upgrade", admin(postOnly(s.handleUpgrade)))
	mux.HandleFunc("/api/v1/machines/withdraw", admin(postOnly(s.handleWithdraw)))
	mux.HandleFunc("/api/v1/machines/deposit", admin(postOnly(s.handleDeposit)))
	mux.HandleFunc("/api/v1/market/buy", admin(postOnly(s.handleBuy)))
	mux.HandleFunc("/api/v1/market/sell", admin(postOnly(s.handleSell)))
	mux.HandleFunc("/api/v1/speed", admin(s.handleSpeed))
	mux.HandleFunc("/api/v1/save", admin(postOnly(s.handleSave)))
	mux.HandleFunc("/api/v1/slots", admin(s.handleSlots))

	if s.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops a started server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// corsMiddleware adds CORS headers for the origins listed in the
// comma-separated CORS_ORIGINS env var. No origin is allowed by default.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool)
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no FORGE_API_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, player.ErrNotEnoughMoney):
		status = http.StatusPaymentRequired
	case errors.Is(err, engine.ErrUnknownMachine),
		errors.Is(err, persistence.ErrSlotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrOccupied),
		errors.Is(err, engine.ErrNotVersatile),
		errors.Is(err, engine.ErrFullDurability),
		errors.Is(err, production.ErrBonusCapped),
		errors.Is(err, production.ErrMachineFull):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNoStorage):
		status = http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrUnknownItem),
		errors.Is(err, catalog.ErrUnknownRecipe),
		errors.Is(err, catalog.ErrUnknownResource),
		errors.Is(err, production.ErrUnknownBonus),
		errors.Is(err, production.ErrWrongKind),
		errors.Is(err, player.ErrMissingIngredients),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrNotFound):
	default:
		slog.Error("request failed", "error", err)
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		engine.Status
		Speed float64 `json:"speed"`
	}{Status: s.Session.Status()}
	if s.Eng != nil {
		status.Speed = s.Eng.Speed()
	}
	writeJSON(w, status)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Inventory())
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	type recipeEntry struct {
		Index  int    `json:"index"`
		Recipe string `json:"recipe"`
		Time   int    `json:"time"`
	}
	type resourceEntry struct {
		Index int              `json:"index"`
		Item  catalog.ItemKind `json:"item"`
		Yield int              `json:"yield"`
	}

	cat := s.Session.Catalog
	recipes := make([]recipeEntry, 0)
	for i, rc := range cat.Recipes() {
		recipes = append(recipes, recipeEntry{Index: i, Recipe: rc.String(), Time: rc.Time})
	}
	resources := make([]resourceEntry, 0)
	for i, it := range cat.Resources() {
		resources = append(resources, resourceEntry{Index: i, Item: it.Kind, Yield: it.Yield})
	}
	writeJSON(w, map[string]any{
		"digest":    cat.Digest(),
		"items":     cat.Items(),
		"recipes":   recipes,
		"resources": resources,
	})
}

// machineRequest addresses one machine; the other fields are used by the
// endpoints that need them.
type machineRequest struct {
	Row      int              `json:"row"`
	Col      int              `json:"col"`
	Kind     string           `json:"kind,omitempty"`
	Bonus    string           `json:"bonus,omitempty"`
	Index    int              `json:"index,omitempty"`
	Item     catalog.ItemKind `json:"item,omitempty"`
	Quantity int              `json:"quantity,omitempty"`
}

func (m machineRequest) pos() production.Position {
	return production.Position{Row: m.Row, Col: m.Col}
}

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.Session.Machines())
	case http.MethodPost:
		var req machineRequest
		if !decode(w, r, &req) {
			return
		}
		var kind production.Kind
		switch req.Kind {
		case production.KindFactory.String():
			kind = production.KindFactory
		case production.KindHarvester.String():
			kind = production.KindHarvester
		default:
			http.Error(w, "kind must be factory or harvester", http.StatusBadRequest)
			return
		}
		view, err := s.Session.BuyMachine(req.pos(), kind, production.Bonus(req.Bonus))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, view)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// machineAction decodes a machineRequest, applies fn and answers with the
// machine's new state.
func (s *Server) machineAction(fn func(req machineRequest) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req machineRequest
		if !decode(w, r, &req) {
			return
		}
		if err := fn(req); err != nil {
			writeError(w, err)
			return
		}
		view, err := s.Session.Machine(req.pos())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, view)
	}
}

func (s *Server) handleSetRecipe(w http.ResponseWriter, r *http.Request) {
	s.machineAction(func(req machineRequest) error {
		return s.Session.SetRecipe(req.pos(), req.Index)
	})(w, r)
}

func (s *Server) handleSetResource(w http.ResponseWriter, r *http.Request) {
	s.machineAction(func(req machineRequest) error {
		return s.Session.SetResource(req.pos(), req.Index)
	})(w, r)
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	s.machineAction(func(req machineRequest) error {
		return s.Session.Repair(req.pos())
	})(w, r)
}

func (s *Server) handleMaintain(w http.ResponseWriter, r *http.Request) {
	s.machineAction(func(req machineRequest) error {
		return s.Session.Maintain(req.pos())
	})(w, r)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	s.machineAction(func(req machineRequest) error {
		return s.Session.Upgrade(req.pos(), production.Bonus(req.Bonus))
	})(w, r)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.machineAction(func(req machineRequest) error {
		return s.Session.Withdraw(req.pos(), req.Item, req.Quantity)
	})(w, r)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.machineAction(func(req machineRequest) error {
		return s.Session.Deposit(req.pos(), req.Item, req.Quantity)
	})(w, r)
}

func (s *Server) handleCraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Recipe int `json:"recipe"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Session.Craft(req.Recipe); err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, s.Session.Status())
}

type marketRequest struct {
	Item     catalog.ItemKind `json:"item"`
	Quantity int              `json:"quantity"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req marketRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Session.Buy(req.Item, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.Session.Inventory())
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req marketRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Session.Sell(req.Item, req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, s.Session.Inventory())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not available", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Speed < 0 || req.Speed > maxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%d", maxSpeed), http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
	}
	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.Saver == nil {
		writeError(w, engine.ErrNoStorage)
		return
	}
	if err := s.Saver.SaveFile(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"tick":    s.Session.Status().Tick,
		"path":    s.Saver.Path,
		"message": "game saved",
	})
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	if s.Saver == nil || s.Saver.DB == nil {
		writeError(w, engine.ErrNoStorage)
		return
	}
	switch r.Method {
	case http.MethodGet:
		slots, err := s.Saver.DB.ListSlots()
		if err != nil {
			writeError(w, err)
			return
		}
		if slots == nil {
			slots = []persistence.Slot{}
		}
		writeJSON(w, slots)
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if !decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, "slot name required", http.StatusBadRequest)
			return
		}
		slot, err := s.Saver.SaveSlot(req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, slot)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
