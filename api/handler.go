package api

import (
	"errors"
	"net/http"

	"bricksync/internal/connectivity"
	"bricksync/internal/loader"
	"bricksync/internal/mutation"
	"bricksync/internal/remote"
	"bricksync/internal/sales"
	"bricksync/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// syncHandler exposes loads, mutations and settings over HTTP.
type syncHandler struct {
	loader    *loader.Loader
	mutations *mutation.Client
	resolver  *connectivity.Resolver
	prefs     *storage.Preferences
	screen    *Screen
	logger    *zap.Logger
}

// NewSyncHandler creates a new handler drawing into screen.
func NewSyncHandler(l *loader.Loader, m *mutation.Client, r *connectivity.Resolver, prefs *storage.Preferences, screen *Screen, logger *zap.Logger) *syncHandler {
	return &syncHandler{
		loader:    l,
		mutations: m,
		resolver:  r,
		prefs:     prefs,
		screen:    screen,
		logger:    logger,
	}
}

// handleLoadView handles GET /views/:view.
func (h *syncHandler) handleLoadView(ctx *gin.Context) {
	view, err := loader.ParseView(ctx.Param("view"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	out, err := h.loader.Load(ctx.Request.Context(), view, h.screen)
	switch {
	case errors.Is(err, loader.ErrSuperseded):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error(), "outcome": out})
		return
	case err != nil:
		ctx.JSON(statusFor(err), gin.H{"error": err.Error(), "outcome": out})
		return
	}

	if err := h.prefs.SetActiveTab(ctx.Request.Context(), view.String()); err != nil {
		h.logger.Warn("persist active tab", zap.Error(err))
	}
	ctx.JSON(http.StatusOK, gin.H{"outcome": out, "screen": h.screen.Contents()})
}

func (h *syncHandler) handleScreen(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.screen.Contents())
}

// handleCreateCustomer handles POST /customers.
func (h *syncHandler) handleCreateCustomer(ctx *gin.Context) {
	var req sales.Customer
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	customer, err := h.mutations.CreateCustomer(ctx.Request.Context(), req.Name, h.screen)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, customer)
}

// handleCreateSale handles POST /sales.
func (h *syncHandler) handleCreateSale(ctx *gin.Context) {
	var req sales.Sale
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	sale, err := h.mutations.CreateSale(ctx.Request.Context(), req, h.screen)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, sale)
}

// handleCreatePayment handles POST /payments.
func (h *syncHandler) handleCreatePayment(ctx *gin.Context) {
	var req sales.Payment
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	payment, err := h.mutations.CreatePayment(ctx.Request.Context(), req, h.screen)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, payment)
}

func (h *syncHandler) handleDeleteCustomer(ctx *gin.Context) {
	key := ctx.Param("key")
	if err := h.mutations.DeleteCustomer(ctx.Request.Context(), key, h.screen); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "customer deleted", "key": key})
}

func (h *syncHandler) handleDeleteSale(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := h.mutations.DeleteSale(ctx.Request.Context(), id, h.screen); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "sale deleted", "id": id})
}

func (h *syncHandler) handleDeletePayment(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := h.mutations.DeletePayment(ctx.Request.Context(), id, h.screen); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "payment deleted", "id": id})
}

func (h *syncHandler) handleClearLogs(ctx *gin.Context) {
	if err := h.mutations.ClearLogs(ctx.Request.Context(), h.screen); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "logs cleared"})
}

type settingsResponse struct {
	connectivity.Snapshot
	ActiveTab string `json:"activeTab,omitempty"`
	LocalLogs bool   `json:"localLogs"`
}

func (h *syncHandler) settings(ctx *gin.Context) settingsResponse {
	tab, err := h.prefs.ActiveTab(ctx.Request.Context())
	if err != nil {
		h.logger.Warn("read active tab", zap.Error(err))
	}
	return settingsResponse{
		Snapshot:  h.resolver.State().Snapshot(),
		ActiveTab: tab,
		LocalLogs: h.loader.LocalLogs(),
	}
}

func (h *syncHandler) handleGetSettings(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.settings(ctx))
}

// handlePutSettings handles PUT /settings. A device type switches to the
// matching endpoint; a base URL overrides it.
func (h *syncHandler) handlePutSettings(ctx *gin.Context) {
	var req struct {
		BaseURL    *string `json:"baseUrl"`
		DeviceType *string `json:"deviceType"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if req.DeviceType != nil {
		if _, err := h.resolver.ApplyDevice(ctx.Request.Context(), *req.DeviceType); err != nil {
			ctx.JSON(statusFor(err), gin.H{"error": err.Error(), "settings": h.settings(ctx)})
			return
		}
	}
	if req.BaseURL != nil {
		if _, err := h.resolver.Override(ctx.Request.Context(), *req.BaseURL); err != nil {
			writeError(ctx, err)
			return
		}
	}
	ctx.JSON(http.StatusOK, h.settings(ctx))
}

// handleResolve handles POST /settings/resolve.
func (h *syncHandler) handleResolve(ctx *gin.Context) {
	base, err := h.resolver.Resolve(ctx.Request.Context())
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"baseUrl": base})
}

// writeError maps an error to a status code and a JSON body.
func writeError(ctx *gin.Context, err error) {
	var (
		verr *sales.ValidationError
		rerr *mutation.ReferentialIntegrityError
	)
	switch {
	case errors.As(err, &verr):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.As(err, &rerr):
		ctx.JSON(http.StatusConflict, gin.H{"error": rerr.Error(), "sales": rerr.Sales, "payments": rerr.Payments})
	default:
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
	}
}

// statusFor is 503 when no endpoint answers, the upstream status for 4xx
// responses and 502 for anything else that went wrong upstream.
func statusFor(err error) int {
	var herr *remote.HTTPError
	switch {
	case errors.Is(err, loader.ErrNoEndpoint), errors.Is(err, connectivity.ErrUnresolved):
		return http.StatusServiceUnavailable
	case errors.Is(err, connectivity.ErrInvalidURL), errors.Is(err, connectivity.ErrUnknownDevice):
		return http.StatusBadRequest
	case errors.As(err, &herr):
		if herr.StatusCode >= 400 && herr.StatusCode < 500 {
			return herr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
