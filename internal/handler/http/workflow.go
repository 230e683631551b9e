package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dfgutierrez/sigr-sales/internal/service"
	"github.com/dfgutierrez/sigr-sales/pkg/httputil"
	"github.com/dfgutierrez/sigr-sales/pkg/middleware"
	"github.com/dfgutierrez/sigr-sales/pkg/validator"
)

const maxBodySize = 1 << 20 // 1MB

// WorkflowHandler handles HTTP requests for sale workflow endpoints.
type WorkflowHandler struct {
	service *service.WorkflowService
	logger  *slog.Logger
}

// NewWorkflowHandler creates a new sale workflow HTTP handler.
func NewWorkflowHandler(svc *service.WorkflowService, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		service: svc,
		logger:  logger,
	}
}

// operatorID resolves the acting operator from the auth context, falling back
// to the gateway-injected header.
func operatorID(r *http.Request) string {
	if id := middleware.OperatorIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Operator-ID")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}
	return true
}

// --- Request DTOs ---

// SelectLocationRequest is the JSON request body for selecting a location.
type SelectLocationRequest struct {
	LocationID string `json:"location_id" validate:"required"`
}

// VehicleQueryRequest is the JSON request body for a plate keystroke.
type VehicleQueryRequest struct {
	Fragment string `json:"fragment"`
}

// SelectVehicleRequest is the JSON request body for the definitive plate lookup.
type SelectVehicleRequest struct {
	Plate string `json:"plate" validate:"required"`
}

// CreateVehicleRequest is the JSON request body for registering a vehicle.
type CreateVehicleRequest struct {
	Plate string `json:"plate" validate:"required"`
	Brand string `json:"brand"`
	Model string `json:"model"`
}

// AddItemRequest is the JSON request body for adding a product to the cart.
type AddItemRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	Name          string `json:"name" validate:"required,min=1,max=500"`
	Code          string `json:"code"`
	SalePrice     int64  `json:"sale_price" validate:"gte=0"`
	FallbackPrice int64  `json:"fallback_price" validate:"gte=0"`
}

// UpdateItemRequest is the JSON request body for editing a cart line.
type UpdateItemRequest struct {
	Quantity  *int   `json:"quantity"`
	UnitPrice *int64 `json:"unit_price"`
}

// --- Handlers ---

// Start handles POST /api/v1/sales/workflows
func (h *WorkflowHandler) Start(w http.ResponseWriter, r *http.Request) {
	op := operatorID(r)
	if op == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "operator identity is required"},
		})
		return
	}

	workflow, err := h.service.Start(r.Context(), op)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: workflow})
}

// Get handles GET /api/v1/sales/workflows/{id}
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	workflow, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: workflow})
}

// SelectLocation handles PUT /api/v1/sales/workflows/{id}/location
func (h *WorkflowHandler) SelectLocation(w http.ResponseWriter, r *http.Request) {
	var req SelectLocationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	workflow, err := h.service.SelectLocation(r.Context(), chi.URLParam(r, "id"), req.LocationID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: workflow})
}

// VehicleQuery handles POST /api/v1/sales/workflows/{id}/vehicle-query
func (h *WorkflowHandler) VehicleQuery(w http.ResponseWriter, r *http.Request) {
	var req VehicleQueryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.service.ObservePlateFragment(r.Context(), chi.URLParam(r, "id"), req.Fragment); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// VehicleSuggestions handles GET /api/v1/sales/workflows/{id}/vehicle-suggestions
func (h *WorkflowHandler) VehicleSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions := h.service.Suggestions(chi.URLParam(r, "id"))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: suggestions})
}

// SelectVehicle handles PUT /api/v1/sales/workflows/{id}/vehicle
func (h *WorkflowHandler) SelectVehicle(w http.ResponseWriter, r *http.Request) {
	var req SelectVehicleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	workflow, result, err := h.service.SelectVehicle(r.Context(), chi.URLParam(r, "id"), req.Plate)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"workflow": workflow,
		"result":   result,
	}})
}

// CreateVehicle handles POST /api/v1/sales/workflows/{id}/vehicles
func (h *WorkflowHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req CreateVehicleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	vehicle, err := h.service.CreateVehicle(r.Context(), chi.URLParam(r, "id"), &service.CreateVehicleInput{
		Plate: req.Plate,
		Brand: req.Brand,
		Model: req.Model,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: vehicle})
}

// ListProducts handles GET /api/v1/sales/workflows/{id}/products
func (h *WorkflowHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	onlyInStock := r.URL.Query().Get("in_stock") != "false"

	products, err := h.service.ListProducts(r.Context(), chi.URLParam(r, "id"), onlyInStock)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// AddItem handles POST /api/v1/sales/workflows/{id}/items
func (h *WorkflowHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	workflow, warning, err := h.service.AddProduct(r.Context(), chi.URLParam(r, "id"), &service.AddProductInput{
		ProductID:     req.ProductID,
		Name:          req.Name,
		Code:          req.Code,
		SalePrice:     req.SalePrice,
		FallbackPrice: req.FallbackPrice,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	data := map[string]any{"workflow": workflow}
	if warning != "" {
		data["warning"] = warning
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: data})
}

// UpdateItem handles PUT /api/v1/sales/workflows/{id}/items/{productID}
func (h *WorkflowHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	workflow, err := h.service.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"),
		&service.UpdateLineInput{Quantity: req.Quantity, UnitPrice: req.UnitPrice})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: workflow})
}

// RemoveItem handles DELETE /api/v1/sales/workflows/{id}/items/{productID}
func (h *WorkflowHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	workflow, err := h.service.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: workflow})
}

// Submit handles POST /api/v1/sales/workflows/{id}/submit
func (h *WorkflowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"outcome": outcome,
		"message": outcome.Message(),
	}})
}

// Cancel handles POST /api/v1/sales/workflows/{id}/cancel
func (h *WorkflowHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
