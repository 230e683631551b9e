package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	"github.com/dfgutierrez/sigr-sales/internal/repository"
	apperrors "github.com/dfgutierrez/sigr-sales/pkg/errors"
)

// CircuitOpenFallback is the fallback for collaborator circuit breakers. When
// a circuit is open it returns a structured error with a retry hint instead of
// letting the raw ErrCircuitOpen propagate.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("downstream service is temporarily unavailable, please retry after 30 seconds")
}

// VehicleGateway is the slice of the vehicle registry the workflow needs.
type VehicleGateway interface {
	SearchByPlate(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error)
	FindForSale(ctx context.Context, locationID, plate string) (*domain.VehicleSearchResult, error)
	Create(ctx context.Context, nv *domain.NewVehicle) (*domain.Vehicle, error)
}

// InventoryGateway is the slice of the inventory service the workflow needs.
type InventoryGateway interface {
	GetByProductAndLocation(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error)
	Deduct(ctx context.Context, d *domain.Deduction) (*domain.InventoryRecord, error)
}

// SaleGateway submits the sale record to the sales backend.
type SaleGateway interface {
	Submit(ctx context.Context, payload *domain.SalePayload) (string, error)
}

// CatalogGateway lists products with location-scoped stock.
type CatalogGateway interface {
	ProductsWithStock(ctx context.Context, locationID string, onlyInStock bool) ([]domain.Product, error)
}

// EventPublisher publishes submission outcome events.
type EventPublisher interface {
	PublishSaleCompleted(ctx context.Context, w *domain.SaleWorkflow, outcome *domain.SubmissionOutcome) error
	PublishSaleFailed(ctx context.Context, w *domain.SaleWorkflow, reason string) error
}

// WorkflowConfig holds the tunable knobs of the workflow service.
type WorkflowConfig struct {
	// SubmitTimeout bounds the Phase A sale submission call.
	SubmitTimeout time.Duration
	// DeductionTimeout bounds each Phase B per-line deduction.
	DeductionTimeout time.Duration
	// MinUnitPrice is the lowest accepted operator price override, in cents.
	MinUnitPrice int64
}

// WorkflowService drives a draft sale from location selection through vehicle
// attachment and cart assembly to the two-phase submission.
type WorkflowService struct {
	repo      repository.WorkflowRepository
	reconRepo repository.ReconciliationRepository
	vehicles  VehicleGateway
	inventory InventoryGateway
	sales     SaleGateway
	catalog   CatalogGateway
	producer  EventPublisher
	suggester *VehicleSuggester
	logger    *slog.Logger
	cfg       WorkflowConfig
}

// NewWorkflowService creates a new sale workflow service.
func NewWorkflowService(
	repo repository.WorkflowRepository,
	reconRepo repository.ReconciliationRepository,
	vehicles VehicleGateway,
	inventory InventoryGateway,
	sales SaleGateway,
	catalog CatalogGateway,
	producer EventPublisher,
	suggester *VehicleSuggester,
	logger *slog.Logger,
	cfg WorkflowConfig,
) *WorkflowService {
	return &WorkflowService{
		repo:      repo,
		reconRepo: reconRepo,
		vehicles:  vehicles,
		inventory: inventory,
		sales:     sales,
		catalog:   catalog,
		producer:  producer,
		suggester: suggester,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start creates an empty draft workflow for the operator.
func (s *WorkflowService) Start(ctx context.Context, operatorID string) (*domain.SaleWorkflow, error) {
	if operatorID == "" {
		return nil, apperrors.InvalidInput("operator id is required")
	}

	now := time.Now().UTC()
	w := &domain.SaleWorkflow{
		ID:         uuid.New().String(),
		OperatorID: operatorID,
		Stage:      domain.StageSelectingLocation,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	s.logger.InfoContext(ctx, "sale workflow started",
		slog.String("workflow_id", w.ID),
		slog.String("operator_id", operatorID),
	)

	return w, nil
}

// Get retrieves a workflow by its ID.
func (s *WorkflowService) Get(ctx context.Context, id string) (*domain.SaleWorkflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return w, nil
}

// SelectLocation sets the selling location. Cart contents are location-scoped:
// changing the location clears the vehicle and all line items.
func (s *WorkflowService) SelectLocation(ctx context.Context, id, locationID string) (*domain.SaleWorkflow, error) {
	if locationID == "" {
		return nil, apperrors.InvalidInput("location id is required")
	}

	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow for location change: %w", err)
	}
	if w.Stage.Terminal() {
		return nil, apperrors.InvalidInput("workflow is already finished")
	}
	if w.Stage == domain.StageSubmitting {
		return nil, apperrors.Conflict("submission in progress, workflow is locked")
	}

	expected := w.Version
	w.ResetForLocation(locationID)

	if err := s.repo.SaveIfVersion(ctx, w, expected); err != nil {
		return nil, fmt.Errorf("save workflow after location change: %w", err)
	}

	// Pending suggestions belong to the previous location.
	s.suggester.Drop(id)

	s.logger.InfoContext(ctx, "location selected",
		slog.String("workflow_id", id),
		slog.String("location_id", locationID),
	)

	return w, nil
}

// ObservePlateFragment feeds one plate keystroke into the debounced suggestion
// pipeline. It never blocks on the lookup.
func (s *WorkflowService) ObservePlateFragment(ctx context.Context, id, fragment string) error {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get workflow for plate query: %w", err)
	}
	if w.Stage != domain.StageSearchingVehicle {
		return apperrors.InvalidInput("vehicle search requires a selected location and no attached vehicle")
	}

	s.suggester.Observe(ctx, id, w.LocationID, fragment)
	return nil
}

// Suggestions returns the latest plate suggestions for the workflow.
func (s *WorkflowService) Suggestions(id string) []domain.Vehicle {
	return s.suggester.Latest(id)
}

// SelectVehicle performs the definitive plate lookup and attaches the vehicle
// to the workflow. A vehicle registered at another location is rejected; a
// miss is a normal outcome that leaves the workflow searching.
func (s *WorkflowService) SelectVehicle(ctx context.Context, id, plate string) (*domain.SaleWorkflow, *domain.VehicleSearchResult, error) {
	if plate == "" {
		return nil, nil, apperrors.InvalidInput("plate is required")
	}

	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get workflow for vehicle selection: %w", err)
	}
	if w.Stage != domain.StageSearchingVehicle {
		return nil, nil, apperrors.InvalidInput("vehicle can only be selected while searching for a vehicle")
	}

	result, err := s.vehicles.FindForSale(ctx, w.LocationID, plate)
	if err != nil {
		return nil, nil, fmt.Errorf("vehicle lookup: %w", err)
	}

	if !result.Found || result.Vehicle == nil {
		return w, result, nil
	}

	if result.Vehicle.LocationID != w.LocationID {
		return nil, nil, apperrors.InvalidInput(fmt.Sprintf(
			"vehicle %s belongs to another location and cannot be attached to this sale", result.Vehicle.Plate))
	}

	expected := w.Version
	w.Vehicle = result.Vehicle
	w.Stage = domain.StageBuildingCart

	if err := s.repo.SaveIfVersion(ctx, w, expected); err != nil {
		return nil, nil, fmt.Errorf("save workflow after vehicle selection: %w", err)
	}

	s.suggester.Drop(id)

	s.logger.InfoContext(ctx, "vehicle attached",
		slog.String("workflow_id", id),
		slog.String("vehicle_id", result.Vehicle.ID),
		slog.String("plate", result.Vehicle.Plate),
	)

	return w, result, nil
}

// CreateVehicleInput holds the parameters for registering a new vehicle.
type CreateVehicleInput struct {
	Plate string `json:"plate" validate:"required"`
	Brand string `json:"brand"`
	Model string `json:"model"`
}

// CreateVehicle registers a vehicle at the workflow's location. The workflow
// stays in the search stage with the suggestion state cleared, so the operator
// can immediately search the just-created plate.
func (s *WorkflowService) CreateVehicle(ctx context.Context, id string, input *CreateVehicleInput) (*domain.Vehicle, error) {
	if input == nil || input.Plate == "" {
		return nil, apperrors.InvalidInput("plate is required")
	}

	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow for vehicle creation: %w", err)
	}
	if w.Stage != domain.StageSearchingVehicle {
		return nil, apperrors.InvalidInput("vehicle can only be created while searching for a vehicle")
	}

	vehicle, err := s.vehicles.Create(ctx, &domain.NewVehicle{
		Plate:      input.Plate,
		LocationID: w.LocationID,
		Brand:      input.Brand,
		Model:      input.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create vehicle: %w", err)
	}

	s.suggester.Drop(id)

	s.logger.InfoContext(ctx, "vehicle created",
		slog.String("workflow_id", id),
		slog.String("vehicle_id", vehicle.ID),
		slog.String("plate", vehicle.Plate),
	)

	return vehicle, nil
}

// ListProducts returns the catalog scoped to the workflow's location.
func (s *WorkflowService) ListProducts(ctx context.Context, id string, onlyInStock bool) ([]domain.Product, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow for product listing: %w", err)
	}
	if w.LocationID == "" {
		return nil, apperrors.InvalidInput("select a location before browsing products")
	}

	products, err := s.catalog.ProductsWithStock(ctx, w.LocationID, onlyInStock)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// AddProductInput is the product snapshot accompanying an add-line request.
// Display fields are captured at add time and never re-fetched mid-cart.
type AddProductInput struct {
	ProductID     string `json:"product_id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Code          string `json:"code"`
	SalePrice     int64  `json:"sale_price" validate:"gte=0"`
	FallbackPrice int64  `json:"fallback_price" validate:"gte=0"`
}

// AddProduct runs the add-line-item flow: a live stock check decides between
// reject, increment, and append. When the inventory endpoint itself is
// unreachable the line is added without a stock bound and flagged unvalidated;
// the returned warning is non-empty in that degraded case.
func (s *WorkflowService) AddProduct(ctx context.Context, id string, input *AddProductInput) (*domain.SaleWorkflow, string, error) {
	if input == nil || input.ProductID == "" {
		return nil, "", apperrors.InvalidInput("product id is required")
	}

	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get workflow for add product: %w", err)
	}
	if w.Stage != domain.StageBuildingCart {
		return nil, "", apperrors.InvalidInput("products can only be added while building the cart")
	}

	record, invErr := s.inventory.GetByProductAndLocation(ctx, input.ProductID, w.LocationID)

	var degraded bool
	switch {
	case invErr == nil:
		if record.Quantity <= 0 {
			return nil, "", apperrors.InsufficientStock(fmt.Sprintf("no stock available for %s at this location", input.Name))
		}
	case errors.Is(invErr, apperrors.ErrNotFound):
		return nil, "", apperrors.InsufficientStock(fmt.Sprintf("no inventory record for %s at this location", input.Name))
	default:
		// The stock check itself failed. Degrade to an unvalidated add
		// rather than blocking the whole workflow.
		degraded = true
		s.logger.WarnContext(ctx, "inventory check unavailable, adding line without stock validation",
			slog.String("workflow_id", id),
			slog.String("product_id", input.ProductID),
			slog.String("error", invErr.Error()),
		)
	}

	expected := w.Version

	if idx := w.FindLineIndex(input.ProductID); idx >= 0 {
		line := &w.Lines[idx]
		if line.StockChecked && line.Quantity+1 > line.AvailableStock {
			return nil, "", apperrors.InsufficientStock(fmt.Sprintf(
				"only %d units of %s available", line.AvailableStock, line.Name))
		}
		line.Quantity++
		if !degraded {
			line.AvailableStock = record.Quantity
			line.StockChecked = true
		}
		line.Recompute()
	} else {
		price := (&domain.Product{SalePrice: input.SalePrice, FallbackPrice: input.FallbackPrice}).EffectivePrice()
		line := domain.LineItem{
			ProductID: input.ProductID,
			Name:      input.Name,
			Code:      input.Code,
			Quantity:  1,
			UnitPrice: price,
		}
		if !degraded {
			line.AvailableStock = record.Quantity
			line.StockChecked = true
		}
		line.Recompute()
		w.Lines = append(w.Lines, line)
	}

	if err := s.repo.SaveIfVersion(ctx, w, expected); err != nil {
		return nil, "", fmt.Errorf("save workflow after add product: %w", err)
	}

	var warning string
	if degraded {
		warning = fmt.Sprintf("stock for %s could not be verified, added without stock validation", input.Name)
	}
	return w, warning, nil
}

// UpdateLineInput carries the optional edits for a cart line. Nil fields are
// left untouched.
type UpdateLineInput struct {
	Quantity  *int   `json:"quantity" validate:"omitempty"`
	UnitPrice *int64 `json:"unit_price" validate:"omitempty"`
}

// UpdateLine applies operator-driven quantity and price edits. A quantity
// below one removes the line; a quantity above the captured stock bound and a
// price below the minimum threshold are rejected.
func (s *WorkflowService) UpdateLine(ctx context.Context, id, productID string, input *UpdateLineInput) (*domain.SaleWorkflow, error) {
	if input == nil || (input.Quantity == nil && input.UnitPrice == nil) {
		return nil, apperrors.InvalidInput("nothing to update")
	}

	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow for line update: %w", err)
	}
	if w.Stage != domain.StageBuildingCart {
		return nil, apperrors.InvalidInput("lines can only be edited while building the cart")
	}

	idx := w.FindLineIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("line item", productID)
	}
	line := &w.Lines[idx]

	if input.UnitPrice != nil && *input.UnitPrice < s.cfg.MinUnitPrice {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unit price must be at least %d", s.cfg.MinUnitPrice))
	}
	if input.Quantity != nil && *input.Quantity >= 1 &&
		line.StockChecked && *input.Quantity > line.AvailableStock {
		return nil, apperrors.InsufficientStock(fmt.Sprintf(
			"only %d units of %s available", line.AvailableStock, line.Name))
	}

	expected := w.Version

	if input.Quantity != nil && *input.Quantity < 1 {
		w.RemoveLine(idx)
	} else {
		if input.Quantity != nil {
			line.Quantity = *input.Quantity
		}
		if input.UnitPrice != nil {
			line.UnitPrice = *input.UnitPrice
		}
		line.Recompute()
	}

	if err := s.repo.SaveIfVersion(ctx, w, expected); err != nil {
		return nil, fmt.Errorf("save workflow after line update: %w", err)
	}
	return w, nil
}

// RemoveLine deletes a cart line.
func (s *WorkflowService) RemoveLine(ctx context.Context, id, productID string) (*domain.SaleWorkflow, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow for line removal: %w", err)
	}
	if w.Stage != domain.StageBuildingCart {
		return nil, apperrors.InvalidInput("lines can only be removed while building the cart")
	}

	idx := w.FindLineIndex(productID)
	if idx < 0 {
		return nil, apperrors.NotFound("line item", productID)
	}

	expected := w.Version
	w.RemoveLine(idx)

	if err := s.repo.SaveIfVersion(ctx, w, expected); err != nil {
		return nil, fmt.Errorf("save workflow after line removal: %w", err)
	}
	return w, nil
}

// Submit runs the two-phase submission. Phase A persists the sale record and
// aborts on failure with the cart preserved. Phase B deducts stock per line,
// sequentially in cart order; failures are collected, never abort the loop,
// and never roll back the sale. The cart is discarded on any completed
// submission.
func (s *WorkflowService) Submit(ctx context.Context, id string) (*domain.SubmissionOutcome, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get workflow for submission: %w", err)
	}
	if w.Stage.Terminal() {
		return nil, apperrors.InvalidInput("workflow is already finished")
	}
	if w.Stage == domain.StageSubmitting {
		return nil, apperrors.Conflict("submission already in progress")
	}

	// Local validation gate. Nothing goes over the wire when it fails.
	switch {
	case w.LocationID == "":
		return nil, apperrors.InvalidInput("location must be selected before submitting")
	case w.Vehicle == nil:
		return nil, apperrors.InvalidInput("a vehicle must be attached before submitting")
	case len(w.Lines) == 0:
		return nil, apperrors.InvalidInput("the cart is empty")
	}

	// Lock the workflow against concurrent mutation and double submission.
	expected := w.Version
	w.Stage = domain.StageSubmitting
	if err := s.repo.SaveIfVersion(ctx, w, expected); err != nil {
		return nil, fmt.Errorf("lock workflow for submission: %w", err)
	}

	payload := &domain.SalePayload{
		LocationID: w.LocationID,
		VehicleID:  w.Vehicle.ID,
		Lines:      make([]domain.SaleLineItem, len(w.Lines)),
	}
	for i, line := range w.Lines {
		payload.Lines[i] = domain.SaleLineItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}

	// Phase A: persist the sale record.
	submitCtx := ctx
	if s.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, s.cfg.SubmitTimeout)
		defer cancel()
	}

	saleID, err := s.sales.Submit(submitCtx, payload)
	if err != nil {
		// Nothing has happened yet. Unlock and keep the cart for a retry.
		w.Stage = domain.StageBuildingCart
		if saveErr := s.repo.SaveIfVersion(ctx, w, w.Version); saveErr != nil {
			s.logger.ErrorContext(ctx, "failed to unlock workflow after submission failure",
				slog.String("workflow_id", id),
				slog.String("error", saveErr.Error()),
			)
		}

		if pubErr := s.producer.PublishSaleFailed(ctx, w, err.Error()); pubErr != nil {
			s.logger.ErrorContext(ctx, "failed to publish sale.failed event",
				slog.String("workflow_id", id),
				slog.String("error", pubErr.Error()),
			)
		}

		return nil, fmt.Errorf("submit sale: %w", err)
	}

	// Phase B: deduct stock per line, sequentially in cart order. The sale
	// record already exists, so every line is attempted regardless of
	// earlier failures.
	var failures []domain.DeductionFailure
	for _, line := range w.Lines {
		if err := s.deductLine(ctx, w, saleID, line); err != nil {
			failures = append(failures, domain.DeductionFailure{
				ProductID:   line.ProductID,
				ProductName: line.Name,
				Quantity:    line.Quantity,
				Reason:      err.Error(),
			})
			s.logger.WarnContext(ctx, "stock deduction failed",
				slog.String("workflow_id", id),
				slog.String("sale_id", saleID),
				slog.String("product_id", line.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}

	outcome := &domain.SubmissionOutcome{
		SaleID:      saleID,
		Total:       w.Total(),
		Failures:    failures,
		SubmittedAt: time.Now().UTC(),
	}

	if len(failures) > 0 {
		s.recordReconciliation(ctx, w, saleID, failures)
	}

	if err := s.producer.PublishSaleCompleted(ctx, w, outcome); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sale completion event",
			slog.String("sale_id", saleID),
			slog.String("error", err.Error()),
		)
	}

	// The draft is spent whether or not Phase B fully succeeded.
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to discard submitted workflow",
			slog.String("workflow_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.suggester.Drop(id)

	s.logger.InfoContext(ctx, "sale submitted",
		slog.String("workflow_id", id),
		slog.String("sale_id", saleID),
		slog.Int64("total", outcome.Total),
		slog.Int("deduction_failures", len(failures)),
	)

	return outcome, nil
}

// deductLine re-resolves the inventory record for one line and requests the
// stock deduction, tagged with the sale reference.
func (s *WorkflowService) deductLine(ctx context.Context, w *domain.SaleWorkflow, saleID string, line domain.LineItem) error {
	if s.cfg.DeductionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DeductionTimeout)
		defer cancel()
	}

	record, err := s.inventory.GetByProductAndLocation(ctx, line.ProductID, w.LocationID)
	if err != nil {
		return fmt.Errorf("resolve inventory record: %w", err)
	}

	_, err = s.inventory.Deduct(ctx, &domain.Deduction{
		RecordID:   record.ID,
		Quantity:   line.Quantity,
		LocationID: w.LocationID,
		Reason:     domain.DeductionReasonSale,
		SaleRef:    saleID,
	})
	if err != nil {
		return fmt.Errorf("deduct stock: %w", err)
	}
	return nil
}

// recordReconciliation persists Phase B failures for operator follow-up.
// Recording errors are logged, never surfaced; the submission is already done.
func (s *WorkflowService) recordReconciliation(ctx context.Context, w *domain.SaleWorkflow, saleID string, failures []domain.DeductionFailure) {
	now := time.Now().UTC()
	entries := make([]domain.ReconciliationEntry, len(failures))
	for i, f := range failures {
		entries[i] = domain.ReconciliationEntry{
			ID:          uuid.New().String(),
			SaleID:      saleID,
			LocationID:  w.LocationID,
			ProductID:   f.ProductID,
			ProductName: f.ProductName,
			Quantity:    f.Quantity,
			Reason:      f.Reason,
			Status:      domain.ReconciliationPending,
			CreatedAt:   now,
		}
	}

	if err := s.reconRepo.Record(ctx, entries); err != nil {
		s.logger.ErrorContext(ctx, "failed to record reconciliation entries",
			slog.String("sale_id", saleID),
			slog.Int("entries", len(entries)),
			slog.String("error", err.Error()),
		)
	}
}

// Cancel discards the draft workflow. In-flight collaborator requests are not
// cancelled; their late completions are ignored.
func (s *WorkflowService) Cancel(ctx context.Context, id string) error {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get workflow for cancel: %w", err)
	}
	if w.Stage == domain.StageSubmitting {
		return apperrors.Conflict("submission in progress, workflow cannot be cancelled")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	s.suggester.Drop(id)

	s.logger.InfoContext(ctx, "sale workflow cancelled",
		slog.String("workflow_id", id),
	)
	return nil
}
