/*
inventory_handlers.go - Supplies, stock materials, fixed assets

ENDPOINTS:
  GET    /api/requirements                    List supply requirements (?classroom_id=)
  POST   /api/requirements                    Create requirement
  GET    /api/requirements/{id}/deliveries    List deliveries against it
  POST   /api/requirements/{id}/deliveries    Record a student delivery
  GET    /api/materials                       List stock materials
  POST   /api/materials                       Create material
  GET    /api/materials/{id}/movements        Movement history
  POST   /api/materials/{id}/movements        Register entry/exit
  GET    /api/assets                          List fixed assets
  POST   /api/assets                          Register asset
  GET    /api/assets/{id}/maintenance         Maintenance log
  POST   /api/assets/{id}/maintenance         Record maintenance

SEE ALSO:
  - inventory/ledger.go: The stock rule these endpoints expose
  - handlers.go: Handler struct and helpers
*/
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/school-office/billing"
	"github.com/warp/school-office/inventory"
	"github.com/warp/school-office/school"
)

// =============================================================================
// SUPPLY REQUIREMENT HANDLERS
// =============================================================================

// ListRequirements returns supply requirements, optionally by classroom.
func (h *Handler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	classroomID := school.ClassroomID(r.URL.Query().Get("classroom_id"))
	requirements, err := h.Inventory.ListRequirements(r.Context(), classroomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requirements", err)
		return
	}

	dtos := make([]RequirementDTO, len(requirements))
	for i, req := range requirements {
		dtos[i] = RequirementDTO{
			ID:             string(req.ID),
			ClassroomID:    string(req.ClassroomID),
			Material:       req.Material,
			QuantityNeeded: req.QuantityNeeded,
			Specifications: req.Specifications,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRequirement creates a classroom supply requirement.
func (h *Handler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	var req CreateRequirementRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	requirement := inventory.Requirement{
		ID:             inventory.RequirementID(uuid.NewString()),
		ClassroomID:    school.ClassroomID(req.ClassroomID),
		Material:       req.Material,
		QuantityNeeded: req.QuantityNeeded,
		Specifications: req.Specifications,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.Inventory.SaveRequirement(r.Context(), requirement); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create requirement", err)
		return
	}

	writeJSON(w, http.StatusCreated, RequirementDTO{
		ID:             string(requirement.ID),
		ClassroomID:    string(requirement.ClassroomID),
		Material:       requirement.Material,
		QuantityNeeded: requirement.QuantityNeeded,
		Specifications: requirement.Specifications,
	})
}

// ListDeliveries returns the deliveries recorded against a requirement.
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	requirementID := inventory.RequirementID(chi.URLParam(r, "id"))
	deliveries, err := h.Inventory.ListDeliveries(r.Context(), requirementID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list deliveries", err)
		return
	}

	dtos := make([]DeliveryDTO, len(deliveries))
	for i, d := range deliveries {
		dtos[i] = toDeliveryDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDelivery records a student handing in (part of) a requirement.
func (h *Handler) CreateDelivery(w http.ResponseWriter, r *http.Request) {
	requirementID := inventory.RequirementID(chi.URLParam(r, "id"))

	requirement, err := h.Inventory.GetRequirement(r.Context(), requirementID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get requirement", err)
		return
	}
	if requirement == nil {
		writeError(w, http.StatusNotFound, "Requirement not found", nil)
		return
	}

	var req CreateDeliveryRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	delivery := inventory.Delivery{
		ID:            inventory.DeliveryID(uuid.NewString()),
		StudentID:     school.StudentID(req.StudentID),
		RequirementID: requirementID,
		Quantity:      req.Quantity,
		Observations:  req.Observations,
		CreatedAt:     time.Now().UTC(),
	}
	if req.DeliveredOn != "" {
		d, err := billing.ParseDate(req.DeliveredOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid delivered_on format (use YYYY-MM-DD)", err)
			return
		}
		delivery.DeliveredOn = d
	}

	if err := h.Inventory.SaveDelivery(r.Context(), delivery); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record delivery", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDeliveryDTO(delivery))
}

func toDeliveryDTO(d inventory.Delivery) DeliveryDTO {
	dto := DeliveryDTO{
		ID:            string(d.ID),
		StudentID:     string(d.StudentID),
		RequirementID: string(d.RequirementID),
		Quantity:      d.Quantity,
		Observations:  d.Observations,
	}
	if !d.DeliveredOn.IsZero() {
		dto.DeliveredOn = d.DeliveredOn.String()
	}
	return dto
}

// =============================================================================
// MATERIAL + MOVEMENT HANDLERS
// =============================================================================

// ListMaterials returns all stock materials.
func (h *Handler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Inventory.ListMaterials(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list materials", err)
		return
	}

	dtos := make([]MaterialDTO, len(materials))
	for i, m := range materials {
		dtos[i] = toMaterialDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMaterial creates a stock material with its opening stock.
func (h *Handler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req CreateMaterialRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	unit := req.Unit
	if unit == "" {
		unit = "units"
	}
	m := inventory.Material{
		ID:          inventory.MaterialID(uuid.NewString()),
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		Unit:        unit,
		Location:    req.Location,
		Supplier:    req.Supplier,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Inventory.SaveMaterial(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create material", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMaterialDTO(m))
}

// ListMovements returns a material's movement history.
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	materialID := inventory.MaterialID(chi.URLParam(r, "id"))
	movements, err := h.Inventory.ListMovements(r.Context(), materialID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list movements", err)
		return
	}

	dtos := make([]MovementDTO, len(movements))
	for i, mov := range movements {
		dtos[i] = MovementDTO{
			ID:          string(mov.ID),
			MaterialID:  string(mov.MaterialID),
			Type:        string(mov.Type),
			Quantity:    mov.Quantity,
			Reason:      mov.Reason,
			Observation: mov.Observation,
			Responsible: mov.Responsible,
			MovedOn:     mov.MovedOn.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterMovement records a stock entry or exit and updates the stock.
func (h *Handler) RegisterMovement(w http.ResponseWriter, r *http.Request) {
	materialID := inventory.MaterialID(chi.URLParam(r, "id"))

	var req CreateMovementRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	movedOn := billing.Today()
	if req.MovedOn != "" {
		d, err := billing.ParseDate(req.MovedOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid moved_on format (use YYYY-MM-DD)", err)
			return
		}
		movedOn = d
	}

	mov := inventory.Movement{
		ID:          inventory.MovementID(uuid.NewString()),
		MaterialID:  materialID,
		Type:        inventory.MovementType(req.Type),
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		Observation: req.Observation,
		Responsible: req.Responsible,
		MovedOn:     movedOn,
	}

	after, err := h.Stock.RegisterMovement(r.Context(), mov)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrNotFound):
			writeError(w, http.StatusNotFound, "Material not found", err)
		case errors.Is(err, inventory.ErrInsufficientStock):
			writeError(w, http.StatusConflict, "Insufficient stock for exit", err)
		case errors.Is(err, inventory.ErrInvalidMovement):
			writeError(w, http.StatusBadRequest, "Invalid movement", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to register movement", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, MovementDTO{
		ID:          string(mov.ID),
		MaterialID:  string(mov.MaterialID),
		Type:        string(mov.Type),
		Quantity:    mov.Quantity,
		Reason:      mov.Reason,
		Observation: mov.Observation,
		Responsible: mov.Responsible,
		MovedOn:     mov.MovedOn.String(),
		StockAfter:  after,
	})
}

func toMaterialDTO(m inventory.Material) MaterialDTO {
	return MaterialDTO{
		ID:          string(m.ID),
		Name:        m.Name,
		Category:    m.Category,
		Description: m.Description,
		Stock:       m.Stock,
		MinStock:    m.MinStock,
		Unit:        m.Unit,
		Location:    m.Location,
		Supplier:    m.Supplier,
		LowStock:    m.Stock <= m.MinStock,
	}
}

// =============================================================================
// ASSET + MAINTENANCE HANDLERS
// =============================================================================

// ListAssets returns all fixed assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Inventory.ListAssets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assets", err)
		return
	}

	dtos := make([]AssetDTO, len(assets))
	for i, a := range assets {
		dtos[i] = toAssetDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAsset registers a fixed asset.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	condition := req.Condition
	if condition == "" {
		condition = "good"
	}
	a := inventory.Asset{
		ID:              inventory.AssetID(uuid.NewString()),
		PatrimonialCode: req.PatrimonialCode,
		Name:            req.Name,
		Category:        req.Category,
		Description:     req.Description,
		Brand:           req.Brand,
		Model:           req.Model,
		SerialNumber:    req.SerialNumber,
		Condition:       condition,
		Location:        req.Location,
		ClassroomID:     school.ClassroomID(req.ClassroomID),
		Supplier:        req.Supplier,
		Observations:    req.Observations,
		CreatedAt:       time.Now().UTC(),
	}
	if req.AcquiredOn != "" {
		d, err := billing.ParseDate(req.AcquiredOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid acquired_on format (use YYYY-MM-DD)", err)
			return
		}
		a.AcquiredOn = d
	}
	if req.AcquisitionCost != "" {
		cost, err := decimal.NewFromString(req.AcquisitionCost)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid acquisition_cost", err)
			return
		}
		a.AcquisitionCost = cost
	}

	if err := h.Inventory.SaveAsset(r.Context(), a); err != nil {
		writeError(w, http.StatusConflict, "Failed to register asset", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssetDTO(a))
}

// ListMaintenance returns an asset's maintenance log.
func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	assetID := inventory.AssetID(chi.URLParam(r, "id"))
	records, err := h.Inventory.ListMaintenance(r.Context(), assetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list maintenance records", err)
		return
	}

	dtos := make([]MaintenanceDTO, len(records))
	for i, m := range records {
		dtos[i] = toMaintenanceDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMaintenance records a maintenance entry against an asset.
func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	assetID := inventory.AssetID(chi.URLParam(r, "id"))

	asset, err := h.Inventory.GetAsset(r.Context(), assetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get asset", err)
		return
	}
	if asset == nil {
		writeError(w, http.StatusNotFound, "Asset not found", nil)
		return
	}

	var req CreateMaintenanceRequest
	if err := h.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	performed, err := billing.ParseDate(req.PerformedOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid performed_on format (use YYYY-MM-DD)", err)
		return
	}

	m := inventory.Maintenance{
		ID:          inventory.MaintenanceID(uuid.NewString()),
		AssetID:     assetID,
		Type:        req.Type,
		PerformedOn: performed,
		Description: req.Description,
		Provider:    req.Provider,
		Observation: req.Observation,
		CreatedAt:   time.Now().UTC(),
	}
	if req.Cost != "" {
		cost, err := decimal.NewFromString(req.Cost)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid cost", err)
			return
		}
		m.Cost = cost
	}

	if err := h.Inventory.SaveMaintenance(r.Context(), m); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record maintenance", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMaintenanceDTO(m))
}

func toAssetDTO(a inventory.Asset) AssetDTO {
	dto := AssetDTO{
		ID:              string(a.ID),
		PatrimonialCode: a.PatrimonialCode,
		Name:            a.Name,
		Category:        a.Category,
		Description:     a.Description,
		Brand:           a.Brand,
		Model:           a.Model,
		SerialNumber:    a.SerialNumber,
		Condition:       a.Condition,
		Location:        a.Location,
		ClassroomID:     string(a.ClassroomID),
		Supplier:        a.Supplier,
		Observations:    a.Observations,
	}
	if !a.AcquiredOn.IsZero() {
		dto.AcquiredOn = a.AcquiredOn.String()
	}
	if !a.AcquisitionCost.IsZero() {
		dto.AcquisitionCost = a.AcquisitionCost.String()
	}
	return dto
}

func toMaintenanceDTO(m inventory.Maintenance) MaintenanceDTO {
	dto := MaintenanceDTO{
		ID:          string(m.ID),
		AssetID:     string(m.AssetID),
		Type:        m.Type,
		PerformedOn: m.PerformedOn.String(),
		Description: m.Description,
		Provider:    m.Provider,
		Observation: m.Observation,
	}
	if !m.Cost.IsZero() {
		dto.Cost = m.Cost.String()
	}
	return dto
}
