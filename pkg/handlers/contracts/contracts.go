package contracts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/chris/escrow-contracts/pkg/api"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/escrow"
	"github.com/chris/escrow-contracts/pkg/mapping"
	"github.com/chris/escrow-contracts/pkg/middleware"
	"github.com/chris/escrow-contracts/pkg/qr"
	"go.uber.org/zap"
)

// ContractService is the part of the escrow service the handlers call.
type ContractService interface {
	CreateContract(ctx context.Context, seller contract.Identity, d contract.Details) (*contract.Contract, error)
	ApplyTransition(ctx context.Context, id int64, t contract.Transition, actor contract.Actor) (*contract.Contract, error)
	BindBuyer(ctx context.Context, id int64, who contract.Identity) (*contract.Contract, error)
	BindBuyerByAccessCode(ctx context.Context, code string, who contract.Identity) (*contract.Contract, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]*contract.Contract, error)
	ListForParticipant(ctx context.Context, userID int64) ([]escrow.Participation, error)
}

// ContractsHandler holds the dependencies for contract-related handlers.
type ContractsHandler struct {
	Service ContractService
	Logger  *zap.Logger
}

// NewContractsHandler creates a new ContractsHandler.
func NewContractsHandler(service ContractService, logger *zap.Logger) *ContractsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContractsHandler{Service: service, Logger: logger}
}

// CreateContract creates and publishes a contract owned by the caller.
func (h *ContractsHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var newContract api.NewContract
	if err := json.NewDecoder(r.Body).Decode(&newContract); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateContract(r.Context(), actor.Identity, mapping.ToDomainDetails(&newContract))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, mapping.ToApiContract(created))
}

// ListContracts lists the caller's contracts as seller, newest first.
func (h *ContractsHandler) ListContracts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	contracts, err := h.Service.ListBySeller(r.Context(), actor.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, mapping.ToApiContracts(contracts))
}

// ListMyContracts lists every contract the caller sells or has bound to as buyer.
func (h *ContractsHandler) ListMyContracts(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	participations, err := h.Service.ListForParticipant(r.Context(), actor.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]*api.ContractSummary, len(participations))
	for i, p := range participations {
		out[i] = mapping.ToApiContractSummary(p)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// LookupContract finds a contract by access code. Authenticated callers who
// are not the seller are bound as buyer if the contract has none.
func (h *ContractsHandler) LookupContract(w http.ResponseWriter, r *http.Request, params api.LookupContractParams) {
	if strings.TrimSpace(params.Code) == "" {
		http.Error(w, "Access code is required", http.StatusBadRequest)
		return
	}

	actor := middleware.ActorFrom(r.Context())
	found, err := h.Service.BindBuyerByAccessCode(r.Context(), params.Code, actor.Identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, mapping.ToApiContract(found))
}

// GetContract returns a contract by id, binding the caller as buyer if it has none.
func (h *ContractsHandler) GetContract(w http.ResponseWriter, r *http.Request, id int64) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	found, err := h.Service.BindBuyer(r.Context(), id, actor.Identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, mapping.ToApiContract(found))
}

// GetContractQr renders the deep link of a contract the caller takes part in.
func (h *ContractsHandler) GetContractQr(w http.ResponseWriter, r *http.Request, id int64) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	found, err := h.Service.BindBuyer(r.Context(), id, actor.Identity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	png, err := qr.PNG(found.QRPayload, qr.DefaultSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.Logger.Error("failed to write QR response", zap.Int64("contract_id", id), zap.Error(err))
	}
}

// ApplyTransition applies a named lifecycle transition as the caller.
func (h *ContractsHandler) ApplyTransition(w http.ResponseWriter, r *http.Request, id int64, transition string) {
	actor, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	t, err := contract.ParseTransition(transition)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.Service.ApplyTransition(r.Context(), id, t, actor)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, mapping.ToApiContract(updated))
}

func (h *ContractsHandler) requireUser(w http.ResponseWriter, r *http.Request) (contract.Actor, bool) {
	actor := middleware.ActorFrom(r.Context())
	if !actor.Authenticated {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return actor, false
	}
	return actor, true
}

func (h *ContractsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapping.ToApiError(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	h.writeJSON(w, status, body)
}

func (h *ContractsHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("failed to write response", zap.Error(err))
	}
}
