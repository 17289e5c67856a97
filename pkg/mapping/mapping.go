package mapping

import (
	"errors"
	"net/http"

	"github.com/chris/escrow-contracts/pkg/api"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/escrow"
	"github.com/chris/escrow-contracts/pkg/storage"
)

// ToApiContract converts a domain Contract to an API Contract model.
func ToApiContract(c *contract.Contract) *api.Contract {
	out := &api.Contract{
		AccessCode:  c.AccessCode,
		Condition:   string(c.Condition),
		CreatedAt:   c.CreatedAt,
		Description: c.Description,
		Id:          c.ID,
		Photos:      make([]api.Photo, len(c.Photos)),
		Price:       c.Price,
		QrPayload:   c.QRPayload,
		SellerId:    c.SellerID,
		Status:      api.ContractStatus(c.Status()),
		Title:       c.Title,
		UpdatedAt:   c.UpdatedAt,
	}
	if buyer, ok := c.BuyerID(); ok {
		out.BuyerId = &buyer
	}
	for i, p := range c.Photos {
		out.Photos[i] = api.Photo{Order: p.Order, Uri: p.URI}
	}
	return out
}

// ToApiContracts converts a list of domain Contracts.
func ToApiContracts(contracts []*contract.Contract) []*api.Contract {
	out := make([]*api.Contract, len(contracts))
	for i, c := range contracts {
		out[i] = ToApiContract(c)
	}
	return out
}

// ToApiContractSummary converts a participation in a contract to its API model.
func ToApiContractSummary(p escrow.Participation) *api.ContractSummary {
	return &api.ContractSummary{
		Contract:     *ToApiContract(p.Contract),
		OtherPartyId: p.OtherPartyID,
		Role:         string(p.Role),
	}
}

// ToDomainDetails converts an API NewContract model to domain contract details.
func ToDomainDetails(n *api.NewContract) contract.Details {
	return contract.Details{
		Title:       n.Title,
		Description: n.Description,
		Price:       n.Price,
		Condition:   contract.Condition(n.Condition),
		PhotoURIs:   n.Photos,
	}
}

// ToApiError maps a domain error to an HTTP status and error body.
func ToApiError(err error) (int, *api.Error) {
	body := &api.Error{Message: err.Error()}

	var iterr *contract.InvalidTransitionError
	var verr *contract.ValidationError
	switch {
	case errors.As(err, &iterr):
		current := api.ContractStatus(iterr.Current)
		body.Transition = string(iterr.Transition)
		body.CurrentStatus = &current
		return http.StatusConflict, body
	case errors.As(err, &verr):
		body.Problems = verr.Problems
		return http.StatusBadRequest, body
	case errors.Is(err, contract.ErrUnknownTransition):
		return http.StatusBadRequest, body
	case errors.Is(err, contract.ErrNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, contract.ErrPermissionDenied):
		return http.StatusForbidden, body
	case errors.Is(err, storage.ErrStaleContract), errors.Is(err, storage.ErrAccessCodeTaken):
		return http.StatusConflict, body
	}
	return http.StatusInternalServerError, &api.Error{Message: "internal error"}
}
