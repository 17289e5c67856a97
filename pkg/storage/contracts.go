package storage

import (
	"context"
	"time"

	"github.com/chris/escrow-contracts/pkg/contract"
)

// ContractReader defines the interface for reading contract data.
type ContractReader interface {
	// GetContract retrieves a contract by its ID.
	GetContract(ctx context.Context, id int64) (*contract.Contract, error)

	// GetContractByAccessCode retrieves a contract by its exact access code.
	GetContractByAccessCode(ctx context.Context, code string) (*contract.Contract, error)

	// ListContractsBySeller retrieves a seller's contracts, newest first.
	ListContractsBySeller(ctx context.Context, sellerID int64) ([]*contract.Contract, error)

	// ListContractsByBuyer retrieves the contracts a buyer is bound to, newest first.
	ListContractsByBuyer(ctx context.Context, buyerID int64) ([]*contract.Contract, error)
}

// AccessCodeChecker is the best-effort pre-filter used by the access code generator.
type AccessCodeChecker interface {
	AccessCodeExists(ctx context.Context, code string) (bool, error)
}

// ContractWriter defines the atomic write primitives the escrow service is built on.
type ContractWriter interface {
	// NextContractID allocates a fresh contract ID.
	NextContractID(ctx context.Context) (int64, error)

	// InsertContract stores a new contract, failing with ErrContractExists or
	// ErrAccessCodeTaken if the id or access code is already held.
	InsertContract(ctx context.Context, c *contract.Contract) error

	// UpdateContractStatus persists c's status, QR payload and updated timestamp
	// only if the stored status still equals expected. Otherwise it returns ErrStaleContract.
	UpdateContractStatus(ctx context.Context, c *contract.Contract, expected contract.Status) error

	// AssignBuyer binds buyerID to the contract only if no buyer is bound and
	// buyerID is not the seller. Otherwise it returns ErrBuyerAlreadyAssigned.
	AssignBuyer(ctx context.Context, id, buyerID int64, now time.Time) (*contract.Contract, error)
}

// ContractStore combines the reader, writer and checker interfaces.
type ContractStore interface {
	ContractReader
	ContractWriter
	AccessCodeChecker
}
