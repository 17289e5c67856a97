// Package api holds the HTTP wire types and the chi server binding for the contracts API.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus defines model for Contract.Status.
type ContractStatus string

// Defines values for ContractStatus.
const (
	AWAITINGPAYMENT ContractStatus = "AWAITING_PAYMENT"
	COMPLETED       ContractStatus = "COMPLETED"
	DISPUTED        ContractStatus = "DISPUTED"
	DRAFT           ContractStatus = "DRAFT"
	INTRANSIT       ContractStatus = "IN_TRANSIT"
	LOCKED          ContractStatus = "LOCKED"
	REFUNDED        ContractStatus = "REFUNDED"
	RELEASED        ContractStatus = "RELEASED"
)

// NewContract defines model for NewContract.
type NewContract struct {
	Condition   string          `json:"condition"`
	Description string          `json:"description,omitempty"`
	Photos      []string        `json:"photos,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Title       string          `json:"title"`
}

// Photo defines model for Photo.
type Photo struct {
	Order int    `json:"order"`
	Uri   string `json:"uri"`
}

// Contract defines model for Contract.
type Contract struct {
	AccessCode  string          `json:"access_code"`
	BuyerId     *int64          `json:"buyer_id,omitempty"`
	Condition   string          `json:"condition"`
	CreatedAt   time.Time       `json:"created_at"`
	Description string          `json:"description"`
	Id          int64           `json:"id"`
	Photos      []Photo         `json:"photos"`
	Price       decimal.Decimal `json:"price"`
	QrPayload   string          `json:"qr_payload"`
	SellerId    int64           `json:"seller_id"`
	Status      ContractStatus  `json:"status"`
	Title       string          `json:"title"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ContractSummary is a contract as seen by one of its parties.
type ContractSummary struct {
	Contract
	OtherPartyId *int64 `json:"other_party_id,omitempty"`
	Role         string `json:"role"`
}

// Error defines model for Error.
type Error struct {
	CurrentStatus *ContractStatus `json:"current_status,omitempty"`
	Message       string          `json:"message"`
	Problems      []string        `json:"problems,omitempty"`
	Transition    string          `json:"transition,omitempty"`
}

// LookupContractParams defines parameters for LookupContract.
type LookupContractParams struct {
	Code string `form:"code" json:"code"`
}

// PaymentEventAck is returned once a payment event has been handled.
type PaymentEventAck struct {
	EventId string `json:"event_id"`
	Outcome string `json:"outcome"`
}
