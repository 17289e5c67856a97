package storage

import "errors"

// ErrContractNotFound is returned when no contract matches the given id or access code.
var ErrContractNotFound = errors.New("contract not found")

// ErrContractExists is returned when inserting a contract whose id is already taken.
var ErrContractExists = errors.New("contract already exists")

// ErrAccessCodeTaken is returned when inserting a contract whose access code is already held by another contract.
var ErrAccessCodeTaken = errors.New("access code already taken")

// ErrStaleContract is returned when a conditional status update finds the contract in a different state than expected.
var ErrStaleContract = errors.New("contract changed concurrently")

// ErrBuyerAlreadyAssigned is returned when a buyer assignment finds a buyer already bound, or the requester is the seller.
var ErrBuyerAlreadyAssigned = errors.New("contract buyer already assigned")
