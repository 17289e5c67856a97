package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/storage"
)

// GetContract retrieves a single contract by its ID.
func (s *Store) GetContract(ctx context.Context, id int64) (*contract.Contract, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.ContractsTableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", id)},
		},
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("contract with ID %d: %w", id, storage.ErrContractNotFound)
	}

	var item contractItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contract: %w", err)
	}

	return item.toContract()
}

// GetContractByAccessCode resolves code through the access codes table and
// then loads the contract it points at.
func (s *Store) GetContractByAccessCode(ctx context.Context, code string) (*contract.Contract, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.AccessCodesTableName),
		Key: map[string]types.AttributeValue{
			"access_code": &types.AttributeValueMemberS{Value: code},
		},
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get access code from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("contract with access code %s: %w", code, storage.ErrContractNotFound)
	}

	var item accessCodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal access code: %w", err)
	}

	return s.GetContract(ctx, item.ContractID)
}
