package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-contracts/pkg/contract"
)

const (
	sellerIndex = "seller_id-created_at-index"
	buyerIndex  = "buyer_id-created_at-index"
)

func (s *Store) ListContractsBySeller(ctx context.Context, sellerID int64) ([]*contract.Contract, error) {
	return s.listByIndex(ctx, sellerIndex, "seller_id", sellerID)
}

func (s *Store) ListContractsByBuyer(ctx context.Context, buyerID int64) ([]*contract.Contract, error) {
	return s.listByIndex(ctx, buyerIndex, "buyer_id", buyerID)
}

// listByIndex pages through a GSI newest first.
func (s *Store) listByIndex(ctx context.Context, index, attr string, userID int64) ([]*contract.Contract, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.ContractsTableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(attr + " = :userID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":userID": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", userID)},
		},
		ScanIndexForward: aws.Bool(false), // Sort by created_at in descending order
	}

	contracts := []*contract.Contract{}
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query contracts by %s: %w", attr, err)
		}

		var items []contractItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contracts: %w", err)
		}

		for _, item := range items {
			c, err := item.toContract()
			if err != nil {
				return nil, err
			}
			contracts = append(contracts, c)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return contracts, nil
}
