package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/storage"
)

// AssignBuyer sets buyer_id on a contract that has none. The seller can never
// be assigned as buyer.
func (s *Store) AssignBuyer(ctx context.Context, id, buyerID int64, now time.Time) (*contract.Contract, error) {
	updatedAt, err := attributevalue.Marshal(now)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal updated_at: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.ContractsTableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", id)},
		},
		UpdateExpression:    aws.String("SET buyer_id = :buyer, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(id) AND attribute_not_exists(buyer_id) AND seller_id <> :buyer"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":buyer":      &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", buyerID)},
			":updated_at": updatedAt,
		},
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}

	result, err := s.Client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if ccf.Item == nil {
				return nil, fmt.Errorf("contract with ID %d: %w", id, storage.ErrContractNotFound)
			}
			return nil, storage.ErrBuyerAlreadyAssigned
		}
		return nil, fmt.Errorf("failed to assign buyer: %w", err)
	}

	var item contractItem
	if err := attributevalue.UnmarshalMap(result.Attributes, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contract: %w", err)
	}

	return item.toContract()
}
