package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/chris/escrow-contracts/pkg/storage"
)

// InsertContract atomically writes the contract record and reserves its access code.
func (s *Store) InsertContract(ctx context.Context, c *contract.Contract) error {
	contractAV, err := attributevalue.MarshalMap(toItem(c))
	if err != nil {
		return fmt.Errorf("failed to marshal contract: %w", err)
	}

	codeAV, err := attributevalue.MarshalMap(accessCodeItem{AccessCode: c.AccessCode, ContractID: c.ID})
	if err != nil {
		return fmt.Errorf("failed to marshal access code: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Create the contract record.
				Put: &types.Put{
					TableName:           aws.String(s.ContractsTableName),
					Item:                contractAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				// Operation 2: Reserve the access code.
				Put: &types.Put{
					TableName:           aws.String(s.AccessCodesTableName),
					Item:                codeAV,
					ConditionExpression: aws.String("attribute_not_exists(access_code)"),
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			if failedCondition(tce, 1) {
				return storage.ErrAccessCodeTaken
			}
			if failedCondition(tce, 0) {
				return storage.ErrContractExists
			}
		}
		return fmt.Errorf("failed to execute contract insert transaction: %w", err)
	}

	return nil
}

// AccessCodeExists reports whether code is reserved by any contract.
func (s *Store) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.AccessCodesTableName),
		Key: map[string]types.AttributeValue{
			"access_code": &types.AttributeValueMemberS{Value: code},
		},
		ConsistentRead:       aws.Bool(true),
		ProjectionExpression: aws.String("access_code"),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return false, fmt.Errorf("failed to get access code from DynamoDB: %w", err)
	}

	return result.Item != nil, nil
}

func failedCondition(tce *types.TransactionCanceledException, i int) bool {
	if len(tce.CancellationReasons) <= i {
		return false
	}
	code := tce.CancellationReasons[i].Code
	return code != nil && *code == "ConditionalCheckFailed"
}
