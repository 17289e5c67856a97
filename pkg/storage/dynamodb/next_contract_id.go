package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const contractsCounter = "contracts"

// NextContractID atomically increments the contracts counter and returns the new value.
func (s *Store) NextContractID(ctx context.Context) (int64, error) {
	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.CountersTableName),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: contractsCounter},
		},
		UpdateExpression: aws.String("ADD next_id :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}

	result, err := s.Client.UpdateItem(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("failed to increment contract counter: %w", err)
	}

	av, ok := result.Attributes["next_id"]
	if !ok {
		return 0, fmt.Errorf("contract counter update returned no next_id")
	}

	var id int64
	if err := attributevalue.Unmarshal(av, &id); err != nil {
		return 0, fmt.Errorf("failed to unmarshal contract counter: %w", err)
	}

	return id, nil
}
