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

// UpdateContractStatus persists c's status, QR payload and update time, but only
// if the stored status still equals expected.
func (s *Store) UpdateContractStatus(ctx context.Context, c *contract.Contract, expected contract.Status) error {
	updatedAt, err := attributevalue.Marshal(c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to marshal updated_at: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.ContractsTableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", c.ID)},
		},
		UpdateExpression:    aws.String("SET #status = :status, qr_payload = :qr, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(id) AND #status = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(c.Status())},
			":expected":   &types.AttributeValueMemberS{Value: string(expected)},
			":qr":         &types.AttributeValueMemberS{Value: c.QRPayload},
			":updated_at": updatedAt,
		},
	}

	_, err = s.Client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return storage.ErrStaleContract
		}
		return fmt.Errorf("failed to update contract status: %w", err)
	}

	return nil
}
