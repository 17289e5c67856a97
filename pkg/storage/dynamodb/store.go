package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/escrow-contracts/pkg/storage"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the Store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements the Storage interface using AWS DynamoDB.
type Store struct {
	Client               DynamoDBAPI
	ContractsTableName   string
	AccessCodesTableName string
	CountersTableName    string
}

// New creates a new Store.
func New(client DynamoDBAPI, contractsTable, accessCodesTable, countersTable string) *Store {
	return &Store{
		Client:               client,
		ContractsTableName:   contractsTable,
		AccessCodesTableName: accessCodesTable,
		CountersTableName:    countersTable,
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)
var _ DynamoDBAPI = (*dynamodb.Client)(nil)
