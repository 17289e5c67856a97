package dynamodb

import (
	"fmt"
	"time"

	"github.com/chris/escrow-contracts/pkg/contract"
	"github.com/shopspring/decimal"
)

// contractItem is the record layout of the contracts table.
type contractItem struct {
	ID          int64       `dynamodbav:"id"`
	SellerID    int64       `dynamodbav:"seller_id"`
	BuyerID     *int64      `dynamodbav:"buyer_id,omitempty"`
	Title       string      `dynamodbav:"title"`
	Description string      `dynamodbav:"description"`
	Price       string      `dynamodbav:"price"`
	Condition   string      `dynamodbav:"condition"`
	AccessCode  string      `dynamodbav:"access_code"`
	QRPayload   string      `dynamodbav:"qr_payload"`
	Status      string      `dynamodbav:"status"`
	Photos      []photoItem `dynamodbav:"photos,omitempty"`
	CreatedAt   time.Time   `dynamodbav:"created_at"`
	UpdatedAt   time.Time   `dynamodbav:"updated_at"`
}

type photoItem struct {
	Order int    `dynamodbav:"order"`
	URI   string `dynamodbav:"uri"`
}

// accessCodeItem reserves an access code in the access codes table. Its
// primary key is what makes codes unique across contracts.
type accessCodeItem struct {
	AccessCode string `dynamodbav:"access_code"`
	ContractID int64  `dynamodbav:"contract_id"`
}

func toItem(c *contract.Contract) contractItem {
	item := contractItem{
		ID:          c.ID,
		SellerID:    c.SellerID,
		Title:       c.Title,
		Description: c.Description,
		Price:       c.Price.String(),
		Condition:   string(c.Condition),
		AccessCode:  c.AccessCode,
		QRPayload:   c.QRPayload,
		Status:      string(c.Status()),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if buyer, ok := c.BuyerID(); ok {
		item.BuyerID = &buyer
	}
	for _, p := range c.Photos {
		item.Photos = append(item.Photos, photoItem{Order: p.Order, URI: p.URI})
	}
	return item
}

func (item contractItem) toContract() (*contract.Contract, error) {
	price, err := decimal.NewFromString(item.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price of contract %d: %w", item.ID, err)
	}
	photos := make([]contract.Photo, 0, len(item.Photos))
	for _, p := range item.Photos {
		photos = append(photos, contract.Photo{Order: p.Order, URI: p.URI})
	}
	return contract.Restore(contract.Contract{
		ID:          item.ID,
		SellerID:    item.SellerID,
		Title:       item.Title,
		Description: item.Description,
		Price:       price,
		Condition:   contract.Condition(item.Condition),
		AccessCode:  item.AccessCode,
		QRPayload:   item.QRPayload,
		Photos:      photos,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}, contract.Status(item.Status), item.BuyerID)
}
