package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID       int64
	Name     string
	ParentID *int64 // nil for roots
}

type Product struct {
	ID         int64
	Name       string
	Quantity   int
	Price      decimal.Decimal
	CategoryID int64
}

type Client struct {
	ID      int64
	Name    string
	Address string
}

type Order struct {
	ID        int64
	ClientID  int64
	CreatedAt time.Time
}

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Qty       int
}

// AddedItem is what the reservation operation returns: the upserted line
// item plus the product snapshot after the stock decrement.
type AddedItem struct {
	Item    OrderItem
	Product Product
}

// Total is unit price times line-item quantity, derived, never stored.
func (a *AddedItem) Total() decimal.Decimal {
	return a.Product.Price.Mul(decimal.NewFromInt(int64(a.Item.Qty)))
}

type SummaryItem struct {
	ProductID   int64
	ProductName string
	Qty         int
	UnitPrice   decimal.Decimal
}

type OrderSummary struct {
	ID        int64
	ClientID  int64
	CreatedAt time.Time
	Items     []SummaryItem
}

func (s *OrderSummary) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total
}
