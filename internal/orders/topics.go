package orders

import "strconv"

const (
	TopicOrderItemAdded = "order.item.added"
	TopicStockLow       = "product.stock.low"
)

// Partition key = order_id so events for one order keep their order.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}
