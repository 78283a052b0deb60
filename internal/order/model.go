package order

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"

	// StatusReadyForPickup is a legacy alias still present in old rows.
	// It is never written by new code but stays cancellable and
	// completable so those rows can finish their lifecycle.
	StatusReadyForPickup Status = "ready_for_pickup"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

const DefaultPaymentMode = "COD"

// Order is one purchase of one item by one buyer. PriceCharged is a
// snapshot of unit price times quantity taken at placement and never
// recomputed. Only the delivery-code hash is stored; the plaintext
// code exists solely in the placement receipt. ItemID is zero once the
// listing has been deleted; deleting a listing nulls the reference on
// its cancelled orders instead of erasing them.
type Order struct {
	OrderID       string    `json:"order_id"`
	BuyerID       int64     `json:"buyer_id"`
	SellerID      int64     `json:"seller_id"`
	ItemID        int64     `json:"item_id"`
	PriceCharged  float64   `json:"price_charged"`
	Quantity      int       `json:"quantity"`
	PaymentMode   string    `json:"payment_mode"`
	PaymentStatus string    `json:"payment_status"`
	Status        Status    `json:"status"`
	OTPHash       string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// CartLine is one submitted cart entry. Duplicate item lines are not
// merged; each is processed independently and consumes stock in turn.
type CartLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"qty"`
}

// Receipt is returned to the buyer for each placed line. DeliveryCode
// is the plaintext one-time code; it is delivered here exactly once
// and cannot be re-derived from stored state.
type Receipt struct {
	OrderID      string  `json:"order_id"`
	ItemID       int64   `json:"item_id"`
	ItemName     string  `json:"item_name"`
	PriceCharged float64 `json:"price_charged"`
	DeliveryCode string  `json:"delivery_code"`
}

// BuyerOrder is an order joined with its item name for history views.
type BuyerOrder struct {
	Order
	ItemName string `json:"item_name"`
}

// SellerSale is an order seen from the selling side, joined with the
// item and buyer names.
type SellerSale struct {
	OrderID      string    `json:"order_id"`
	ItemID       int64     `json:"item_id"`
	ItemName     string    `json:"item_name"`
	BuyerName    string    `json:"buyer_name"`
	PriceCharged float64   `json:"price_charged"`
	Quantity     int       `json:"quantity"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpenOrder is a fulfillment-queue row for the admin dashboard.
type OpenOrder struct {
	OrderID    string    `json:"order_id"`
	Status     Status    `json:"status"`
	ItemName   string    `json:"item_name"`
	BuyerName  string    `json:"buyer_name"`
	SellerName string    `json:"seller_name"`
	CreatedAt  time.Time `json:"created_at"`
}
