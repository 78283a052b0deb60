package item

import "time"

type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
)

func (s Status) String() string {
	return string(s)
}

// Item is a sellable listing. Quantity and Status are mutated only
// through order placement and the compensating lifecycle transitions;
// quantity never goes negative and status is 'sold' exactly when
// quantity has reached zero.
type Item struct {
	ID          int64     `json:"id"`
	SellerID    int64     `json:"seller_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	Quantity    int       `json:"quantity"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows catalog listings. Zero values mean "no restriction".
type Filter struct {
	Query    string
	Category string
}
