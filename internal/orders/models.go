package orders

import "time"

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Caller is the identity resolved upstream (gateway headers). It is trusted as is.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

type Order struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Status      Status    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
	Items       []Item    `json:"items"`
}

// Item is a line item; UnitPrice is the price confirmed by the reservation.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type ItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// StatusView is what the status cache holds for one order.
type StatusView struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusResult is the outcome of AdvanceStatus. Warning is set when the
// transition committed but the notification did not go through.
type StatusResult struct {
	OrderID string `json:"order_id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}
