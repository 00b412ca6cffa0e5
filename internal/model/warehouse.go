package model

// Warehouse is the unit of partitioning for items, operations and conflicts.
// Timestamps are epoch milliseconds.
type Warehouse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OwnerID     string `json:"ownerId"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
	SoftDeleted bool   `json:"softDeleted,omitempty"`
}
