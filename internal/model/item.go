package model

// Item is the projected state of one inventory line in a warehouse.
// It is derived from the operation log and never edited directly.
type Item struct {
	WhID       string `json:"whId"`
	Internal   string `json:"internal"`
	Custom     string `json:"custom"`
	UPC        string `json:"upc,omitempty"`
	Qty        int64  `json:"qty"`
	Min        *int64 `json:"min,omitempty"`
	Max        *int64 `json:"max,omitempty"`
	Bin        string `json:"bin,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
	LastTS     int64  `json:"lastTs"`
	LastSiteID string `json:"lastSiteId"`
}

// BelowMin reports whether the item has a minimum set and its quantity is under it.
func (it Item) BelowMin() bool {
	return it.Min != nil && it.Qty < *it.Min
}

// Int64 returns a pointer to n, for the optional thresholds.
func Int64(n int64) *int64 {
	return &n
}
