package model

// OpType is the kind of change an operation records.
type OpType string

// Operation types.
const (
	OpCreateItem   OpType = "createItem"
	OpAdjustQty    OpType = "adjustQty"
	OpSetField     OpType = "setField"
	OpDeleteItem   OpType = "deleteItem"
	OpUndeleteItem OpType = "undeleteItem"
)

// Valid reports whether t is one of the known operation types.
func (t OpType) Valid() bool {
	switch t {
	case OpCreateItem, OpAdjustQty, OpSetField, OpDeleteItem, OpUndeleteItem:
		return true
	}
	return false
}

// Op is an immutable record of one intended change to one item.
// Synced is local bookkeeping and does not take part in identity.
type Op struct {
	OpID     string `json:"opId"`
	SiteID   string `json:"siteId"`
	WhID     string `json:"whId"`
	Internal string `json:"internal"`
	Type     OpType `json:"type"`
	Field    Field  `json:"field,omitempty"`
	Value    Value  `json:"value,omitzero"`
	Delta    int64  `json:"delta,omitempty"`
	TS       int64  `json:"ts"`
	UserID   string `json:"userId,omitempty"`
	Synced   bool   `json:"synced,omitempty"`
}
