package model

// Conflict records two setField operations on the same item field that
// carry the same timestamp but came from different sites.
type Conflict struct {
	ID         string `json:"id"`
	WhID       string `json:"whId"`
	Internal   string `json:"internal"`
	Field      Field  `json:"field"`
	Mine       Value  `json:"mine"`
	Theirs     Value  `json:"theirs"`
	BaseTS     int64  `json:"baseTs"`
	Resolved   bool   `json:"resolved"`
	ResolvedBy string `json:"resolvedBy,omitempty"`
	ResolvedAt int64  `json:"resolvedAt,omitempty"`
}
