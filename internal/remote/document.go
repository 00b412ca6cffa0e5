package remote

import (
	"encoding/json"
	"fmt"

	"github.com/erazemk/zaloga/internal/model"
)

// Document is the shared JSON document every site reconciles against.
type Document struct {
	Warehouses []model.Warehouse           `json:"warehouses"`
	Items      map[string][]model.Item     `json:"items"`
	Operations map[string][]model.Op       `json:"operations"`
	Conflicts  map[string][]model.Conflict `json:"conflicts"`
	LastSync   int64                       `json:"lastSync"`
	SiteID     string                      `json:"siteId"`
}

// NewDocument returns an empty document, the baseline for a first sync.
func NewDocument() *Document {
	d := &Document{}
	d.normalize()
	return d
}

// normalize replaces nil collections so they encode as [] and {}.
func (d *Document) normalize() {
	if d.Warehouses == nil {
		d.Warehouses = []model.Warehouse{}
	}
	if d.Items == nil {
		d.Items = map[string][]model.Item{}
	}
	if d.Operations == nil {
		d.Operations = map[string][]model.Op{}
	}
	if d.Conflicts == nil {
		d.Conflicts = map[string][]model.Conflict{}
	}
	for k, v := range d.Items {
		if v == nil {
			d.Items[k] = []model.Item{}
		}
	}
	for k, v := range d.Operations {
		if v == nil {
			d.Operations[k] = []model.Op{}
		}
	}
	for k, v := range d.Conflicts {
		if v == nil {
			d.Conflicts[k] = []model.Conflict{}
		}
	}
}

// Decode parses a document.
func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding sync document: %w", err)
	}
	d.normalize()
	return &d, nil
}

// Encode renders a document indented with two spaces.
func Encode(d *Document) ([]byte, error) {
	d.normalize()
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sync document: %w", err)
	}
	return data, nil
}
