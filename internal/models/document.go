// Package models defines core data structures for documents, fragments, and search results.
package models

import (
	"fmt"
	"time"
)

// StoredField is one stored instance of a document field. A multivalued field
// has several instances sharing the same name, kept in insertion order.
type StoredField struct {
	Name      string `json:"name" db:"name"`
	Value     string `json:"value" db:"value"`
	Tokenized bool   `json:"tokenized" db:"tokenized"`
}

// Document is a stored document with its field instances and metadata.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Fields    []StoredField          `json:"fields" db:"-"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Values returns the instances of the named field in stored order.
func (d *Document) Values(name string) []StoredField {
	var out []StoredField
	for _, f := range d.Fields {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// FieldNames returns the distinct field names in first-seen order.
func (d *Document) FieldNames() []string {
	seen := make(map[string]struct{}, len(d.Fields))
	var names []string
	for _, f := range d.Fields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}

// FieldInput is one field instance in a DocumentInput. Tokenized defaults to true.
type FieldInput struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Tokenized *bool  `json:"tokenized,omitempty"`
}

// Stored converts the input to a StoredField.
func (f FieldInput) Stored() StoredField {
	tokenized := true
	if f.Tokenized != nil {
		tokenized = *f.Tokenized
	}
	return StoredField{Name: f.Name, Value: f.Value, Tokenized: tokenized}
}

// DocumentInput is the input for creating or replacing a document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Fields   []FieldInput           `json:"fields"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Validate returns an error when the input has no fields or an unnamed field.
func (in *DocumentInput) Validate() error {
	if len(in.Fields) == 0 {
		return fmt.Errorf("document must have at least one field")
	}
	for i, f := range in.Fields {
		if f.Name == "" {
			return fmt.Errorf("field %d has no name", i)
		}
	}
	return nil
}

// Document converts the input to a Document.
func (in *DocumentInput) Document() *Document {
	doc := &Document{ID: in.ID, Metadata: in.Metadata, Fields: make([]StoredField, len(in.Fields))}
	for i, f := range in.Fields {
		doc.Fields[i] = f.Stored()
	}
	return doc
}
