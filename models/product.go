package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SizeEntry is one per-size stock counter of a product. Code is unique
// within a product and qty must stay >= 0 after every mutation.
type SizeEntry struct {
	Code  string `bson:"code" json:"code"`
	Label string `bson:"label" json:"label"`
	Qty   int    `bson:"qty" json:"qty"`
}

type Product struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title                string             `bson:"title" json:"title"`
	Slug                 string             `bson:"slug,omitempty" json:"slug,omitempty"`
	Price                float64            `bson:"price" json:"price"`
	Images               []string           `bson:"images" json:"images"`
	ImageURL             string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Description          string             `bson:"description,omitempty" json:"description,omitempty"`
	Category             string             `bson:"category,omitempty" json:"category,omitempty"`
	Sizes                []string           `bson:"sizes" json:"sizes"`
	// Exactly one of the two stock models applies at decrement time:
	// per-size entries when TrackInventoryBySize, the scalar Stock otherwise.
	TrackInventoryBySize bool        `bson:"trackInventoryBySize" json:"trackInventoryBySize"`
	SizeInventory        []SizeEntry `bson:"sizeInventory" json:"sizeInventory"`
	Stock                int         `bson:"stock" json:"stock"`
	Active               bool        `bson:"active" json:"active"`
	Featured             bool        `bson:"featured" json:"featured"`
	CreatedAt            time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// SizeEntryByCode returns the size entry with the given code, or nil.
func (p *Product) SizeEntryByCode(code string) *SizeEntry {
	for i := range p.SizeInventory {
		if p.SizeInventory[i].Code == code {
			return &p.SizeInventory[i]
		}
	}
	return nil
}
