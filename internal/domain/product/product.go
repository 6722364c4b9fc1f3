// Package product holds catalog products and their ranked representation.
package product

import "strings"

// Item is a catalog product as stored in the index.
type Item struct {
	ID            string
	Name          string
	Description   string
	ChunkText     string
	Categories    string // comma-separated, most specific last
	Tags          []string
	Store         string
	Promos        string
	SugarLevel    string
	SellingPrice  float64
	DiscountPrice float64
	Images        []string
	Popularity    float64
	CreatedAt     string
	UpdatedAt     string
	UpdatedBy     string
}

// Price returns the effective price: the discount price when one applies.
func (it *Item) Price() float64 {
	if it.DiscountPrice > 0 && it.DiscountPrice < it.SellingPrice {
		return it.DiscountPrice
	}
	return it.SellingPrice
}

// PrimaryCategory returns the first category of the item, or "".
func (it *Item) PrimaryCategory() string {
	cats := it.CategoryList()
	if len(cats) == 0 {
		return ""
	}
	return cats[0]
}

// CategoryList splits Categories into trimmed, non-empty names.
func (it *Item) CategoryList() []string {
	if it.Categories == "" {
		return nil
	}
	parts := strings.Split(it.Categories, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Candidate is an unranked member of the candidate pool with its vector similarity.
type Candidate struct {
	Item        Item
	VectorScore float64
}

// Attributes is the display/catalog record nested under a ranked product.
type Attributes struct {
	ChunkText         string   `json:"chunk_text"`
	CreatedAt         string   `json:"created_at"`
	DiscountPrice     float64  `json:"discount_price"`
	ID                string   `json:"id"`
	Images            []string `json:"images"`
	ProductCategories string   `json:"product_categories"`
	ProductName       string   `json:"product_name"`
	ProductSugarLevel string   `json:"product_sugar_level"`
	Promos            string   `json:"promos"`
	SellingPrice      float64  `json:"selling_price"`
	Store             string   `json:"store"`
	UpdatedAt         string   `json:"updated_at"`
	UpdatedBy         string   `json:"updated_by"`
	VectorScore       float64  `json:"vector_score"`
}

// Document is a scored product. Score equals ScoreOriginal unless Boosted.
type Document struct {
	ID            string     `json:"id"`
	Score         float64    `json:"score"`
	ScoreOriginal float64    `json:"score_original"`
	Boosted       bool       `json:"boosted"`
	Document      Attributes `json:"document"`
}

// AttributesOf builds the nested display record for a candidate.
func AttributesOf(c *Candidate) Attributes {
	images := c.Item.Images
	if images == nil {
		images = []string{}
	}
	return Attributes{
		ChunkText:         c.Item.ChunkText,
		CreatedAt:         c.Item.CreatedAt,
		DiscountPrice:     c.Item.DiscountPrice,
		ID:                c.Item.ID,
		Images:            images,
		ProductCategories: c.Item.Categories,
		ProductName:       c.Item.Name,
		ProductSugarLevel: c.Item.SugarLevel,
		Promos:            c.Item.Promos,
		SellingPrice:      c.Item.SellingPrice,
		Store:             c.Item.Store,
		UpdatedAt:         c.Item.UpdatedAt,
		UpdatedBy:         c.Item.UpdatedBy,
		VectorScore:       c.VectorScore,
	}
}
