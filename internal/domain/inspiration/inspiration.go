// Package inspiration holds recipe/content cards shown next to product results.
package inspiration

import "sort"

// Attributes is the display record of an inspiration card.
// Pointer fields are optional and omitted from JSON when absent.
type Attributes struct {
	BannerContent        *string  `json:"banner_content,omitempty"`
	BannerShareThumbnail *string  `json:"banner_share_thumbnail,omitempty"`
	Category             *string  `json:"category,omitempty"`
	ChunkText            string   `json:"chunk_text"`
	CookTime             *float64 `json:"cook_time,omitempty"`
	Description          string   `json:"description"`
	Difficulty           *string  `json:"difficulty,omitempty"`
	Image                string   `json:"image"`
	Portion              *string  `json:"portion,omitempty"`
	Title                string   `json:"title"`
}

// Document is a scored inspiration card. ID is null when the source has none.
type Document struct {
	ID       *string    `json:"id"`
	Score    float64    `json:"score"`
	Document Attributes `json:"document"`
}

// Rank orders documents by score descending, then title ascending.
func Rank(docs []Document) []Document {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].Document.Title < docs[j].Document.Title
	})
	return docs
}
