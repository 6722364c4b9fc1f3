package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/shelf/internal/db"
	"github.com/kailas-cloud/shelf/internal/domain"
)

// Key layout of the catalog in the store.
var (
	ProductKeyPrefix     = domain.KeyPrefix + "product:"
	InspirationKeyPrefix = domain.KeyPrefix + "inspiration:"
	ProductIndex         = domain.KeyPrefix + "idx:products"
	InspirationIndex     = domain.KeyPrefix + "idx:inspirations"
)

// Product hash fields.
const (
	fieldID            = "id"
	fieldName          = "product_name"
	fieldDescription   = "description"
	fieldChunkText     = "chunk_text"
	fieldCategories    = "product_categories"
	fieldCategory      = "category" // TAG copy of product_categories
	fieldTags          = "product_tags"
	fieldStore         = "store"
	fieldPromos        = "promos"
	fieldSugarLevel    = "product_sugar_level"
	fieldSellingPrice  = "selling_price"
	fieldDiscountPrice = "discount_price"
	fieldPrice         = "price"
	fieldImages        = "images"
	fieldPopularity    = "popularity"
	fieldCreatedAt     = "created_at"
	fieldUpdatedAt     = "updated_at"
	fieldUpdatedBy     = "updated_by"
)

// Inspiration hash fields.
const (
	fieldTitle                = "title"
	fieldImage                = "image"
	fieldBannerContent        = "banner_content"
	fieldBannerShareThumbnail = "banner_share_thumbnail"
	fieldCookTime             = "cook_time"
	fieldDifficulty           = "difficulty"
	fieldPortion              = "portion"
)

// tagSeparator splits multi-valued TAG fields.
const tagSeparator = ","

// productReturnFields lists every product field except the vector.
var productReturnFields = []string{
	fieldID, fieldName, fieldDescription, fieldChunkText, fieldCategories,
	fieldTags, fieldStore, fieldPromos, fieldSugarLevel, fieldSellingPrice,
	fieldDiscountPrice, fieldImages, fieldPopularity, fieldCreatedAt,
	fieldUpdatedAt, fieldUpdatedBy,
}

var inspirationReturnFields = []string{
	fieldID, fieldTitle, fieldDescription, fieldChunkText, fieldImage,
	fieldCategory, fieldBannerContent, fieldBannerShareThumbnail,
	fieldCookTime, fieldDifficulty, fieldPortion,
}

// indexStore is the consumer interface for schema bootstrap (ISP).
type indexStore interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// ProductIndexDefinition describes the product index for embeddings of dim dimensions.
func ProductIndexDefinition(dim int) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(ProductIndex).
		Prefix(ProductKeyPrefix).
		Text(fieldName, 2).
		Text(fieldChunkText, 0).
		TagList(fieldCategory, tagSeparator).
		TagList(fieldTags, tagSeparator).
		Tag(fieldStore).
		Numeric(fieldPrice).
		SortableNumeric(fieldPopularity).
		VectorHNSW(db.DefaultVectorField, dim, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		return nil, fmt.Errorf("product index: %w", err)
	}
	return def, nil
}

// InspirationIndexDefinition describes the BM25 inspiration index.
func InspirationIndexDefinition() *db.IndexDefinition {
	return db.NewIndex(InspirationIndex).
		Prefix(InspirationKeyPrefix).
		Text(fieldTitle, 2).
		Text(fieldDescription, 0).
		Text(fieldChunkText, 0).
		Tag(fieldCategory).
		MustBuild()
}

// EnsureIndexes creates the product and inspiration indexes when absent.
func EnsureIndexes(ctx context.Context, s indexStore, dim int) error {
	productDef, err := ProductIndexDefinition(dim)
	if err != nil {
		return err
	}
	for _, def := range []*db.IndexDefinition{productDef, InspirationIndexDefinition()} {
		exists, err := s.IndexExists(ctx, def.Name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			continue
		}
		if err := s.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", def.Name, err)
		}
	}
	return nil
}
