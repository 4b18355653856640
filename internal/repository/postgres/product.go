package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const productColumns = `id, name, brand, description, image, images, price, original_price, discount, rating, review_count, category, subcategory, sizes, colors, in_stock, is_new, is_bestseller`

// ProductRepository implements repository.ProductRepository using
// PostgreSQL. List columns are stored as JSONB.
type ProductRepository struct {
	db     database.DBTX
	tracer database.QueryTracer
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX, tracer database.QueryTracer) *ProductRepository {
	return &ProductRepository{db: db, tracer: tracer}
}

// ListProducts returns every product ordered by id.
func (r *ProductRepository) ListProducts(ctx context.Context) (_ []domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	ctx, end := r.tracer.Start(ctx, "list_products", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := r.tracer.Start(ctx, "get_product", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, err
	}
	return p, nil
}

// Upsert inserts p or replaces the stored row with the same id.
func (r *ProductRepository) Upsert(ctx context.Context, p *domain.Product) (err error) {
	if err := p.Validate(); err != nil {
		return apperrors.InvalidInput(err.Error())
	}

	query := `
		INSERT INTO products (` + productColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, brand = EXCLUDED.brand, description = EXCLUDED.description,
			image = EXCLUDED.image, images = EXCLUDED.images, price = EXCLUDED.price,
			original_price = EXCLUDED.original_price, discount = EXCLUDED.discount,
			rating = EXCLUDED.rating, review_count = EXCLUDED.review_count,
			category = EXCLUDED.category, subcategory = EXCLUDED.subcategory,
			sizes = EXCLUDED.sizes, colors = EXCLUDED.colors, in_stock = EXCLUDED.in_stock,
			is_new = EXCLUDED.is_new, is_bestseller = EXCLUDED.is_bestseller,
			updated_at = NOW()`

	ctx, end := r.tracer.Start(ctx, "upsert_product", query)
	defer func() { end(err) }()

	images, sizes, colors, err := marshalLists(p)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query,
		p.ID, p.Name, p.Brand, p.Description, p.Image, images,
		p.Price, p.OriginalPrice, p.Discount,
		p.Rating, p.ReviewCount, p.Category, p.Subcategory,
		sizes, colors, p.InStock, p.IsNew, p.IsBestseller,
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}

func marshalLists(p *domain.Product) (images, sizes, colors []byte, err error) {
	if images, err = json.Marshal(nonNil(p.Images)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	if sizes, err = json.Marshal(nonNil(p.Sizes)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal sizes: %w", err)
	}
	if colors, err = json.Marshal(nonNil(p.Colors)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal colors: %w", err)
	}
	return images, sizes, colors, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p                     domain.Product
		images, sizes, colors []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Brand, &p.Description, &p.Image, &images,
		&p.Price, &p.OriginalPrice, &p.Discount,
		&p.Rating, &p.ReviewCount, &p.Category, &p.Subcategory,
		&sizes, &colors, &p.InStock, &p.IsNew, &p.IsBestseller,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	for _, f := range []struct {
		raw []byte
		dst *[]string
	}{{images, &p.Images}, {sizes, &p.Sizes}, {colors, &p.Colors}} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("unmarshal product %s lists: %w", p.ID, err)
		}
	}
	return &p, nil
}
