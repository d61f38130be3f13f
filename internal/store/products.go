package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

const productColumns = `name, description, model, manufacturer, category, price, sale_price,
	currency, quantity, warranty, main_image, additional_image1, additional_image2,
	additional_image3, additional_image4, type, user_id`

var (
	insertProductQuery = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`
	insertProductWithIDQuery = `INSERT INTO products (id, ` + productColumns + `)
		VALUES ($18, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`
	productsByIDsQuery = `SELECT id, ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id`
	productsByOwnerQuery = `SELECT id, ` + productColumns + `
		FROM products
		WHERE user_id = $1
		ORDER BY id`
)

const (
	upsertAttributeQuery = `
		INSERT INTO attributes (name, code, is_required, is_restricted, unit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	insertProductAttributeQuery = `
		INSERT INTO product_attributes (product_id, attribute_id, value, is_extracted_by_ai)
		VALUES ($1, $2, $3, $4)
	`
	productAttributesQuery = `
		SELECT pa.product_id, a.id, a.name, a.code, a.is_required, a.is_restricted, a.unit,
			pa.value, pa.is_extracted_by_ai
		FROM product_attributes pa
		JOIN attributes a ON a.id = pa.attribute_id
		WHERE pa.product_id = ANY($1)
		ORDER BY pa.id
	`
	// Explicit ids bypass the identity sequence; move it past them so the
	// next database-assigned id does not collide.
	syncProductIDSequenceQuery = `
		SELECT setval(pg_get_serial_sequence('products', 'id'),
			GREATEST((SELECT max(id) FROM products), 1))
	`
	deleteProductQuery = `DELETE FROM products WHERE id = $1`
	clearQuery         = `TRUNCATE product_attributes, products, attributes RESTART IDENTITY CASCADE`
)

// SaveProducts inserts products and their attributes in one transaction.
// Products with a non-zero ID keep it and the id sequence is advanced past
// them; others get one from the database. Attributes are shared across
// products by code.
func (s *Store) SaveProducts(ctx context.Context, products []core.Product) ([]core.Product, error) {
	if len(products) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	attrIDs := make(map[string]int64)
	explicitIDs := false
	out := make([]core.Product, len(products))
	for i, p := range products {
		explicitIDs = explicitIDs || p.ID != 0
		id, err := insertProduct(ctx, tx, p)
		if err != nil {
			return nil, fmt.Errorf("insert product %q: %w", p.Model, err)
		}
		p.ID = id

		attrs := make([]core.ProductAttribute, len(p.Attributes))
		for j, pa := range p.Attributes {
			if pa.Attribute.Code == "" {
				pa.Attribute.Code = core.AttributeCode(pa.Attribute.Name)
			}
			attrID, ok := attrIDs[pa.Attribute.Code]
			if !ok {
				a := pa.Attribute
				err := tx.QueryRowContext(ctx, upsertAttributeQuery,
					a.Name, a.Code, a.IsRequired, a.IsRestricted, a.Unit,
				).Scan(&attrID)
				if err != nil {
					return nil, fmt.Errorf("upsert attribute %q: %w", a.Code, err)
				}
				attrIDs[a.Code] = attrID
			}
			pa.Attribute.ID = attrID
			pa.ProductID = id

			if _, err := tx.ExecContext(ctx, insertProductAttributeQuery,
				id, attrID, pa.Value, pa.IsExtractedByAI,
			); err != nil {
				return nil, fmt.Errorf("insert attribute %q of product %d: %w", pa.Attribute.Code, id, err)
			}
			attrs[j] = pa
		}
		p.Attributes = attrs
		out[i] = p
	}

	if explicitIDs {
		if _, err := tx.ExecContext(ctx, syncProductIDSequenceQuery); err != nil {
			return nil, fmt.Errorf("sync product id sequence: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func insertProduct(ctx context.Context, tx *sql.Tx, p core.Product) (int64, error) {
	args := []any{
		p.Name, p.Description, p.Model, p.Manufacturer, p.Category, p.Price, p.SalePrice,
		p.Currency, p.Quantity, p.Warranty, p.MainImage, p.AdditionalImage1, p.AdditionalImage2,
		p.AdditionalImage3, p.AdditionalImage4, p.Type, nullOwner(p.UserID),
	}
	if p.ID != 0 {
		_, err := tx.ExecContext(ctx, insertProductWithIDQuery, append(args, p.ID)...)
		return p.ID, err
	}
	var id int64
	err := tx.QueryRowContext(ctx, insertProductQuery, args...).Scan(&id)
	return id, err
}

// ProductsByIDs loads products with their attributes, ordered by id.
// Unknown ids are ignored.
func (s *Store) ProductsByIDs(ctx context.Context, ids []int64) ([]core.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryProducts(ctx, productsByIDsQuery, pq.Array(ids))
}

// ProductsByOwner loads the products uploaded by userID, ordered by id.
func (s *Store) ProductsByOwner(ctx context.Context, userID int64) ([]core.Product, error) {
	return s.queryProducts(ctx, productsByOwnerQuery, userID)
}

// DeleteProduct removes one product and its attribute values.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", core.ErrProductNotFound, id)
	}
	return nil
}

func (s *Store) queryProducts(ctx context.Context, query string, arg any) ([]core.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products []core.Product
		ids      []int64
	)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			p     core.Product
			owner sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Model, &p.Manufacturer,
			&p.Category, &p.Price, &p.SalePrice, &p.Currency, &p.Quantity, &p.Warranty,
			&p.MainImage, &p.AdditionalImage1, &p.AdditionalImage2, &p.AdditionalImage3,
			&p.AdditionalImage4, &p.Type, &owner); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.UserID = owner.Int64
		index[p.ID] = len(products)
		ids = append(ids, p.ID)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, nil
	}

	if err := s.attachAttributes(ctx, ids, products, index); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) attachAttributes(ctx context.Context, ids []int64, products []core.Product, index map[int64]int) error {
	rows, err := s.db.QueryContext(ctx, productAttributesQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("list product attributes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pa core.ProductAttribute
		a := &pa.Attribute
		if err := rows.Scan(&pa.ProductID, &a.ID, &a.Name, &a.Code, &a.IsRequired,
			&a.IsRestricted, &a.Unit, &pa.Value, &pa.IsExtractedByAI); err != nil {
			return fmt.Errorf("scan product attribute: %w", err)
		}
		if i, ok := index[pa.ProductID]; ok {
			products[i].Attributes = append(products[i].Attributes, pa)
		}
	}
	return rows.Err()
}

// Clear removes every product, product attribute and attribute.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, clearQuery); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	return nil
}

func nullOwner(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
