package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"storeviewer/internal/viewer/media"
	"storeviewer/internal/viewer/reaction"
)

var ErrNotFound = errors.New("not found")

var _ reaction.Service = (*SQLiteStorage)(nil)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStorage{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reviews (
		id TEXT PRIMARY KEY,
		product_id TEXT DEFAULT '',
		author_name TEXT NOT NULL,
		author_avatar TEXT DEFAULT '',
		author_verified BOOLEAN DEFAULT FALSE,
		body TEXT NOT NULL,
		rating INTEGER NOT NULL,
		like_count INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS review_media (
		review_id TEXT NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (review_id, position)
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		brand TEXT DEFAULT '',
		price REAL NOT NULL,
		original_price REAL,
		video_url TEXT DEFAULT '',
		image_url TEXT DEFAULT '',
		in_stock BOOLEAN DEFAULT TRUE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS product_media (
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY (product_id, position)
	);

	CREATE TABLE IF NOT EXISTS reactions (
		entity_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (entity_id, user_id, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_reactions_user ON reactions(user_id, kind);

	CREATE TABLE IF NOT EXISTS cart_items (
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, product_id)
	);

	CREATE TABLE IF NOT EXISTS preferences (
		user_id TEXT PRIMARY KEY,
		muted BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Reviews

// UpsertReview inserts or replaces a review and its media list. order is
// the position of the review in the feed.
func (s *SQLiteStorage) UpsertReview(ctx context.Context, r media.Review, order int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews (
			id, product_id, author_name, author_avatar, author_verified,
			body, rating, like_count, comment_count, sort_order, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			product_id = excluded.product_id,
			author_name = excluded.author_name,
			author_avatar = excluded.author_avatar,
			author_verified = excluded.author_verified,
			body = excluded.body,
			rating = excluded.rating,
			comment_count = excluded.comment_count,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at
	`,
		r.ID, r.ProductID, r.Author.Name, r.Author.AvatarURL, r.Author.Verified,
		r.Text, r.Rating, r.LikeCount, r.CommentCount, order, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert review %s: %w", r.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM review_media WHERE review_id = ?", r.ID); err != nil {
		return err
	}
	for i, u := range r.MediaURLs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO review_media (review_id, position, kind, url) VALUES (?, ?, ?, ?)",
			r.ID, i, string(media.KindFromURL(u)), u,
		); err != nil {
			return fmt.Errorf("insert review media %s/%d: %w", r.ID, i, err)
		}
	}

	return tx.Commit()
}

// ListReviews returns all reviews in feed order with userID's like state.
func (s *SQLiteStorage) ListReviews(ctx context.Context, userID string) ([]media.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.product_id, r.author_name, r.author_avatar, r.author_verified,
		       r.body, r.rating, r.like_count, r.comment_count,
		       EXISTS(SELECT 1 FROM reactions x WHERE x.entity_id = r.id AND x.user_id = ? AND x.kind = 'like')
		FROM reviews r ORDER BY r.sort_order, r.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []media.Review
	for rows.Next() {
		var r media.Review
		if err := rows.Scan(
			&r.ID, &r.ProductID, &r.Author.Name, &r.Author.AvatarURL, &r.Author.Verified,
			&r.Text, &r.Rating, &r.LikeCount, &r.CommentCount, &r.UserHasLiked,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mediaByReview, err := s.reviewMedia(ctx)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		reviews[i].MediaURLs = mediaByReview[reviews[i].ID]
	}

	return reviews, nil
}

func (s *SQLiteStorage) reviewMedia(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT review_id, url FROM review_media ORDER BY review_id, position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, u string
		if err := rows.Scan(&id, &u); err != nil {
			return nil, err
		}
		out[id] = append(out[id], u)
	}
	return out, rows.Err()
}

// Products

func (s *SQLiteStorage) UpsertProduct(ctx context.Context, p media.Product, order int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (
			id, name, brand, price, original_price, video_url, image_url,
			in_stock, sort_order, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			price = excluded.price,
			original_price = excluded.original_price,
			video_url = excluded.video_url,
			image_url = excluded.image_url,
			in_stock = excluded.in_stock,
			sort_order = excluded.sort_order,
			updated_at = excluded.updated_at
	`,
		p.ID, p.Name, p.Brand, p.Price, p.OriginalPrice, p.VideoURL, p.ImageURL,
		p.InStock, order, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM product_media WHERE product_id = ?", p.ID); err != nil {
		return err
	}
	for i, u := range p.ImageURLs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO product_media (product_id, position, url) VALUES (?, ?, ?)",
			p.ID, i, u,
		); err != nil {
			return fmt.Errorf("insert product media %s/%d: %w", p.ID, i, err)
		}
	}

	return tx.Commit()
}

// ListProducts returns all products in feed order with userID's wishlist
// state.
func (s *SQLiteStorage) ListProducts(ctx context.Context, userID string) ([]media.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.brand, p.price, p.original_price, p.video_url, p.image_url, p.in_stock,
		       EXISTS(SELECT 1 FROM reactions x WHERE x.entity_id = p.id AND x.user_id = ? AND x.kind = 'wishlist')
		FROM products p ORDER BY p.sort_order, p.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []media.Product
	for rows.Next() {
		var p media.Product
		var original sql.NullFloat64
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Brand, &p.Price, &original, &p.VideoURL, &p.ImageURL,
			&p.InStock, &p.InWishlist,
		); err != nil {
			return nil, err
		}
		if original.Valid {
			v := original.Float64
			p.OriginalPrice = &v
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	gallery, err := s.productMedia(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].ImageURLs = gallery[products[i].ID]
	}

	return products, nil
}

func (s *SQLiteStorage) productMedia(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT product_id, url FROM product_media ORDER BY product_id, position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, u string
		if err := rows.Scan(&id, &u); err != nil {
			return nil, err
		}
		out[id] = append(out[id], u)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM reviews), (SELECT COUNT(*) FROM products)",
	).Scan(&c.Reviews, &c.Products)
	return c, err
}

// Reactions

// Add records a reaction. Adding a like or wishlist entry that already
// exists returns reaction.ErrConflict; cart adds bump the quantity.
func (s *SQLiteStorage) Add(ctx context.Context, key reaction.Key) error {
	if err := s.checkEntity(ctx, key); err != nil {
		return err
	}

	if key.Kind == reaction.KindCart {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(user_id, product_id) DO UPDATE SET
				quantity = quantity + 1,
				updated_at = excluded.updated_at
		`, key.UserID, key.EntityID, time.Now())
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reactions (entity_id, user_id, kind, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id, user_id, kind) DO NOTHING
	`, key.EntityID, key.UserID, string(key.Kind), time.Now())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reaction.ErrConflict
	}

	if key.Kind == reaction.KindLike {
		if _, err := tx.ExecContext(ctx,
			"UPDATE reviews SET like_count = like_count + 1 WHERE id = ?", key.EntityID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Remove deletes a reaction. Removing something that is not there returns
// reaction.ErrConflict; cart removes drop one unit.
func (s *SQLiteStorage) Remove(ctx context.Context, key reaction.Key) error {
	if err := s.checkEntity(ctx, key); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if key.Kind == reaction.KindCart {
		res, err := tx.ExecContext(ctx,
			"UPDATE cart_items SET quantity = quantity - 1, updated_at = ? WHERE user_id = ? AND product_id = ?",
			time.Now(), key.UserID, key.EntityID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return reaction.ErrConflict
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE quantity <= 0"); err != nil {
			return err
		}
		return tx.Commit()
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM reactions WHERE entity_id = ? AND user_id = ? AND kind = ?",
		key.EntityID, key.UserID, string(key.Kind),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return reaction.ErrConflict
	}

	if key.Kind == reaction.KindLike {
		if _, err := tx.ExecContext(ctx,
			"UPDATE reviews SET like_count = MAX(like_count - 1, 0) WHERE id = ?", key.EntityID,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Current reports whether the reaction is set. For the cart it reports
// whether the product is in it at all.
func (s *SQLiteStorage) Current(ctx context.Context, key reaction.Key) (bool, error) {
	if err := s.checkEntity(ctx, key); err != nil {
		return false, err
	}

	var exists bool
	var err error
	if key.Kind == reaction.KindCart {
		err = s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM cart_items WHERE user_id = ? AND product_id = ?)",
			key.UserID, key.EntityID,
		).Scan(&exists)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM reactions WHERE entity_id = ? AND user_id = ? AND kind = ?)",
			key.EntityID, key.UserID, string(key.Kind),
		).Scan(&exists)
	}
	return exists, err
}

// checkEntity verifies the reaction targets an existing entity of the
// right type: likes go on reviews, wishlist and cart on products.
func (s *SQLiteStorage) checkEntity(ctx context.Context, key reaction.Key) error {
	if !key.Kind.Valid() {
		return fmt.Errorf("%q: %w", key.Kind, reaction.ErrInvalidKind)
	}

	table := "products"
	if key.Kind == reaction.KindLike {
		table = "reviews"
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM "+table+" WHERE id = ?)", key.EntityID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", strings.TrimSuffix(table, "s"), key.EntityID, reaction.ErrUnknownEntity)
	}
	return nil
}

// Cart

func (s *SQLiteStorage) ListCart(ctx context.Context, userID string) ([]CartItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, updated_at
		FROM cart_items WHERE user_id = ? ORDER BY updated_at DESC, product_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []CartItem{}
	for rows.Next() {
		var c CartItem
		if err := rows.Scan(&c.ProductID, &c.Quantity, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Preferences

// GetPreferences returns ErrNotFound when the user has never saved any.
func (s *SQLiteStorage) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	p := Preferences{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		"SELECT muted FROM preferences WHERE user_id = ?", userID,
	).Scan(&p.Muted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStorage) SavePreferences(ctx context.Context, p Preferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (user_id, muted, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			muted = excluded.muted,
			updated_at = excluded.updated_at
	`, p.UserID, p.Muted, time.Now())
	return err
}
