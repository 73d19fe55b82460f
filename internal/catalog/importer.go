// Package catalog loads reviews and products into storage and reads them
// back as the two feed sources.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"storeviewer/internal/viewer/media"
)

var ErrImportInProgress = errors.New("import already in progress")

// Store is where imported records go.
type Store interface {
	UpsertReview(ctx context.Context, r media.Review, order int) error
	UpsertProduct(ctx context.Context, p media.Product, order int) error
}

type ReviewRecord struct {
	ID           string       `yaml:"id"`
	ProductID    string       `yaml:"product_id"`
	Author       media.Author `yaml:"author"`
	Text         string       `yaml:"text"`
	Rating       int          `yaml:"rating"`
	Media        []string     `yaml:"media"`
	LikeCount    int          `yaml:"like_count"`
	CommentCount int          `yaml:"comment_count"`
}

type ProductRecord struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Brand         string   `yaml:"brand"`
	Price         float64  `yaml:"price"`
	OriginalPrice *float64 `yaml:"original_price"`
	Video         string   `yaml:"video"`
	Image         string   `yaml:"image"`
	Gallery       []string `yaml:"gallery"`
	InStock       *bool    `yaml:"in_stock"`
}

// File is the on-disk catalog layout.
type File struct {
	Reviews  []ReviewRecord  `yaml:"reviews"`
	Products []ProductRecord `yaml:"products"`
}

type Result struct {
	Reviews  int `json:"reviews"`
	Products int `json:"products"`
	Videos   int `json:"videos"`
	Skipped  int `json:"skipped"`
}

type Importer struct {
	store     Store
	logger    zerolog.Logger
	importing bool
	mu        sync.Mutex
}

func NewImporter(store Store, logger zerolog.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: logger,
	}
}

func (i *Importer) IsImporting() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.importing
}

// ImportFile reads a YAML catalog from path and upserts it.
func (i *Importer) ImportFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Result{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	i.logger.Info().
		Str("path", path).
		Int("reviews", len(f.Reviews)).
		Int("products", len(f.Products)).
		Msg("importing catalog")

	return i.Import(ctx, f)
}

// Import upserts every record in f. Records keep their position in the
// file as feed order. Only one import runs at a time.
func (i *Importer) Import(ctx context.Context, f File) (Result, error) {
	i.mu.Lock()
	if i.importing {
		i.mu.Unlock()
		return Result{}, ErrImportInProgress
	}
	i.importing = true
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.importing = false
		i.mu.Unlock()
	}()

	var res Result

	for n, rec := range f.Reviews {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r, ok := rec.review()
		if !ok {
			i.logger.Warn().Int("index", n).Msg("skipping review without author or text")
			res.Skipped++
			continue
		}
		if err := i.store.UpsertReview(ctx, r, n); err != nil {
			i.logger.Error().Err(err).Str("id", r.ID).Msg("failed to store review")
			res.Skipped++
			continue
		}
		for _, u := range r.MediaURLs {
			if media.KindFromURL(u) == media.KindVideo {
				res.Videos++
			}
		}
		res.Reviews++
	}

	for n, rec := range f.Products {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, ok := rec.product()
		if !ok {
			i.logger.Warn().Int("index", n).Msg("skipping product without name")
			res.Skipped++
			continue
		}
		if err := i.store.UpsertProduct(ctx, p, n); err != nil {
			i.logger.Error().Err(err).Str("id", p.ID).Msg("failed to store product")
			res.Skipped++
			continue
		}
		if p.VideoURL != "" {
			res.Videos++
		}
		res.Products++
	}

	i.logger.Info().
		Int("reviews", res.Reviews).
		Int("products", res.Products).
		Int("videos", res.Videos).
		Int("skipped", res.Skipped).
		Msg("catalog imported")

	return res, nil
}

func (r ReviewRecord) review() (media.Review, bool) {
	if strings.TrimSpace(r.Author.Name) == "" || strings.TrimSpace(r.Text) == "" {
		return media.Review{}, false
	}
	id := r.ID
	if id == "" {
		id = generateID("review" + r.Author.Name + r.Text)
	}

	urls := make([]string, 0, len(r.Media))
	for _, u := range r.Media {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	return media.Review{
		ID:           id,
		ProductID:    r.ProductID,
		Author:       r.Author,
		Text:         r.Text,
		Rating:       min(max(r.Rating, 1), 5),
		MediaURLs:    urls,
		LikeCount:    max(r.LikeCount, 0),
		CommentCount: max(r.CommentCount, 0),
	}, true
}

func (p ProductRecord) product() (media.Product, bool) {
	if strings.TrimSpace(p.Name) == "" {
		return media.Product{}, false
	}
	id := p.ID
	if id == "" {
		id = generateID("product" + p.Brand + p.Name)
	}
	inStock := true
	if p.InStock != nil {
		inStock = *p.InStock
	}

	return media.Product{
		ID:            id,
		Name:          p.Name,
		Brand:         p.Brand,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		VideoURL:      strings.TrimSpace(p.Video),
		ImageURL:      strings.TrimSpace(p.Image),
		ImageURLs:     p.Gallery,
		InStock:       inStock,
	}, true
}

func generateID(seed string) string {
	hash := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(hash[:8])
}
