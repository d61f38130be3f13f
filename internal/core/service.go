package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UploadTimeout is the maximum duration for an upload operation.
var UploadTimeout = 10 * time.Minute

// FeedDecoder turns an uploaded file into tabular feed data.
type FeedDecoder interface {
	Decode(name string, r io.Reader) (RawFeedData, error)
}

// MappingStore persists saved column mappings.
type MappingStore interface {
	// MappingGroups returns the rules visible to userID grouped by market,
	// in market order.
	MappingGroups(ctx context.Context, userID int64) ([][]MapModel, error)
	SaveMapping(ctx context.Context, m MapModel) (MapModel, error)
	MappingsForMarket(ctx context.Context, market string, userID int64) ([]MapModel, error)
}

// ProductStore persists extracted products.
type ProductStore interface {
	// SaveProducts inserts products with their attributes and returns them
	// with storage-assigned ids filled in.
	SaveProducts(ctx context.Context, products []Product) ([]Product, error)
	ProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	ProductsByOwner(ctx context.Context, userID int64) ([]Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}

// UserStore looks up uploading users.
type UserStore interface {
	UserByID(ctx context.Context, id int64) (User, error)
}

// Exporter renders products into a marketplace file.
type Exporter interface {
	Export(products []Product) ([]byte, error)
}

// Deps are the collaborators a Service needs. Oracle may be nil.
type Deps struct {
	Decoder   FeedDecoder
	Extractor *Extractor
	Mappings  MappingStore
	Products  ProductStore
	Users     UserStore
	Exporter  Exporter
	Oracle    Oracle
	Logger    *slog.Logger
}

// ServiceConfig tunes upload processing.
type ServiceConfig struct {
	UploadTimeout        time.Duration
	MaxConcurrentUploads int
	UploadWait           time.Duration
	NormalizeConcurrency int
}

// Service coordinates feed uploads, mappings, catalog and export.
type Service struct {
	deps    Deps
	cfg     ServiceConfig
	limiter *UploadLimiter
	logger  *slog.Logger

	catalogMu sync.RWMutex
	catalog   []Attribute

	mu      sync.Mutex
	uploads map[string]*activeUpload
}

type activeUpload struct {
	ID        string
	FileName  string
	UserID    int64
	StartedAt time.Time
	Cancel    context.CancelFunc
}

// ActiveUpload describes an upload in progress.
type ActiveUpload struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	UserID    int64     `json:"userId"`
	StartedAt time.Time `json:"startedAt"`
}

// NewService creates a Service. Decoder, Extractor, Mappings, Products and
// Users are required.
func NewService(deps Deps, cfg ServiceConfig) (*Service, error) {
	switch {
	case deps.Decoder == nil:
		return nil, fmt.Errorf("new service: decoder is required")
	case deps.Mappings == nil:
		return nil, fmt.Errorf("new service: mapping store is required")
	case deps.Products == nil:
		return nil, fmt.Errorf("new service: product store is required")
	case deps.Users == nil:
		return nil, fmt.Errorf("new service: user store is required")
	}
	if deps.Extractor == nil {
		deps.Extractor = NewExtractor()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = UploadTimeout
	}

	return &Service{
		deps:    deps,
		cfg:     cfg,
		limiter: NewUploadLimiter(cfg.MaxConcurrentUploads, cfg.UploadWait),
		logger:  deps.Logger,
		uploads: make(map[string]*activeUpload),
	}, nil
}

// UploadFeed decodes, extracts, optionally normalizes and stores one feed.
//
// A feed whose layout is not recognized is not an error: the result has
// NeedsMapping set and echoes the headers so the caller can ask for a
// column mapping. Returns ErrTooManyUploads if no upload slot frees up.
func (s *Service) UploadFeed(ctx context.Context, req UploadRequest) (result *UploadResult, err error) {
	if req.Reader == nil {
		return nil, fmt.Errorf("no file provided")
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	uploadID := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	s.track(&activeUpload{
		ID:        uploadID,
		FileName:  req.FileName,
		UserID:    req.UserID,
		StartedAt: time.Now(),
		Cancel:    cancel,
	})
	defer s.untrack(uploadID)

	logger := s.logger.With(
		"upload_id", uploadID,
		"user_id", req.UserID,
		"file", req.FileName,
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in upload", "panic", r)
			result, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()

	start := time.Now()
	logger.Info("upload started")

	user, err := s.deps.Users.UserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", req.UserID, err)
	}
	logger = logger.With("user", user.FullName())

	raw, err := s.deps.Decoder.Decode(req.FileName, req.Reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.FileName, err)
	}
	logger.Debug("feed decoded", "columns", len(raw.Headers), "rows", len(raw.Rows))

	groups, err := s.deps.Mappings.MappingGroups(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}

	ex, err := s.deps.Extractor.ExtractProducts(ctx, raw, groups, user)
	if err != nil {
		return nil, err
	}

	result = &UploadResult{
		UploadID:  uploadID,
		FileName:  req.FileName,
		Market:    ex.Market,
		Headers:   ex.Headers,
		TotalRows: len(raw.Rows),
	}

	if !ex.Detected {
		result.NeedsMapping = true
		result.Reason = ex.Reason
		result.Duration = time.Since(start)
		logger.Info("feed needs mapping", "reason", ex.Reason)
		return result, nil
	}

	result.Strategy = ex.Strategy.String()
	result.FailedRows = ex.FailedRows
	result.Skipped = len(ex.FailedRows)
	products := ex.Products

	if req.Normalize {
		normalized, nerr := s.normalize(ctx, products)
		if nerr != nil {
			logger.Warn("normalization failed, storing unnormalized products", "error", nerr)
			result.NormalizeErr = nerr.Error()
		} else {
			products = normalized
			result.Normalized = true
		}
	}

	saved, err := s.deps.Products.SaveProducts(ctx, products)
	if err != nil {
		return nil, fmt.Errorf("save products: %w", err)
	}

	result.Products = saved
	result.Inserted = len(saved)
	result.Duration = time.Since(start)

	logger.Info("upload completed",
		"strategy", result.Strategy,
		"market", result.Market,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

func (s *Service) normalize(ctx context.Context, products []Product) ([]Product, error) {
	catalog := s.Catalog()
	if len(catalog) == 0 {
		return nil, ErrCatalogEmpty
	}
	n := NewNormalizer(catalog, s.deps.Oracle, s.logger)
	return n.NormalizeAll(ctx, products, s.cfg.NormalizeConcurrency)
}

// ExportProducts loads the given products and renders them with the exporter.
func (s *Service) ExportProducts(ctx context.Context, ids []int64) ([]byte, error) {
	if len(ids) == 0 {
		return nil, ErrNoProducts
	}
	if s.deps.Exporter == nil {
		return nil, fmt.Errorf("export: no exporter configured")
	}

	products, err := s.deps.Products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	data, err := s.deps.Exporter.Export(products)
	if err != nil {
		return nil, fmt.Errorf("export products: %w", err)
	}

	s.logger.Info("products exported", "requested", len(ids), "exported", len(products))
	return data, nil
}

// ClearAll removes every product, product attribute and attribute.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.deps.Products.Clear(ctx); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	s.logger.Info("product data cleared")
	return nil
}

// MappingGroups returns the saved mapping groups visible to userID.
func (s *Service) MappingGroups(ctx context.Context, userID int64) ([][]MapModel, error) {
	return s.deps.Mappings.MappingGroups(ctx, userID)
}

// SaveMapping validates and upserts one mapping rule.
func (s *Service) SaveMapping(ctx context.Context, m MapModel) (MapModel, error) {
	m.SourceField = strings.TrimSpace(m.SourceField)
	m.DestinationField = strings.TrimSpace(m.DestinationField)
	m.Market = strings.TrimSpace(m.Market)

	var missing []string
	if m.SourceField == "" {
		missing = append(missing, "sourceField")
	}
	if m.DestinationField == "" {
		missing = append(missing, "destinationField")
	}
	if m.Market == "" {
		missing = append(missing, "market")
	}
	if len(missing) > 0 {
		return MapModel{}, fmt.Errorf("%w: missing %s", ErrInvalidMapping, strings.Join(missing, ", "))
	}

	saved, err := s.deps.Mappings.SaveMapping(ctx, m)
	if err != nil {
		return MapModel{}, fmt.Errorf("save mapping: %w", err)
	}
	return saved, nil
}

// MappingsForMarket returns the rules of one market visible to userID.
func (s *Service) MappingsForMarket(ctx context.Context, market string, userID int64) ([]MapModel, error) {
	return s.deps.Mappings.MappingsForMarket(ctx, market, userID)
}

// SetCatalog replaces the marketplace attribute catalog used for normalization.
func (s *Service) SetCatalog(catalog []Attribute) {
	c := make([]Attribute, len(catalog))
	copy(c, catalog)

	s.catalogMu.Lock()
	s.catalog = c
	s.catalogMu.Unlock()

	s.logger.Info("marketplace catalog loaded", "attributes", len(c))
}

// Catalog returns a copy of the current catalog.
func (s *Service) Catalog() []Attribute {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	c := make([]Attribute, len(s.catalog))
	copy(c, s.catalog)
	return c
}

// Products lists the products uploaded by userID.
func (s *Service) Products(ctx context.Context, userID int64) ([]Product, error) {
	products, err := s.deps.Products.ProductsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list products of user %d: %w", userID, err)
	}
	return products, nil
}

// Product loads one product owned by userID. Products of other users are
// reported as ErrProductNotFound.
func (s *Service) Product(ctx context.Context, id, userID int64) (Product, error) {
	products, err := s.deps.Products.ProductsByIDs(ctx, []int64{id})
	if err != nil {
		return Product{}, fmt.Errorf("load product %d: %w", id, err)
	}
	if len(products) == 0 || products[0].UserID != userID {
		return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return products[0], nil
}

// DeleteProduct removes one product owned by userID.
func (s *Service) DeleteProduct(ctx context.Context, id, userID int64) error {
	if _, err := s.Product(ctx, id, userID); err != nil {
		return err
	}
	if err := s.deps.Products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", "product_id", id, "user_id", userID)
	return nil
}

// LimiterStatus reports upload slot usage.
func (s *Service) LimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// ActiveUploads lists userID's uploads in progress.
func (s *Service) ActiveUploads(userID int64) []ActiveUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActiveUpload, 0, len(s.uploads))
	for _, u := range s.uploads {
		if u.UserID != userID {
			continue
		}
		out = append(out, ActiveUpload{
			ID:        u.ID,
			FileName:  u.FileName,
			UserID:    u.UserID,
			StartedAt: u.StartedAt,
		})
	}
	return out
}

// CancelUpload cancels one of userID's uploads in progress. Uploads of
// other users are reported as ErrUploadNotFound.
func (s *Service) CancelUpload(id string, userID int64) error {
	s.mu.Lock()
	u, ok := s.uploads[id]
	s.mu.Unlock()
	if !ok || u.UserID != userID {
		return fmt.Errorf("%w: %s", ErrUploadNotFound, id)
	}
	u.Cancel()
	return nil
}

// WaitForUploads blocks until in-flight uploads finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) track(u *activeUpload) {
	s.mu.Lock()
	s.uploads[u.ID] = u
	s.mu.Unlock()
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	delete(s.uploads, id)
	s.mu.Unlock()
}
