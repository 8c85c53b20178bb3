// Package service owns the lifecycle of each kapp's category hierarchy:
// loading it from the configured source through the Valkey cache,
// rebuilding it after every mutation, and publishing snapshots.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"techbar/internal/cache"
	"techbar/internal/catalog"
	"techbar/internal/metrics"
	"techbar/internal/models"
	"techbar/internal/platform"
	"techbar/internal/poller"
	"techbar/internal/slug"
	"techbar/internal/storage"
	"techbar/internal/store"
)

// Source is where a kapp's categories live: the platform API or Postgres.
type Source interface {
	Categories(ctx context.Context, kapp string) ([]models.RawCategory, error)
	CreateCategory(ctx context.Context, kapp string, raw models.RawCategory) error
	UpdateCategory(ctx context.Context, kapp, slug string, raw models.RawCategory) error
	DeleteCategory(ctx context.Context, kapp, slug string) error
	Forms(ctx context.Context, kapp string) ([]models.Form, error)
}

// Exporter publishes JSON documents. *storage.Client satisfies it.
type Exporter interface {
	PutJSON(ctx context.Context, key string, v any) error
	FileURL(key string) string
}

// Snapshot is the document exported after every rebuild.
type Snapshot struct {
	Kapp          string             `json:"kapp"`
	GeneratedAt   time.Time          `json:"generated_at"`
	IncludeHidden bool               `json:"include_hidden"`
	Categories    []catalog.Category `json:"categories"`
	Tree          []catalog.Node     `json:"tree"`
}

// Catalog holds the current helper of every kapp it has served.
type Catalog struct {
	source        Source
	cache         *cache.CatalogCache
	exporter      Exporter
	metrics       *metrics.Metrics
	submissions   SubmissionSource
	options       catalog.Options
	includeHidden bool
	ramp          poller.Ramp

	mu      sync.RWMutex
	helpers map[string]*catalog.Helper
	builds  singleflight.Group

	// publishMu orders helper swaps and cache writes against Refresh.
	// A build publishes only if no Refresh started since it began.
	publishMu sync.Mutex
	gens      map[string]uint64
	// writeMu serialises mutations so validation sees the latest helper.
	writeMu sync.Mutex
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithCache reads and writes raw category lists through Valkey.
func WithCache(cc *cache.CatalogCache) Option {
	return func(c *Catalog) { c.cache = cc }
}

// WithExporter publishes a snapshot after every rebuild from the source.
func WithExporter(e Exporter) Option {
	return func(c *Catalog) { c.exporter = e }
}

// WithMetrics records rebuild and source metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithSubmissions enables AwaitSubmission.
func WithSubmissions(s SubmissionSource) Option {
	return func(c *Catalog) { c.submissions = s }
}

// WithRamp sets the delays AwaitSubmission polls with.
func WithRamp(r poller.Ramp) Option {
	return func(c *Catalog) { c.ramp = r }
}

// WithCategoryOptions sets the attribute names and form allow-lists.
func WithCategoryOptions(o catalog.Options) Option {
	return func(c *Catalog) { c.options = o }
}

// WithIncludeHidden sets the default visibility of every helper.
func WithIncludeHidden(include bool) Option {
	return func(c *Catalog) { c.includeHidden = include }
}

// New creates a Catalog over a category source.
func New(source Source, opts ...Option) *Catalog {
	c := &Catalog{
		source:  source,
		options: catalog.DefaultOptions(),
		ramp:    poller.DefaultRamp,
		helpers: make(map[string]*catalog.Helper),
		gens:    make(map[string]uint64),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Options returns the category options helpers are built with.
func (c *Catalog) Options() catalog.Options {
	return c.options
}

// Kapps returns the kapps with a loaded helper, sorted.
func (c *Catalog) Kapps() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kapps := make([]string, 0, len(c.helpers))
	for k := range c.helpers {
		kapps = append(kapps, k)
	}
	sort.Strings(kapps)
	return kapps
}

// Helper returns the kapp's helper, building it from the cache or the
// source on first use.
func (c *Catalog) Helper(ctx context.Context, kapp string) (*catalog.Helper, error) {
	c.mu.RLock()
	h, ok := c.helpers[kapp]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}
	return c.build(ctx, kapp, true)
}

// Refresh rebuilds the kapp's helper from the source, bypassing the cache.
// Builds already in flight for the kapp no longer replace the helper or
// write the cache.
func (c *Catalog) Refresh(ctx context.Context, kapp string) (*catalog.Helper, error) {
	c.cache.Invalidate(ctx, kapp)
	c.publishMu.Lock()
	c.gens[kapp]++
	c.publishMu.Unlock()
	return c.build(ctx, kapp, false)
}

// RefreshAll drops every cached kapp and rebuilds each loaded helper. It
// returns the kapps it refreshed and the joined errors of those that
// failed.
func (c *Catalog) RefreshAll(ctx context.Context) ([]string, error) {
	c.cache.InvalidateAll(ctx)
	kapps := c.Kapps()
	var errs []error
	for _, kapp := range kapps {
		if _, err := c.Refresh(ctx, kapp); err != nil {
			errs = append(errs, fmt.Errorf("refresh %s: %w", kapp, err))
		}
	}
	return kapps, errors.Join(errs...)
}

// Forms lists every form of the kapp as the source reports it, categorised
// or not.
func (c *Catalog) Forms(ctx context.Context, kapp string) ([]models.Form, error) {
	start := time.Now()
	forms, err := c.source.Forms(ctx, kapp)
	c.metrics.ObserveSource("forms", err == nil, time.Since(start))
	if err != nil {
		return nil, &SourceError{Op: "forms", Err: err}
	}
	return forms, nil
}

func (c *Catalog) generation(kapp string) uint64 {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	return c.gens[kapp]
}

// build coalesces concurrent builds of the same kapp and generation.
func (c *Catalog) build(ctx context.Context, kapp string, useCache bool) (*catalog.Helper, error) {
	gen := c.generation(kapp)
	key := fmt.Sprintf("%s@%d", kapp, gen)
	if !useCache {
		key = "refresh:" + key
	}
	v, err, _ := c.builds.Do(key, func() (any, error) {
		return c.rebuild(ctx, kapp, gen, useCache)
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Helper), nil
}

func (c *Catalog) rebuild(ctx context.Context, kapp string, gen uint64, useCache bool) (*catalog.Helper, error) {
	start := time.Now()

	raw, fromCache := []models.RawCategory(nil), false
	if useCache {
		raw, fromCache = c.cache.Get(ctx, kapp)
	}
	if !fromCache {
		var err error
		raw, err = c.fetch(ctx, kapp)
		if err != nil {
			c.metrics.ObserveRebuild(kapp, false, time.Since(start))
			return nil, err
		}
	}

	h := catalog.New(raw,
		catalog.WithOptions(c.options),
		catalog.WithIncludeHidden(c.includeHidden),
	)

	if !c.publish(ctx, kapp, gen, h, raw, fromCache) {
		zap.S().Debugw("discarding superseded catalog build", "kapp", kapp)
		return h, nil
	}

	c.metrics.ObserveRebuild(kapp, true, time.Since(start))
	c.metrics.SetCategories(kapp, h.Len())
	zap.S().Infow("catalog rebuilt",
		"kapp", kapp,
		"categories", h.Len(),
		"cached", fromCache,
		"duration", time.Since(start),
	)

	if !fromCache {
		c.export(ctx, kapp, h)
	}
	return h, nil
}

// publish swaps in h and caches raw unless a Refresh started after the
// build began.
func (c *Catalog) publish(ctx context.Context, kapp string, gen uint64, h *catalog.Helper, raw []models.RawCategory, fromCache bool) bool {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if c.gens[kapp] != gen {
		return false
	}
	if !fromCache {
		c.cache.Set(ctx, kapp, raw)
	}
	c.mu.Lock()
	c.helpers[kapp] = h
	c.mu.Unlock()
	return true
}

func (c *Catalog) fetch(ctx context.Context, kapp string) ([]models.RawCategory, error) {
	start := time.Now()
	raw, err := c.source.Categories(ctx, kapp)
	c.metrics.ObserveSource("categories", err == nil, time.Since(start))
	if err != nil {
		return nil, &SourceError{Op: "categories", Err: err}
	}
	return raw, nil
}

// Export builds and publishes the kapp's snapshot and returns its URL.
func (c *Catalog) Export(ctx context.Context, kapp string) (string, error) {
	if c.exporter == nil {
		return "", fmt.Errorf("export %s: %w", kapp, ErrUnavailable)
	}
	h, err := c.Helper(ctx, kapp)
	if err != nil {
		return "", err
	}
	return c.putSnapshot(ctx, kapp, h)
}

// export publishes on rebuild; failures are logged, never returned.
func (c *Catalog) export(ctx context.Context, kapp string, h *catalog.Helper) {
	if c.exporter == nil {
		return
	}
	if _, err := c.putSnapshot(ctx, kapp, h); err != nil {
		zap.S().Warnw("catalog snapshot export failed", "kapp", kapp, "error", err)
	}
}

func (c *Catalog) putSnapshot(ctx context.Context, kapp string, h *catalog.Helper) (string, error) {
	snap, err := BuildSnapshot(kapp, h)
	if err != nil {
		return "", err
	}
	key := storage.SnapshotKey(kapp)
	if err := c.exporter.PutJSON(ctx, key, snap); err != nil {
		return "", fmt.Errorf("export %s: %w", kapp, err)
	}
	zap.S().Debugw("catalog snapshot exported", "kapp", kapp, "key", key)
	return c.exporter.FileURL(key), nil
}

// BuildSnapshot collects every category, hidden ones included, and the
// visible tree.
func BuildSnapshot(kapp string, h *catalog.Helper) (Snapshot, error) {
	cats, err := h.Categories(catalog.IncludeHidden)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", kapp, err)
	}
	tree, err := h.Tree(catalog.Default)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", kapp, err)
	}
	return Snapshot{
		Kapp:          kapp,
		GeneratedAt:   time.Now().UTC(),
		IncludeHidden: h.IncludesHidden(),
		Categories:    cats,
		Tree:          tree,
	}, nil
}

// CreateCategory validates the input against the current hierarchy,
// creates the category in the source and rebuilds the helper. An empty
// slug is generated from the name.
func (c *Catalog) CreateCategory(ctx context.Context, kapp string, in models.CategoryInput) (catalog.Category, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	h, err := c.Helper(ctx, kapp)
	if err != nil {
		return catalog.Category{}, err
	}

	if in.Name == "" {
		return catalog.Category{}, invalid("name is required")
	}
	if in.Slug == "" {
		base := slug.Generate(in.Name)
		if base == "" {
			return catalog.Category{}, invalid("cannot derive a slug from %q", in.Name)
		}
		in.Slug = slug.Unique(base, h.HasCategory)
	} else if !slug.Valid(in.Slug) {
		return catalog.Category{}, invalid("malformed slug %q", in.Slug)
	} else if h.HasCategory(in.Slug) {
		return catalog.Category{}, fmt.Errorf("create %s: %w", in.Slug, ErrDuplicate)
	}
	if parent := in.Parent(); parent != "" && !h.HasCategory(parent) {
		return catalog.Category{}, invalid("unknown parent %q", parent)
	}

	raw := catalog.EncodeInput(in, c.options)
	if err := c.mutate(ctx, kapp, "create", func() error {
		return c.source.CreateCategory(ctx, kapp, raw)
	}); err != nil {
		return catalog.Category{}, err
	}
	zap.S().Infow("category created", "kapp", kapp, "slug", in.Slug)
	return c.reload(ctx, kapp, in.Slug)
}

// UpdateCategory replaces a category. An empty name, icon or slug, or a
// nil parent, sort order or hidden flag, keeps the current value. An
// explicit empty parent makes the category a root. Renaming a slug
// re-points its direct children at the new slug.
func (c *Catalog) UpdateCategory(ctx context.Context, kapp, current string, in models.CategoryInput) (catalog.Category, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	h, err := c.Helper(ctx, kapp)
	if err != nil {
		return catalog.Category{}, err
	}
	existing, ok := h.Category(current)
	if !ok {
		return catalog.Category{}, fmt.Errorf("update %s: %w", current, ErrNotFound)
	}

	if in.Name == "" {
		in.Name = existing.Name
	}
	if in.Icon == "" {
		in.Icon = existing.Icon
	}
	if in.SortOrder == nil {
		so := existing.SortOrder
		in.SortOrder = &so
	}
	if in.ParentSlug == nil {
		parent := existing.ParentSlug
		in.ParentSlug = &parent
	}
	if in.Hidden == nil {
		hidden := existing.Hidden
		in.Hidden = &hidden
	}
	if in.Slug == "" {
		in.Slug = current
	}
	if in.Slug != current {
		if !slug.Valid(in.Slug) {
			return catalog.Category{}, invalid("malformed slug %q", in.Slug)
		}
		if h.HasCategory(in.Slug) {
			return catalog.Category{}, fmt.Errorf("update %s: %w", in.Slug, ErrDuplicate)
		}
	}
	if *in.ParentSlug != existing.ParentSlug {
		if err := validateParent(h, current, *in.ParentSlug); err != nil {
			return catalog.Category{}, err
		}
	}

	raw := catalog.EncodeInput(in, c.options)
	if err := c.mutate(ctx, kapp, "update", func() error {
		return c.source.UpdateCategory(ctx, kapp, current, raw)
	}); err != nil {
		return catalog.Category{}, err
	}

	if in.Slug != current {
		if err := c.reparent(ctx, kapp, h, current, in.Slug); err != nil {
			c.cache.Invalidate(ctx, kapp)
			return catalog.Category{}, err
		}
	}
	zap.S().Infow("category updated", "kapp", kapp, "slug", current, "new_slug", in.Slug)
	return c.reload(ctx, kapp, in.Slug)
}

// validateParent rejects a parent that is unknown, the category itself,
// or one of its descendants.
func validateParent(h *catalog.Helper, self, parent string) error {
	if parent == "" {
		return nil
	}
	if parent == self {
		return invalid("category cannot be its own parent")
	}
	if !h.HasCategory(parent) {
		return invalid("unknown parent %q", parent)
	}
	trail, err := h.Trail(parent)
	if err != nil {
		return err
	}
	for _, t := range trail {
		if t.Slug == self {
			return invalid("parent %q is a descendant of %q", parent, self)
		}
	}
	return nil
}

// reparent rewrites the parent attribute of the direct children of a
// renamed category. Hidden children are included.
func (c *Catalog) reparent(ctx context.Context, kapp string, h *catalog.Helper, from, to string) error {
	children, err := h.Children(from, catalog.IncludeHidden)
	if err != nil {
		return err
	}
	for _, child := range children {
		so, hidden := child.SortOrder, child.Hidden
		raw := catalog.EncodeInput(models.CategoryInput{
			Name:       child.Name,
			Slug:       child.Slug,
			ParentSlug: &to,
			SortOrder:  &so,
			Icon:       child.Icon,
			Hidden:     &hidden,
		}, c.options)
		if err := c.mutate(ctx, kapp, "update", func() error {
			return c.source.UpdateCategory(ctx, kapp, child.Slug, raw)
		}); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCategory removes a category. Its children keep pointing at the
// removed slug and surface as roots after the rebuild.
func (c *Catalog) DeleteCategory(ctx context.Context, kapp, target string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	h, err := c.Helper(ctx, kapp)
	if err != nil {
		return err
	}
	if !h.HasCategory(target) {
		return fmt.Errorf("delete %s: %w", target, ErrNotFound)
	}

	if err := c.mutate(ctx, kapp, "delete", func() error {
		return c.source.DeleteCategory(ctx, kapp, target)
	}); err != nil {
		return err
	}
	zap.S().Infow("category deleted", "kapp", kapp, "slug", target)

	_, err = c.Refresh(ctx, kapp)
	return err
}

// mutate runs a source mutation. Not-found and conflict answers mean the
// helper is behind the source, so the kapp is rebuilt before the error is
// returned as ErrNotFound or ErrDuplicate.
func (c *Catalog) mutate(ctx context.Context, kapp, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.metrics.ObserveSource(op, err == nil, time.Since(start))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), platform.IsNotFound(err):
		c.resync(ctx, kapp)
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrDuplicateSlug), platform.IsConflict(err):
		c.resync(ctx, kapp)
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return &SourceError{Op: op, Err: err}
}

func (c *Catalog) resync(ctx context.Context, kapp string) {
	if _, err := c.Refresh(ctx, kapp); err != nil {
		zap.S().Warnw("catalog resync failed", "kapp", kapp, "error", err)
	}
}

// reload rebuilds the helper after a mutation and returns the category.
func (c *Catalog) reload(ctx context.Context, kapp, target string) (catalog.Category, error) {
	h, err := c.Refresh(ctx, kapp)
	if err != nil {
		return catalog.Category{}, err
	}
	cat, ok := h.Category(target)
	if !ok {
		return catalog.Category{}, fmt.Errorf("reload %s: %w", target, ErrNotFound)
	}
	return cat, nil
}

// IsSourceError reports whether err came from the upstream source.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}
