// Package overhead keeps the Tech Bar overhead display current. Each
// Display polls today's appointments for one Tech Bar on a fixed interval
// and holds the latest snapshot in memory for the HTTP layer to serve.
package overhead

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"techbar/internal/metrics"
	"techbar/internal/models"
	"techbar/internal/poller"
)

// DefaultInterval is how often a display refreshes.
const DefaultInterval = 30 * time.Second

// dateLayout matches the appointment form's Event Date field.
const dateLayout = "2006-01-02"

// AppointmentSource searches submissions of a form.
type AppointmentSource interface {
	SearchSubmissions(ctx context.Context, kapp, form, query string) ([]models.Submission, error)
}

// Config selects where appointments live and how often to poll.
type Config struct {
	Kapp     string
	Form     string
	Interval time.Duration
	// Now is used to pick "today"; defaults to time.Now.
	Now func() time.Time
}

// Snapshot is the state shown on the display.
type Snapshot struct {
	TechBarID    string               `json:"techbar_id"`
	Date         string               `json:"date"`
	Appointments []models.Appointment `json:"appointments"`
	RefreshedAt  time.Time            `json:"refreshed_at"`
	Err          string               `json:"error,omitempty"`
}

// Display polls appointments for a single Tech Bar.
type Display struct {
	techBarID string
	src       AppointmentSource
	cfg       Config
	metrics   *metrics.Metrics

	mu   sync.RWMutex
	snap Snapshot
}

// NewDisplay creates a display; call Run to start polling.
func NewDisplay(techBarID string, src AppointmentSource, cfg Config, m *metrics.Metrics) *Display {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Display{
		techBarID: techBarID,
		src:       src,
		cfg:       cfg,
		metrics:   m,
		snap:      Snapshot{TechBarID: techBarID, Appointments: []models.Appointment{}},
	}
}

// TechBarID returns the Tech Bar this display serves.
func (d *Display) TechBarID() string {
	return d.techBarID
}

// Run refreshes immediately and then on every interval until ctx is
// cancelled.
func (d *Display) Run(ctx context.Context) {
	zap.S().Infow("overhead display started", "techbar", d.techBarID, "interval", d.cfg.Interval)
	poller.Every(ctx, d.cfg.Interval, func(ctx context.Context) {
		if err := d.Refresh(ctx); err != nil && ctx.Err() == nil {
			zap.S().Warnw("overhead refresh failed", "techbar", d.techBarID, "error", err)
		}
	})
	zap.S().Infow("overhead display stopped", "techbar", d.techBarID)
}

// Refresh fetches today's appointments once. On failure the previous
// appointments are kept and the error is recorded on the snapshot.
func (d *Display) Refresh(ctx context.Context) error {
	now := d.cfg.Now()
	date := now.Format(dateLayout)

	subs, err := d.src.SearchSubmissions(ctx, d.cfg.Kapp, d.cfg.Form, query(d.techBarID, date))
	d.metrics.ObserveOverhead(d.techBarID, err == nil)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.RefreshedAt = now
	if err != nil {
		d.snap.Err = err.Error()
		return fmt.Errorf("refresh techbar %s: %w", d.techBarID, err)
	}

	d.snap.Date = date
	d.snap.Appointments = filter(subs, d.techBarID, date)
	d.snap.Err = ""
	return nil
}

// Snapshot returns a copy of the latest state.
func (d *Display) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.snap
	s.Appointments = make([]models.Appointment, 0, len(d.snap.Appointments))
	s.Appointments = append(s.Appointments, d.snap.Appointments...)
	return s
}

func query(techBarID, date string) string {
	return fmt.Sprintf(`values[%s] = %q AND values[%s] = %q`,
		models.FieldTechBarID, techBarID, models.FieldEventDate, date)
}

// filter keeps active appointments for the Tech Bar on the date, ordered
// by event time.
func filter(subs []models.Submission, techBarID, date string) []models.Appointment {
	out := make([]models.Appointment, 0, len(subs))
	for _, s := range subs {
		a := models.AppointmentFromSubmission(s)
		if a.TechBarID != techBarID || a.EventDate != date || !a.IsActive() {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EventTime < out[j].EventTime
	})
	return out
}

// Board runs one display per Tech Bar.
type Board struct {
	displays map[string]*Display
	ids      []string
}

// NewBoard creates a display for each Tech Bar id. Duplicate ids are
// ignored.
func NewBoard(ids []string, src AppointmentSource, cfg Config, m *metrics.Metrics) *Board {
	b := &Board{displays: make(map[string]*Display, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := b.displays[id]; ok {
			continue
		}
		b.displays[id] = NewDisplay(id, src, cfg, m)
		b.ids = append(b.ids, id)
	}
	return b
}

// Display returns the display of a Tech Bar.
func (b *Board) Display(id string) (*Display, bool) {
	d, ok := b.displays[id]
	return d, ok
}

// IDs returns the Tech Bar ids in configuration order.
func (b *Board) IDs() []string {
	return append([]string(nil), b.ids...)
}

// Run starts every display and blocks until ctx is cancelled and all
// displays have stopped.
func (b *Board) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range b.ids {
		d := b.displays[id]
		g.Go(func() error {
			d.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}
