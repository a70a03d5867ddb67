package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/odyssey-erp/userboard/internal/records"
	"github.com/odyssey-erp/userboard/internal/shared"
)

const (
	// UnderDevelopment is the notice raised by the delete stub.
	UnderDevelopment = "Under Development"
	// ChangesSaved confirms a committed edit.
	ChangesSaved = "Changes saved"
)

// ErrInvalidPageSize is returned by SetPageSize for non-positive sizes.
var ErrInvalidPageSize = errors.New("widget: page size must be positive")

// Fetcher loads the full record set.
type Fetcher interface {
	List(ctx context.Context) (records.Set, error)
}

// Options tune a Controller.
type Options struct {
	PageSize int
	Logger   *slog.Logger
	Metrics  *Metrics
	Clock    func() time.Time
}

// Notice is an informational message for the user. It never implies a
// state change.
type Notice struct {
	Kind    string
	Message string
}

// ModalView is the render-side state of the edit modal.
type ModalView struct {
	Open     bool   `json:"open"`
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Snapshot is a consistent read of the widget for rendering.
type Snapshot struct {
	Ready      bool              `json:"ready"`
	Loaded     bool              `json:"loaded"`
	Rows       []records.Record  `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
	Modal      ModalView         `json:"modal"`
}

// Controller owns all state of one widget instance. Every operation runs
// under mu, so transitions for one instance never interleave.
type Controller struct {
	mu       sync.Mutex
	fetcher  Fetcher
	logger   *slog.Logger
	metrics  *Metrics
	clock    func() time.Time
	records  records.Set
	page     int
	pageSize int
	ready    bool
	editor   Editor
	load     *Load
	cancel   context.CancelFunc
	closed   bool
	lastSeen time.Time
}

// NewController builds an unmounted widget with an empty record set on page 1.
func NewController(fetcher Fetcher, opts Options) *Controller {
	if opts.PageSize <= 0 {
		opts.PageSize = shared.DefaultPerPage
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{
		fetcher:  fetcher,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		clock:    opts.Clock,
		records:  records.Set{},
		page:     1,
		pageSize: opts.PageSize,
		lastSeen: opts.Clock(),
	}
}

// Mount starts the single load attempt of this instance. Later calls return
// the same Load. ctx bounds the fetch; Close cancels it.
func (c *Controller) Mount(ctx context.Context) *Load {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.load != nil {
		return c.load
	}
	c.load = newLoad()
	if c.closed {
		c.load.resolve(ErrClosed)
		return c.load
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go func(load *Load) {
		set, err := c.fetcher.List(ctx)
		c.finishLoad(ctx, load, set, err)
	}(c.load)
	return c.load
}

func (c *Controller) finishLoad(ctx context.Context, load *Load, set records.Set, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || ctx.Err() != nil {
		c.logger.Debug("discard load after teardown", slog.Any("error", err))
		load.resolve(ErrClosed)
		return
	}
	if err != nil {
		c.logger.Error("load records", slog.Any("error", err))
		c.metrics.loadFailed()
		load.resolve(fmt.Errorf("widget: load: %w", err))
		return
	}
	if set == nil {
		set = records.Set{}
	}
	c.records = set
	c.ready = true
	c.metrics.loadSucceeded()
	load.resolve(nil)
}

// Load returns the mount future, or nil before Mount.
func (c *Controller) Load() *Load {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load
}

// Close tears the instance down, cancelling an in-flight load.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.editor.Discard()
	if c.cancel != nil {
		c.cancel()
	}
}

// SelectPage moves to page p without bounds checks and marks the table ready.
func (c *Controller) SelectPage(p int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = p
	c.ready = true
}

// SetPageSize changes the page size and returns to page 1.
func (c *Controller) SetPageSize(size int) error {
	if size <= 0 {
		return ErrInvalidPageSize
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageSize = size
	c.page = 1
	return nil
}

// OpenEdit opens the modal on record id.
func (c *Controller) OpenEdit(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records.Find(id)
	if !ok {
		return fmt.Errorf("widget: record %d: %w", id, shared.ErrNotFound)
	}
	c.editor.Open(rec)
	return nil
}

// Stage updates one staged field; false when the modal is closed.
func (c *Controller) Stage(f Field, value string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor.Set(f, value)
}

// StageAll replaces all staged fields; false when the modal is closed.
func (c *Controller) StageAll(e records.Edit) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editor.IsOpen() {
		return false
	}
	c.editor.Set(FieldName, e.Name)
	c.editor.Set(FieldEmail, e.Email)
	c.editor.Set(FieldUsername, e.Username)
	return true
}

// Save commits the staged edit into a new record set and closes the modal.
// It is a no-op returning false when nothing is selected.
func (c *Controller) Save() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, edit, ok := c.editor.Commit()
	if !ok {
		return false
	}
	c.records = c.records.ReplaceFields(id, edit)
	c.metrics.editSaved()
	return true
}

// Cancel closes the modal, dropping staged values.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor.Discard()
}

// Delete is a stub: it acknowledges the request and never touches records.
func (c *Controller) Delete(id int) Notice {
	c.metrics.deleteRequested()
	c.logger.Debug("delete requested", slog.Int("id", id))
	return Notice{Kind: shared.FlashNotice, Message: UnderDevelopment}
}

// Records returns the current record set. Callers must not modify it.
func (c *Controller) Records() records.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}

// Snapshot captures the render state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := shared.NewPagination(c.page, c.pageSize, len(c.records))
	loaded := false
	if c.load != nil {
		select {
		case <-c.load.done:
			loaded = true
		default:
		}
	}
	return Snapshot{
		Ready:      c.ready,
		Loaded:     loaded,
		Rows:       shared.Paginate(c.records, p),
		Pagination: p,
		Modal:      c.editor.View(),
	}
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastSeen = c.clock()
	c.mu.Unlock()
}

func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}
