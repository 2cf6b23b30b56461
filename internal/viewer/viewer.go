// Package viewer holds the render model and browsing state for the tiered
// publication viewer. A Controller owns one session's visible state: the
// current search term, page, and the last committed result set. It guarantees
// that only the latest-initiated query can update visible state, so a slow
// response never overwrites a newer one.
package viewer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
)

// State enumerates what the viewer should render.
type State string

const (
	StateLoading   State = "loading"
	StateError     State = "error"
	StateEmpty     State = "empty"
	StatePopulated State = "populated"
)

// maxPageButtons bounds the pagination window the viewer renders.
const maxPageButtons = 5

// FileAction points at a stored publication document.
type FileAction struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// Card is the fully normalized display form of one publication. Every field
// is a ready-to-render string; no raw reference objects survive past here.
type Card struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	CoAuthors   []string    `json:"co_authors,omitempty"`
	Journal     string      `json:"journal"`
	JournalType string      `json:"journal_type,omitempty"`
	Identifier  string      `json:"identifier"`
	Published   string      `json:"published"`
	Department  string      `json:"department"`
	Abstract    string      `json:"abstract,omitempty"`
	Keywords    []string    `json:"keywords,omitempty"`
	View        *FileAction `json:"view,omitempty"`
	Download    *FileAction `json:"download,omitempty"`
}

// BuildCard normalizes a publication record into its display form. View and
// download actions are omitted when the record carries no stored file.
func BuildCard(record models.PublicationRecord) Card {
	card := Card{
		ID:          record.ID.Or(""),
		Title:       record.DisplayTitle(),
		Author:      record.DisplayAuthor(),
		CoAuthors:   record.CoAuthors.Strings(),
		Journal:     record.JournalName.Or(models.FallbackValue),
		JournalType: record.JournalType.Or(""),
		Identifier:  record.Identifier(),
		Published:   record.DisplayPublished(),
		Department:  record.DisplayDepartment(),
		Abstract:    record.Abstract.Or(""),
		Keywords:    record.Keywords.Strings(),
	}

	if fileURL, ok := record.StoredFileURL(); ok {
		card.View = &FileAction{URL: fileURL}
		card.Download = &FileAction{URL: fileURL, Filename: card.Title + ".pdf"}
	}

	return card
}

// Snapshot is the renderable viewer state at one point in time.
type Snapshot struct {
	State       State  `json:"state"`
	SearchTerm  string `json:"search_term"`
	Page        int    `json:"page"`
	PageSize    int    `json:"page_size"`
	TotalPages  int    `json:"total_pages"`
	TotalCount  int    `json:"total_count"`
	Cards       []Card `json:"publications"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
	PageNumbers []int  `json:"page_numbers,omitempty"`
	HasPrev     bool   `json:"has_prev"`
	HasNext     bool   `json:"has_next"`
}

// QueryService is the publication query dependency.
type QueryService interface {
	Query(ctx context.Context, grant models.AccessGrant, searchTerm string, page, pageSize int) (*models.PublicationPage, error)
}

// Controller drives one session's viewer. All exported methods are safe for
// concurrent use; overlapping queries resolve in favour of the latest one via
// a generation token compared at commit time.
type Controller struct {
	svc      QueryService
	grant    models.AccessGrant
	logger   *zap.Logger
	pageSize int
	debounce time.Duration

	mu          sync.Mutex
	generation  uint64
	cancel      context.CancelFunc
	searchTimer *time.Timer
	lastSearch  string
	lastPage    int
	snap        Snapshot
}

// NewController creates a viewer for the grant with initial state: empty
// search, page 1, nothing loaded yet.
func NewController(svc QueryService, grant models.AccessGrant, cfg config.ViewerConfig, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	debounce := cfg.SearchDebounce
	if debounce <= 0 {
		debounce = 400 * time.Millisecond
	}
	return &Controller{
		svc:      svc,
		grant:    grant,
		logger:   logger,
		pageSize: pageSize,
		debounce: debounce,
		lastPage: 1,
		snap: Snapshot{
			State:    StateLoading,
			Page:     1,
			PageSize: pageSize,
		},
	}
}

// Grant returns the access grant this viewer browses under.
func (c *Controller) Grant() models.AccessGrant {
	return c.grant
}

// Snapshot returns the current renderable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Refresh runs a query for the given search term and page and commits the
// result if no newer query started in the meantime. Any in-flight query is
// cancelled first. The returned snapshot is always the freshest committed
// state, which on a lost race belongs to the newer query.
func (c *Controller) Refresh(ctx context.Context, searchTerm string, page int) Snapshot {
	if page < 1 {
		page = 1
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	queryCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.lastSearch = searchTerm
	c.lastPage = page
	c.snap.State = StateLoading
	c.snap.SearchTerm = searchTerm
	c.snap.Page = page
	c.mu.Unlock()

	result, err := c.svc.Query(queryCtx, c.grant, searchTerm, page, c.pageSize)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A newer query started while this one was in flight.
		return c.snap
	}
	c.commit(searchTerm, page, result, err)
	return c.snap
}

// Retry re-runs the last query, for the error banner's retry action.
func (c *Controller) Retry(ctx context.Context) Snapshot {
	c.mu.Lock()
	searchTerm := c.lastSearch
	page := c.lastPage
	c.mu.Unlock()
	return c.Refresh(ctx, searchTerm, page)
}

// SetSearchInput registers a keystroke-level search change. The refresh fires
// after the debounce interval, resetting to page 1; rapid successive calls
// only run the final term.
func (c *Controller) SetSearchInput(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.searchTimer = time.AfterFunc(c.debounce, func() {
		c.Refresh(context.Background(), term, 1)
	})
}

// Reset cancels in-flight work and returns the viewer to its initial state.
// Called on logout; the session owner discards the controller afterwards.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.searchTimer != nil {
		c.searchTimer.Stop()
		c.searchTimer = nil
	}
	c.lastSearch = ""
	c.lastPage = 1
	c.snap = Snapshot{
		State:    StateLoading,
		Page:     1,
		PageSize: c.pageSize,
	}
}

// commit applies a query outcome to the snapshot. Callers hold c.mu.
func (c *Controller) commit(searchTerm string, page int, result *models.PublicationPage, err error) {
	snap := Snapshot{
		SearchTerm: searchTerm,
		Page:       page,
		PageSize:   c.pageSize,
	}

	if err != nil {
		appErr := appErrors.FromError(err)
		snap.State = StateError
		snap.Error = appErr.Message
		snap.Cards = []Card{}
		c.logger.Warn("viewer query failed", zap.String("search", searchTerm), zap.Int("page", page), zap.Error(err))
		c.snap = snap
		return
	}

	snap.TotalPages = result.TotalPages
	snap.TotalCount = result.TotalPublications

	cards := make([]Card, 0, len(result.Publications))
	for _, record := range result.Publications {
		cards = append(cards, BuildCard(record))
	}
	snap.Cards = cards

	if len(cards) == 0 {
		snap.State = StateEmpty
		if searchTerm != "" {
			snap.Message = "No publications found matching your search."
		} else {
			snap.Message = "No publications available."
		}
	} else {
		snap.State = StatePopulated
	}

	if snap.TotalPages > 1 {
		snap.PageNumbers = PageWindow(page, snap.TotalPages)
		snap.HasPrev = page > 1
		snap.HasNext = page < snap.TotalPages
	}

	c.snap = snap
}

// PageWindow returns the page numbers to render: at most five, centered on
// the current page and clamped to the valid range.
func PageWindow(current, total int) []int {
	if total < 1 {
		return nil
	}
	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	start := current - maxPageButtons/2
	if start < 1 {
		start = 1
	}
	end := start + maxPageButtons - 1
	if end > total {
		end = total
		start = end - maxPageButtons + 1
		if start < 1 {
			start = 1
		}
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}
