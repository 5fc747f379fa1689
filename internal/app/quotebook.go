// Package app contains application services that orchestrate use cases.
// This is the application layer - it coordinates domain logic and
// infrastructure through ports.
//
// Application Layer Responsibilities:
//   - Own the quote store and its persisted slots (Quotebook)
//   - Reconcile the store with the remote mirror (Reconciler, SyncScheduler)
//   - Surface transient user-visible messages (MessageBox)
//
// What does NOT belong here:
//   - HTTP specifics (that's adapters)
//   - Storage drivers (that's storage adapters)
//   - Merge and filter rules (that's the domain layer)
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

// User-visible message texts.
const (
	msgMissingFields   = "Please enter both quote text and category."
	msgQuoteAdded      = "Quote added successfully!"
	msgSaveFailed      = "Could not save quotes. Your changes were not applied."
	msgLoadFailed      = "Saved quotes could not be read. Starting with an empty list."
	msgImportInvalid   = "Invalid JSON file format. Expected an array of quotes with text and category."
	msgImportedFmt     = "Imported %d quotes successfully!"
	msgFilterSaveFail  = "Could not save the category filter."
	msgNoQuotesMatched = "No quotes found for this category."
)

// QuotebookConfig holds the dependencies of a Quotebook.
type QuotebookConfig struct {
	// Store holds the persistent slots (quote list and filter).
	Store ports.KeyValueStore

	// Session holds the session-scoped last viewed quote.
	Session ports.KeyValueStore

	// Notifier receives user-visible messages. Optional.
	Notifier ports.Notifier

	// Logger is the component logger. Defaults to slog.Default().
	Logger *slog.Logger

	// SeedDefaults populates an empty store with domain.DefaultQuotes
	// when nothing has been persisted yet.
	SeedDefaults bool
}

// Quotebook owns the quote store, the category filter and the last viewed
// quote. Every mutation is written through to the persistent store before
// the in-memory state changes, so a failed write leaves the state as it was.
type Quotebook struct {
	mu         sync.RWMutex
	quotes     []domain.Quote
	filter     string
	lastViewed *domain.Quote

	store    ports.KeyValueStore
	session  ports.KeyValueStore
	notifier ports.Notifier
	logger   *slog.Logger
	seed     bool

	// pick returns a uniform index in [0, n).
	pick func(n int) int
}

// NewQuotebook creates an empty quotebook. Call Load to restore persisted state.
func NewQuotebook(cfg QuotebookConfig) *Quotebook {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Quotebook{
		quotes:   []domain.Quote{},
		filter:   domain.AllCategories,
		store:    cfg.Store,
		session:  cfg.Session,
		notifier: cfg.Notifier,
		logger:   logger.With(slog.String("component", "app.Quotebook")),
		seed:     cfg.SeedDefaults,
		pick:     rand.IntN,
	}
}

// Load restores the quote list, the category filter and the last viewed quote.
// Unreadable or corrupt saved quotes reset the store to empty and notify the
// user; load never fails the caller.
func (b *Quotebook) Load(ctx context.Context) {
	logger := logging.FromContextOr(ctx, b.logger)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.quotes = b.loadQuotes(ctx, logger)
	b.filter = b.loadFilter(ctx, logger)
	b.lastViewed = b.loadLastViewed(ctx, logger)

	logger.InfoContext(ctx, "quotebook loaded",
		slog.Int("quotes", len(b.quotes)),
		slog.String("filter", b.filter),
	)
}

func (b *Quotebook) loadQuotes(ctx context.Context, logger *slog.Logger) []domain.Quote {
	raw, err := b.store.Get(ctx, ports.SlotQuotes)
	if domain.IsNotFound(err) {
		if !b.seed {
			return []domain.Quote{}
		}

		seeded := domain.DefaultQuotes()
		if err := b.persist(ctx, seeded); err != nil {
			logger.WarnContext(ctx, "failed to persist seed quotes", slog.Any("error", err))
		}

		return seeded
	}

	if err != nil {
		logger.ErrorContext(ctx, "failed to read saved quotes", slog.Any("error", err))
		b.notify(ctx, ports.MessageError, msgLoadFailed)

		return []domain.Quote{}
	}

	var quotes []domain.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		logger.ErrorContext(ctx, "failed to decode saved quotes",
			slog.Any("error", domain.NewStorageError("decode", ports.SlotQuotes, err)),
		)
		b.notify(ctx, ports.MessageError, msgLoadFailed)

		return []domain.Quote{}
	}

	if quotes == nil {
		quotes = []domain.Quote{}
	}

	return quotes
}

func (b *Quotebook) loadFilter(ctx context.Context, logger *slog.Logger) string {
	raw, err := b.store.Get(ctx, ports.SlotFilter)
	if err != nil {
		if !domain.IsNotFound(err) {
			logger.WarnContext(ctx, "failed to read category filter", slog.Any("error", err))
		}

		return domain.AllCategories
	}

	if filter := strings.TrimSpace(string(raw)); filter != "" {
		return filter
	}

	return domain.AllCategories
}

func (b *Quotebook) loadLastViewed(ctx context.Context, logger *slog.Logger) *domain.Quote {
	if b.session == nil {
		return nil
	}

	raw, err := b.session.Get(ctx, ports.SlotLastViewed)
	if err != nil {
		if !domain.IsNotFound(err) {
			logger.WarnContext(ctx, "failed to read last viewed quote", slog.Any("error", err))
		}

		return nil
	}

	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil || q.Validate() != nil {
		return nil
	}

	return &q
}

// Add appends a quote after trimming both fields.
// Blank text or category never mutates the store.
func (b *Quotebook) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		b.notify(ctx, ports.MessageError, msgMissingFields)
		return domain.Quote{}, err
	}

	b.mu.Lock()
	next := append(slices.Clone(b.quotes), q)
	if err := b.persist(ctx, next); err != nil {
		b.mu.Unlock()
		b.notify(ctx, ports.MessageError, msgSaveFailed)

		return domain.Quote{}, err
	}
	b.quotes = next
	b.mu.Unlock()

	logging.FromContextOr(ctx, b.logger).InfoContext(ctx, "quote added",
		slog.String("category", q.Category),
	)
	b.notify(ctx, ports.MessageSuccess, msgQuoteAdded)

	return q, nil
}

// importRecord captures presence and type of each element's fields.
type importRecord struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

// Import appends every quote of a JSON array document. The whole document is
// rejected if it is not an array or if any element lacks a string text or
// category. Elements go through NewQuote like Add, so surrounding whitespace
// is trimmed and an element blank after trimming rejects the document too.
// Imported quotes are not de-duplicated.
func (b *Quotebook) Import(ctx context.Context, r io.Reader) (int, error) {
	imported, err := decodeImport(r)
	if err != nil {
		logging.FromContextOr(ctx, b.logger).WarnContext(ctx, "import rejected", slog.Any("error", err))
		b.notify(ctx, ports.MessageError, msgImportInvalid)

		return 0, err
	}

	b.mu.Lock()
	next := append(slices.Clone(b.quotes), imported...)
	if err := b.persist(ctx, next); err != nil {
		b.mu.Unlock()
		b.notify(ctx, ports.MessageError, msgSaveFailed)

		return 0, err
	}
	b.quotes = next
	b.mu.Unlock()

	logging.FromContextOr(ctx, b.logger).InfoContext(ctx, "quotes imported",
		slog.Int("count", len(imported)),
	)
	b.notify(ctx, ports.MessageSuccess, fmt.Sprintf(msgImportedFmt, len(imported)))

	return len(imported), nil
}

func decodeImport(r io.Reader) ([]domain.Quote, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.NewValidationError("document", "could not be read: "+err.Error())
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, domain.NewValidationError("document", "must be a JSON array")
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.NewValidationError("document", "is not valid JSON")
	}

	quotes := make([]domain.Quote, 0, len(records))
	for i, raw := range records {
		var rec importRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("[%d]", i), "must be an object with string text and category")
		}

		if rec.Text == nil || rec.Category == nil {
			return nil, domain.NewValidationError(fmt.Sprintf("[%d]", i), "text and category are required")
		}

		q, err := domain.NewQuote(*rec.Text, *rec.Category)
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("[%d]", i), "text and category must not be blank")
		}

		quotes = append(quotes, q)
	}

	return quotes, nil
}

// Export writes the full store as a pretty-printed JSON array.
func (b *Quotebook) Export(_ context.Context, w io.Writer) error {
	b.mu.RLock()
	data, err := json.MarshalIndent(b.quotes, "", "  ")
	b.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	return nil
}

// Quotes returns a copy of the store.
func (b *Quotebook) Quotes() []domain.Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.quotes)
}

// Len returns the number of quotes in the store.
func (b *Quotebook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.quotes)
}

// Categories returns the selectable filter values, "all" first.
func (b *Quotebook) Categories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return domain.CategoryOptions(b.quotes)
}

// Filter returns the selected category filter.
func (b *Quotebook) Filter() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.filter
}

// Filtered returns the quotes selected by the current filter.
func (b *Quotebook) Filtered() []domain.Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return domain.FilterByCategory(b.quotes, b.filter)
}

// SetFilter selects and persists a category filter. A blank value selects "all".
func (b *Quotebook) SetFilter(ctx context.Context, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.AllCategories
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.store.Set(ctx, ports.SlotFilter, []byte(category)); err != nil {
		b.notify(ctx, ports.MessageError, msgFilterSaveFail)
		return err
	}

	b.filter = category

	return nil
}

// ShowRandom picks a quote uniformly at random from the filtered subset and
// remembers it for the session. An empty subset clears the remembered quote
// and returns a not found error.
func (b *Quotebook) ShowRandom(ctx context.Context) (domain.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.repick(ctx)
	if !ok {
		b.notify(ctx, ports.MessageInfo, msgNoQuotesMatched)
		return domain.Quote{}, domain.NewNotFoundError("quote", "")
	}

	return q, nil
}

// repick replaces the displayed quote with a random one from the filtered
// subset, or clears it when the subset is empty. Callers hold the write lock.
func (b *Quotebook) repick(ctx context.Context) (domain.Quote, bool) {
	logger := logging.FromContextOr(ctx, b.logger)

	candidates := domain.FilterByCategory(b.quotes, b.filter)
	if len(candidates) == 0 {
		b.lastViewed = nil
		if b.session != nil {
			if err := b.session.Delete(ctx, ports.SlotLastViewed); err != nil {
				logger.WarnContext(ctx, "failed to clear last viewed quote", slog.Any("error", err))
			}
		}

		return domain.Quote{}, false
	}

	q := candidates[b.pick(len(candidates))]
	b.lastViewed = &q

	if b.session != nil {
		raw, err := json.Marshal(q)
		if err == nil {
			err = b.session.Set(ctx, ports.SlotLastViewed, raw)
		}

		if err != nil {
			logger.WarnContext(ctx, "failed to remember last viewed quote", slog.Any("error", err))
		}
	}

	return q, true
}

// LastViewed returns the quote most recently shown in this session.
func (b *Quotebook) LastViewed() (domain.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.lastViewed == nil {
		return domain.Quote{}, false
	}

	return *b.lastViewed, true
}

// ApplyRemote merges remote into the current store. The merge runs under the
// write lock against the live list, so quotes added while a reconciliation
// was waiting on the network are kept. The store is replaced and persisted
// only when the merged list differs, and then the displayed quote is picked
// again from the new list.
func (b *Quotebook) ApplyRemote(ctx context.Context, remote []domain.Quote) ([]domain.Quote, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	merged := domain.Merge(remote, b.quotes)
	if domain.Equal(merged, b.quotes) {
		return merged, false, nil
	}

	if err := b.persist(ctx, merged); err != nil {
		return nil, false, err
	}

	b.quotes = merged
	b.repick(ctx)

	return slices.Clone(merged), true, nil
}

// persist writes quotes to the quote slot. Callers hold the write lock.
func (b *Quotebook) persist(ctx context.Context, quotes []domain.Quote) error {
	if quotes == nil {
		quotes = []domain.Quote{}
	}

	raw, err := json.Marshal(quotes)
	if err != nil {
		return domain.NewStorageError("encode", ports.SlotQuotes, err)
	}

	if err := b.store.Set(ctx, ports.SlotQuotes, raw); err != nil {
		logging.FromContextOr(ctx, b.logger).ErrorContext(ctx, "failed to persist quotes",
			slog.Any("error", err),
		)

		return err
	}

	return nil
}

func (b *Quotebook) notify(ctx context.Context, kind ports.MessageKind, text string) {
	if b.notifier != nil {
		b.notifier.Notify(ctx, kind, text)
	}
}
