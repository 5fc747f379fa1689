package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen/quotebook/internal/adapters/clients"
	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

const (
	// DefaultMirrorPath is the list/create collection on the mirror.
	DefaultMirrorPath = "/posts"

	// DefaultMirrorMaxItems bounds how many remote items are read per fetch.
	DefaultMirrorMaxItems = 10

	// DefaultMirrorCategory tags every quote read from the mirror.
	DefaultMirrorCategory = "API"

	// DefaultMirrorUserID is the author id attached to pushed items.
	DefaultMirrorUserID = 1

	// categoryBodyPrefix folds the quote category into the item body.
	categoryBodyPrefix = "Category: "
)

// MirrorClientConfig configures a MirrorClient.
type MirrorClientConfig struct {
	// Client is the HTTP client. Its BaseURL points at the mirror host.
	Client *clients.Client

	// ServiceName names the mirror in errors and health output.
	// Defaults to the client's service name.
	ServiceName string

	// Path is the collection path. Defaults to DefaultMirrorPath.
	Path string

	// MaxItems bounds the fetched list. Defaults to DefaultMirrorMaxItems.
	MaxItems int

	// Category is the label given to every fetched quote.
	Category string

	// UserID is sent with every pushed item.
	UserID int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// MirrorClient implements ports.QuoteMirror against a generic list/create
// REST collection whose items carry a title and a free-form body.
type MirrorClient struct {
	BaseAdapter

	path     string
	maxItems int
	category string
	userID   int
	logger   *slog.Logger
}

// NewMirrorClient creates a mirror adapter.
// Panics if Client is nil.
func NewMirrorClient(cfg MirrorClientConfig) *MirrorClient {
	if cfg.Client == nil {
		panic("MirrorClient: Client is required")
	}

	name := cfg.ServiceName
	if name == "" {
		name = cfg.Client.ServiceName()
	}

	path := cfg.Path
	if path == "" {
		path = DefaultMirrorPath
	}

	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMirrorMaxItems
	}

	category := strings.TrimSpace(cfg.Category)
	if category == "" {
		category = DefaultMirrorCategory
	}

	userID := cfg.UserID
	if userID <= 0 {
		userID = DefaultMirrorUserID
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MirrorClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, name),
		path:        path,
		maxItems:    maxItems,
		category:    category,
		userID:      userID,
		logger:      logger.With(slog.String("component", "acl.MirrorClient")),
	}
}

// mirrorItem is the mirror's item representation. Only title is meaningful
// to the quotebook; the rest is accepted and ignored.
type mirrorItem struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// mirrorCreateRequest is the body sent when pushing a quote.
type mirrorCreateRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// List fetches the first MaxItems items and translates them to quotes.
// Items with a blank title are skipped.
// Implements ports.QuoteMirror.
func (m *MirrorClient) List(ctx context.Context) ([]domain.Quote, error) {
	m.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", m.path))

	body, err := m.Get(ctx, m.path, "list quotes")
	if err != nil {
		return nil, err
	}

	items, err := DecodeResponseForService[[]mirrorItem](body, m.ServiceName())
	if err != nil {
		return nil, err
	}

	quotes, err := m.translateItems(*items)
	if err != nil {
		return nil, err
	}

	m.logger.DebugContext(ctx, "fetched remote quotes",
		slog.Int("received", len(*items)),
		slog.Int("kept", len(quotes)),
	)

	return quotes, nil
}

// translateItems converts mirror items to domain quotes. Only the first
// maxItems items are considered and those without a title are dropped.
func (m *MirrorClient) translateItems(items []mirrorItem) ([]domain.Quote, error) {
	if len(items) > m.maxItems {
		items = items[:m.maxItems]
	}

	titled := make([]mirrorItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) != "" {
			titled = append(titled, item)
		}
	}

	translated, err := TranslateSlice(titled, m.translateItem)
	if err != nil {
		return nil, domain.NewUnavailableError(m.ServiceName(), err.Error())
	}

	quotes := make([]domain.Quote, len(translated))
	for i, q := range translated {
		quotes[i] = *q
	}

	return quotes, nil
}

func (m *MirrorClient) translateItem(item *mirrorItem) (*domain.Quote, error) {
	q, err := domain.NewQuote(item.Title, m.category)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// Push creates one item on the mirror for the quote. The created
// representation is read and discarded; its id is not tracked.
// Implements ports.QuoteMirror.
func (m *MirrorClient) Push(ctx context.Context, q domain.Quote) error {
	payload, err := json.Marshal(mirrorCreateRequest{
		Title:  q.Text,
		Body:   categoryBodyPrefix + q.Category,
		UserID: m.userID,
	})
	if err != nil {
		return fmt.Errorf("encoding quote: %w", err)
	}

	m.logger.Log(ctx, logging.LevelTrace, "pushing quote",
		slog.String("path", m.path),
		slog.String("category", q.Category),
	)

	body, err := m.Post(ctx, m.path, bytes.NewReader(payload), "push quote")
	if err != nil {
		return err
	}

	created, err := DecodeResponseForService[mirrorItem](body, m.ServiceName())
	if err != nil {
		return err
	}

	m.logger.DebugContext(ctx, "pushed quote", slog.Int("remote_id", created.ID))

	return nil
}

// Name returns the health check name.
// Implements ports.HealthChecker.
func (m *MirrorClient) Name() string {
	return m.ServiceName()
}

// Check verifies the collection answers a list request.
// Implements ports.HealthChecker.
func (m *MirrorClient) Check(ctx context.Context) error {
	body, err := m.Get(ctx, m.path+"?_limit=1", "health check")
	if err != nil {
		return err
	}

	return body.Close()
}
