package consumers

import (
	"context"
	"fmt"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"

	"waha-chatwoot/internal/cache"
	"waha-chatwoot/internal/chatwoot"
	"waha-chatwoot/internal/contacts"
	"waha-chatwoot/internal/locale"
	"waha-chatwoot/internal/metrics"
	"waha-chatwoot/internal/queue"
	"waha-chatwoot/internal/repo"
	"waha-chatwoot/internal/waha"
)

// Factory builds the per-job service bundle scoped to the app installation a
// job references. Shared clients (store, gateway, conversation store) live on
// the factory; everything configured per installation is constructed per job.
type Factory struct {
	Store         repo.Store
	Conversations *gocache.Cache
	WAHA          *waha.Client
	Meter         *metrics.Metrics
	Logger        *slog.Logger
	BaseURL       string
}

// Services is the bundle one job works with.
type Services struct {
	App      *repo.App
	Store    repo.Store
	Cache    *cache.ConversationCache
	Chatwoot *chatwoot.Client
	Resolver *chatwoot.Resolver
	WAHA     *waha.Client
	Session  *waha.SessionAPI
	Locale   *locale.Locale
	Logger   *slog.Logger
}

// ForJob resolves the enabled app behind the job and builds its services.
func (f *Factory) ForJob(ctx context.Context, job *queue.Job) (*Services, error) {
	app, err := f.Store.GetEnabledApp(ctx, job.App)
	if err != nil {
		return nil, fmt.Errorf("load app %s: %w", job.App, err)
	}

	logger := f.Logger.With("app", app.ID, "session", app.Session, "job_id", job.ID)
	conversations := cache.NewConversationCache(f.Conversations, app.Config.URL, app.Config.InboxID)
	client := chatwoot.NewClient(app.Config, logger, f.Meter)

	return &Services{
		App:      app,
		Store:    f.Store,
		Cache:    conversations,
		Chatwoot: client,
		Resolver: chatwoot.NewResolver(client, conversations, logger),
		WAHA:     f.WAHA,
		Session:  f.WAHA.Session(app.Session),
		Locale:   locale.New(app.Config.Locale),
		Logger:   logger,
	}, nil
}

// ChatConversation resolves the conversation for a WhatsApp chat id.
func (s *Services) ChatConversation(ctx context.Context, chatID string) (*chatwoot.Conversation, error) {
	return s.Resolver.ResolveConversation(ctx, contacts.Describe(s.Session, chatID))
}

// InboxConversation resolves the dedicated inbox-notifications conversation.
func (s *Services) InboxConversation(ctx context.Context) (*chatwoot.Conversation, error) {
	return s.Resolver.ResolveConversation(ctx, contacts.Inbox(s.App.Session))
}
