package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clio-sync/internal/adapter/clio"
	msql "clio-sync/internal/adapter/mysql"
	"clio-sync/internal/config"
	"clio-sync/internal/domain"
	"clio-sync/internal/migrate"
	"clio-sync/internal/ports"
	"clio-sync/internal/usecase"
)

// App wires adapters and use cases.
type App struct {
	log     *slog.Logger
	sync    *usecase.SyncUseCase
	matters *usecase.MattersUseCase

	// authorizer is the concrete client when running against the real API;
	// nil in sandbox mode, where no login flow exists.
	authorizer *clio.Client

	// loginMu guards loginState: BeginLogin runs on the main goroutine while
	// the callback handler reads and clears the state on a server goroutine.
	loginMu    sync.Mutex
	loginState string
	loginDone  chan struct{}
}

func New(log *slog.Logger, cfg config.Config) (*App, error) {
	var (
		client     ports.PracticeClient
		authorizer *clio.Client
	)
	if cfg.Clio.Sandbox {
		log.Warn("sandbox mode: serving placeholder responses, no API calls will be made")
		client = clio.NewSandbox(nil, log)
	} else {
		c := clio.NewClient(
			cfg.Clio.BaseURL,
			cfg.Clio.ClientID,
			cfg.Clio.ClientSecret,
			cfg.Clio.RedirectURL,
			cfg.Clio.AccessToken,
			log,
		)
		client = c
		authorizer = c
	}

	// Run migrations before opening the store for use
	if err := migrate.Apply(context.Background(), cfg.MySQL.DSN, log); err != nil {
		return nil, err
	}
	store, err := msql.NewStore(context.Background(), cfg.MySQL.DSN, log)
	if err != nil {
		return nil, err
	}

	return &App{
		log:        log,
		sync:       &usecase.SyncUseCase{Log: log, Client: client, Store: store},
		matters:    &usecase.MattersUseCase{Log: log, Client: client, Store: store},
		authorizer: authorizer,
		loginDone:  make(chan struct{}),
	}, nil
}

// RunOnce syncs sessions in [from, to).
func (a *App) RunOnce(ctx context.Context, from, to time.Time) error {
	return a.sync.Run(ctx, from, to)
}

// RefreshMatters updates the local matter cache from the remote system.
func (a *App) RefreshMatters(ctx context.Context) error {
	return a.matters.Refresh(ctx)
}

// Authenticate verifies the client credential.
func (a *App) Authenticate(ctx context.Context) error {
	return a.sync.Client.Authenticate(ctx)
}

// BeginLogin starts an authorization-code flow and returns the URL the user
// must visit. The flow completes when the provider redirects to
// /oauth/callback on the trigger server.
func (a *App) BeginLogin() (string, error) {
	if a.authorizer == nil {
		return "", domain.ErrNotSupported
	}
	state := uuid.NewString()
	a.loginMu.Lock()
	a.loginState = state
	a.loginMu.Unlock()
	return a.authorizer.AuthURL(state), nil
}

// consumeLoginState atomically checks the callback state against the pending
// one and clears it. The state is single use: it is consumed before the code
// exchange, so neither a replay nor a concurrent callback can pass twice.
func (a *App) consumeLoginState(state string) bool {
	a.loginMu.Lock()
	defer a.loginMu.Unlock()
	if a.loginState == "" || state != a.loginState {
		return false
	}
	a.loginState = ""
	return true
}

// LoginDone is closed once a login flow has completed successfully.
func (a *App) LoginDone() <-chan struct{} { return a.loginDone }
