// Command syncwatch follows the realtime stream as one subject, keeping a
// reconciled cache of catalog and order state and logging every change.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/reconciler"
	"github.com/orderahead/sync-engine/pkg/logger"
	"github.com/orderahead/sync-engine/pkg/shutdown"
)

type config struct {
	URL      string        `env:"SYNC_URL, default=http://localhost:8080"`
	Token    string        `env:"SYNC_TOKEN, required"`
	LogLevel string        `env:"LOG_LEVEL, default=info"`
	Backoff  time.Duration `env:"SYNC_RECONNECT_BACKOFF, default=2s"`
}

func main() {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		panic(err)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "syncwatch"})

	store := reconciler.NewStore()
	fetcher := &reconciler.Fetcher{
		BaseURL: cfg.URL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}

	// every reconnect starts from a fresh snapshot; missed updates are not replayed
	for {
		err := follow(ctx, cfg, fetcher, store, log)
		if ctx.Err() != nil {
			log.Info().Msg("syncwatch stopped")
			return
		}
		log.Warn().Err(err).Dur("backoff", cfg.Backoff).Msg("stream lost, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Backoff):
		}
	}
}

func follow(ctx context.Context, cfg config, fetcher *reconciler.Fetcher, store *reconciler.Store, log zerolog.Logger) error {
	snap, err := fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	store.Reset(snap)
	log.Info().
		Int("items", len(snap.Items)).
		Int("categories", len(snap.Categories)).
		Int("orders", len(snap.Orders)).
		Msg("snapshot loaded")

	wsURL, err := streamURL(cfg.URL)
	if err != nil {
		return err
	}
	header := http.Header{"Authorization": {"Bearer " + cfg.Token}}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return errors.Join(err, errors.New(resp.Status))
		}
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	log.Info().Str("url", wsURL).Msg("stream connected")
	for {
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}
		changed, err := store.Apply(env)
		if err != nil {
			log.Warn().Err(err).Str("event", string(env.Event)).Msg("frame rejected")
			continue
		}
		log.Info().
			Str("event", string(env.Event)).
			Bool("changed", changed).
			Int("items", len(store.Items())).
			Int("orders", len(store.Orders())).
			Msg("frame applied")
	}
}

// streamURL maps the API base URL onto the websocket endpoint.
func streamURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/v1/ws"
	return u.String(), nil
}
