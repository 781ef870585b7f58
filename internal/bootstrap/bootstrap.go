// Package bootstrap builds the storage, broadcast and widget graph from
// configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jfyne/answers/internal/broadcast"
	"github.com/jfyne/answers/internal/config"
	"github.com/jfyne/answers/internal/kv"
	"github.com/jfyne/answers/live"
	"github.com/jfyne/answers/postfetch"
	"github.com/jfyne/answers/widgets/calories"
	"github.com/jfyne/answers/widgets/coltable"
	"github.com/jfyne/answers/widgets/hashlang"
	"github.com/jfyne/answers/widgets/langselect"
	"github.com/jfyne/answers/widgets/postdetail"
	"github.com/jfyne/answers/widgets/router"
)

// Mount a widget served below Path.
type Mount struct {
	Path  string
	Title string
	// Subtree also routes every path below Path to the widget.
	Subtree bool
	Engine  *live.Engine
}

func redisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// BuildStore opens the kv backend named by cfg.Storage.
func BuildStore(ctx context.Context, cfg config.Config) (kv.Store, func(), error) {
	switch cfg.Storage {
	case "", "memory":
		return kv.NewMemoryStore(ctx, 0), func() {}, nil
	case "sqlite":
		s, err := kv.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "redis":
		client := redisClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return kv.NewRedisStore(client, "answers:kv:", 0), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

// BuildPubSub returns the broadcast bus named by cfg.PubSub.
func BuildPubSub(ctx context.Context, cfg config.Config, logger *zap.Logger) (*live.PubSub, func(), error) {
	switch cfg.PubSub {
	case "", "local":
		return live.NewPubSub(ctx, live.NewLocalTransport(), logger), func() {}, nil
	case "redis":
		client := redisClient(cfg)
		t := broadcast.NewRedisTransport(client, "answers:live:", logger)
		return live.NewPubSub(ctx, t, logger), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown pubsub %q", cfg.PubSub)
}

func languages[T any](in []config.Language, mk func(id, name string) T) []T {
	out := make([]T, 0, len(in))
	for _, l := range in {
		out = append(out, mk(l.ID, l.Name))
	}
	return out
}

// Handlers builds the live handler of every widget, keyed by mount path.
func Handlers(cfg config.Config, w config.Widgets, store kv.Store, logger *zap.Logger) (map[string]*live.Handler, error) {
	lang, err := langselect.New(langselect.Config{
		Languages: languages(w.LangSelect.Languages, func(id, name string) langselect.Language {
			return langselect.Language{ID: id, Name: name}
		}),
		StorageKey: w.LangSelect.StorageKey,
		Store:      store,
		Logger:     logger.Named("langselect"),
	})
	if err != nil {
		return nil, err
	}

	apiBase := cfg.PostAPIBase
	if w.PostDetail.APIBase != "" {
		apiBase = w.PostDetail.APIBase
	}
	minHold := cfg.PostMinHold
	if w.PostDetail.MinHoldMS > 0 {
		minHold = time.Duration(w.PostDetail.MinHoldMS) * time.Millisecond
	}

	return map[string]*live.Handler{
		"/langselect": lang,
		"/router":     router.New(router.Config{Prefix: "/router"}),
		"/calories":   calories.New(calories.Config{Buttons: w.Calories.Buttons}),
		"/coltable":   coltable.New(),
		"/postdetail": postdetail.New(postdetail.Config{
			Fetcher: postfetch.NewClient(apiBase, nil, cfg.RequestTimeout),
			MinHold: minHold,
			Logger:  logger.Named("postdetail"),
		}),
		"/hashlang": hashlang.New(hashlang.Config{
			Languages: languages(w.HashLang.Languages, func(id, name string) hashlang.Language {
				return hashlang.Language{ID: id, Name: name}
			}),
			Param: w.HashLang.Param,
		}),
	}, nil
}

var titles = []struct {
	path, title string
}{
	{"/langselect", "Language selector"},
	{"/router", "Router"},
	{"/calories", "Calories"},
	{"/coltable", "Column filter"},
	{"/postdetail", "Post detail"},
	{"/hashlang", "Hash language"},
}

// Mounts wraps every handler in an engine subscribed to the bus under its
// path.
func Mounts(ctx context.Context, cfg config.Config, handlers map[string]*live.Handler, ps *live.PubSub, logger *zap.Logger) []Mount {
	sessions := live.NewCookieStore(cfg.SessionName, []byte(cfg.SessionSecret))
	mounts := make([]Mount, 0, len(titles))
	for _, t := range titles {
		h, ok := handlers[t.path]
		if !ok {
			continue
		}
		e := live.NewHttpHandler(ctx, sessions, h, live.WithLogger(logger.With(zap.String("widget", t.path))))
		ps.Subscribe(t.path, e)
		mounts = append(mounts, Mount{
			Path:    t.path,
			Title:   t.title,
			Subtree: t.path == "/router",
			Engine:  e,
		})
	}
	return mounts
}
