package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/voss-io/tiercache/internal/config"
	"github.com/voss-io/tiercache/pkg/cache"
	"github.com/voss-io/tiercache/pkg/logging"
	"github.com/voss-io/tiercache/pkg/offline"
	"github.com/voss-io/tiercache/pkg/persist"
	"github.com/voss-io/tiercache/pkg/remote"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config/config.yaml)")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Format == "text",
		Output: os.Stderr,
	}).With().Str("component", "proxy").Logger()

	ctx := context.Background()

	var opts []cache.Option
	var redisClient *redis.Client

	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The engine tolerates an unreachable distributed tier; the
			// offline queue will catch up once it comes back.
			logger.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("Distributed tier unreachable at startup")
		} else {
			logger.Info().Str("address", cfg.Redis.Address).Msg("Connected to distributed tier")
		}
		opts = append(opts, cache.WithRemote(remote.NewRedisAdapter(redisClient, cfg.Redis.KeyPrefix)))

		if cfg.Offline.Enabled {
			replay := offline.DefaultReplayConfig()
			replay.Interval = cfg.ReplayInterval(replay.Interval)
			if cfg.Offline.MaxRetries > 0 {
				replay.MaxRetries = cfg.Offline.MaxRetries
			}
			opts = append(opts, cache.WithOfflineQueue(cfg.Offline.MaxSize, replay))
		}
	}

	var persistStore *persist.Store
	if cfg.Persist.Path != "" {
		var err error
		persistStore, err = persist.Open(cfg.Persist.Path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Persist.Path).Msg("Failed to open persistent tier")
		}
		defer persistStore.Close()
		opts = append(opts, cache.WithPersistence(persistStore))
	}

	storeCfg := cfg.StoreConfig()
	storeCfg.Logger = logger.With().Str("component", "cache").Logger()
	store := cache.New(storeCfg, opts...)
	defer store.Close()

	if persistStore != nil && cfg.Persist.Rehydrate {
		if err := store.Rehydrate(ctx); err != nil {
			logger.Warn().Err(err).Msg("Rehydration failed, starting cold")
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/cache/", cacheHandler(store))
	mux.HandleFunc("/invalidate", invalidateHandler(store))
	mux.HandleFunc("/stats", statsHandler(store))
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Starting tiercache proxy")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// cacheHandler serves GET/PUT/DELETE /cache/{key}. PUT bodies must be
// JSON; an optional ttl query parameter (Go duration syntax) overrides
// the strategy and default TTL.
func cacheHandler(store *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/cache/")
		if key == "" {
			http.Error(w, "missing cache key", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			payload, ok := store.GetRaw(r.Context(), key)
			if !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)

		case http.MethodPut, http.MethodPost:
			var value json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
				http.Error(w, fmt.Sprintf("invalid JSON body: %v", err), http.StatusBadRequest)
				return
			}

			var opts []cache.SetOption
			if raw := r.URL.Query().Get("ttl"); raw != "" {
				ttl, err := time.ParseDuration(raw)
				if err != nil {
					http.Error(w, fmt.Sprintf("invalid ttl: %v", err), http.StatusBadRequest)
					return
				}
				opts = append(opts, cache.WithTTL(ttl))
			}
			if tags := r.URL.Query()["tag"]; len(tags) > 0 {
				opts = append(opts, cache.WithTags(tags...))
			}

			if err := store.Set(r.Context(), key, value, opts...); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		case http.MethodDelete:
			if err := store.Delete(r.Context(), key); err != nil {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusNoContent)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// invalidateHandler serves POST /invalidate?tag=<tag>.
func invalidateHandler(store *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		tag := r.URL.Query().Get("tag")
		if tag == "" {
			http.Error(w, "missing tag parameter", http.StatusBadRequest)
			return
		}

		if err := store.DeleteByTag(r.Context(), tag); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// statsHandler serves GET /stats as JSON.
func statsHandler(store *cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		response := struct {
			cache.Statistics
			QueueDepth int               `json:"queue_depth"`
			TopKeys    []cache.KeyAccess `json:"top_keys"`
		}{
			Statistics: store.Statistics(),
			QueueDepth: store.QueueDepth(),
			TopKeys:    store.TopKeys(10),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
