package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/lintang-b-s/routex/docs"
	"github.com/lintang-b-s/routex/pkg/engine/facade"
	"github.com/lintang-b-s/routex/pkg/kv"
	"github.com/lintang-b-s/routex/pkg/logger"
	"github.com/lintang-b-s/routex/pkg/server/rest"
	"github.com/lintang-b-s/routex/pkg/server/rest/service"
	"github.com/lintang-b-s/routex/pkg/storage"
)

var (
	base         = flag.String("f", "map", "base path of the persisted tables")
	listenHost   = flag.String("ip", "0.0.0.0", "listen host")
	listenPort   = flag.Int("port", 5000, "listen port")
	maxLocations = flag.Int("max-locations", service.DefaultMaxLocations, "maximum locations per request")
	sharedMemory = flag.Bool("shared-memory", false, "read tables from the datastore instead of files")
	storeDir     = flag.String("store", "./routex_store", "pebble directory of the datastore")
	kvDir        = flag.String("kvdir", "./routex_db", "badger directory of the h3 candidate store")
	pollInterval = flag.Duration("reload-interval", 30*time.Second, "datastore snapshot poll interval")
)

const drainTimeout = 2 * time.Second

//	@title			routex API
//	@version		1.0
//	@description	openstreetmap routing engine over an edge-expanded graph

//	@license.name	GNU Affero General Public License v3.0
//	@license.url	https://www.gnu.org/licenses/agpl-3.0.en.html

// @BasePath	/
// @schemes	http
func main() {
	flag.Parse()

	log, err := logger.New()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	provider, store, err := loadProvider(log)
	if err != nil {
		log.Error("loading routing data", zap.Error(err))
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	navigationSvc := service.NewNavigationService(provider, *maxLocations, log)
	if db, err := badger.Open(badger.DefaultOptions(*kvDir).WithReadOnly(true)); err != nil {
		log.Warn("h3 candidate store unavailable", zap.Error(err))
	} else {
		kvDB := kv.NewKVDB(db, log)
		defer kvDB.Close()
		navigationSvc.WithCandidateStore(kvDB)
	}

	reg := prometheus.NewRegistry()
	m := rest.NewMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rest.PromHTTPMiddleware(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler())

	rest.NavigatorRouter(r, navigationSvc, log, rest.DefaultRequestTimeout)

	addr := fmt.Sprintf("%s:%d", *listenHost, *listenPort)
	server := &http.Server{Addr: addr, Handler: r}

	reloadCtx, stopReload := context.WithCancel(context.Background())
	defer stopReload()
	if store != nil {
		go pollSnapshots(reloadCtx, provider, store, log)
	}

	go func() {
		log.Info("server started", zap.String("addr", addr))
		signalParentWhenReady(log)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			os.Exit(1)
		}
	}()

	// graceful drain on SIGINT/SIGTERM, hard abort after the deadline
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("drain deadline exceeded, aborting", zap.Error(err))
		server.Close()
	}
	log.Info("server shut down")
}

func loadProvider(log *zap.Logger) (*facade.Provider, *kv.TableStore, error) {
	if *sharedMemory {
		store, err := kv.OpenTableStore(*storeDir, log)
		if err != nil {
			return nil, nil, err
		}
		tables, err := store.Load()
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		f, err := facade.NewOwningFacade(tables)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return facade.NewProvider(f), store, nil
	}

	tables, err := storage.LoadTables(*base)
	if err != nil {
		return nil, nil, err
	}
	f, err := facade.NewOwningFacade(tables)
	if err != nil {
		return nil, nil, err
	}
	return facade.NewProvider(f), nil, nil
}

// pollSnapshots watches the datastore for a republished snapshot and swaps
// the facade; in-flight queries keep their old snapshot until they finish.
func pollSnapshots(ctx context.Context, provider *facade.Provider, store *kv.TableStore, log *zap.Logger) {
	ticker := time.NewTicker(*pollInterval)
	defer ticker.Stop()

	current, release := provider.Acquire()
	lastTimestamp := current.Timestamp()
	release()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tables, err := store.Load()
			if err != nil {
				log.Warn("polling datastore", zap.Error(err))
				continue
			}
			if tables.Timestamp == lastTimestamp {
				continue
			}
			f, err := facade.NewOwningFacade(tables)
			if err != nil {
				log.Warn("rejecting torn snapshot", zap.Error(err))
				continue
			}
			provider.Swap(f)
			lastTimestamp = tables.Timestamp
			log.Info("swapped routing snapshot", zap.String("timestamp", tables.Timestamp))
		}
	}
}

// signalParentWhenReady tells a supervising process the server is warm.
func signalParentWhenReady(log *zap.Logger) {
	if os.Getenv("SIGNAL_PARENT_WHEN_READY") == "" {
		return
	}
	if err := syscall.Kill(os.Getppid(), syscall.SIGUSR1); err != nil {
		log.Warn("signalling parent", zap.Error(err))
	}
}
