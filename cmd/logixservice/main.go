// logixservice exposes an Allen-Bradley Logix controller over a ZeroMQ
// ROUTER socket.
//
// Clients send one JSON request per message and receive one JSON envelope
// back. All controller traffic goes through a single driver session and is
// executed in arrival order.
//
// Usage:
//
//	logixservice --server-address 0.0.0.0 --server-port 5555 [--simulate] [--config path]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/logix-service/internal/api"
	"github.com/nerrad567/logix-service/internal/audit"
	"github.com/nerrad567/logix-service/internal/driver"
	_ "github.com/nerrad567/logix-service/internal/driver/logix"
	"github.com/nerrad567/logix-service/internal/driver/simulated"
	"github.com/nerrad567/logix-service/internal/infrastructure/config"
	"github.com/nerrad567/logix-service/internal/infrastructure/database"
	"github.com/nerrad567/logix-service/internal/infrastructure/influxdb"
	"github.com/nerrad567/logix-service/internal/infrastructure/logging"
	"github.com/nerrad567/logix-service/internal/infrastructure/mqtt"
	"github.com/nerrad567/logix-service/internal/infrastructure/router"
	"github.com/nerrad567/logix-service/internal/metrics"
	"github.com/nerrad567/logix-service/internal/service"
	"github.com/nerrad567/logix-service/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// startupCheckTimeout bounds the backend health checks run before serving.
const startupCheckTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the parsed command line.
type cliFlags struct {
	configPath string
	address    string
	port       int
	simulate   bool
}

// parseFlags parses args. The config path defaults to $LOGIX_CONFIG.
func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("logixservice", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", os.Getenv("LOGIX_CONFIG"), "path to YAML config file (optional)")
	fs.StringVar(&f.address, "server-address", "", "address to bind the request socket to")
	fs.IntVar(&f.port, "server-port", 0, "port to bind the request socket to")
	fs.BoolVar(&f.simulate, "simulate", false, "serve a simulated controller instead of a real one")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

// options turns the flags into config overrides.
func (f *cliFlags) options() []config.Option {
	return []config.Option{
		config.WithEndpoint(f.address, f.port),
		config.WithSimulate(f.simulate),
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, args []string) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	log := logging.Default()
	log.Info("starting logix service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(flags.configPath, flags.options()...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", flags.configPath,
		"endpoint", cfg.Endpoint(),
		"simulate", cfg.Service.Simulate,
	)

	failures, err := logging.NewFailureLog(cfg.Logging.File, version, log)
	if err != nil {
		return fmt.Errorf("opening failure log: %w", err)
	}
	defer func() {
		if closeErr := failures.Close(); closeErr != nil {
			log.Error("error closing failure log", "error", closeErr)
		}
	}()

	opener, err := selectDriver(cfg)
	if err != nil {
		return err
	}

	exec := service.NewExecutor()
	defer exec.Stop()

	collector := metrics.New(exec.Pending)
	observers := service.Observers{collector}
	checks := make(map[string]api.HealthChecker)

	var publisher *sessionPublisher
	var auditor service.Auditor
	var auditRepo audit.Repository
	if cfg.Database.Enabled {
		db, dbErr := openDatabase(ctx, cfg, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		repo := audit.NewSQLiteRepository(db.DB)
		auditor, auditRepo = repo, repo
		checks["database"] = db
	} else {
		log.Info("audit database disabled")
	}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT, cfg.Service.ID)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"status_topic", mqttClient.Topics().Status(),
		)

		publisher = newSessionPublisher(mqttClient, log)
		observers = append(observers, publisher)
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Service.ID)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		observers = append(observers, influxObserver{client: influxClient})
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	session := service.NewSession(exec, opener, observers)
	observers.SessionChanged(session.Info())

	dispatcher, err := service.NewDispatcher(service.DispatcherOptions{
		Session:  session,
		Failures: failures,
		Logger:   log,
		Auditor:  auditor,
	})
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Session: session,
			Audit:   auditRepo,
			Metrics: collector.Handler(),
			Checks:  checks,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr = server.Start(ctx); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	sock, err := router.Bind(router.Config{Endpoint: cfg.Endpoint()})
	if err != nil {
		return fmt.Errorf("binding request socket: %w", err)
	}
	log.Info("request socket bound", "endpoint", sock.Endpoint())

	listener, err := service.NewListener(service.ListenerOptions{
		Socket:             routerSocket{sock},
		Dispatcher:         dispatcher,
		Failures:           failures,
		Logger:             log,
		Observer:           observers,
		PollInterval:       cfg.GetPollInterval(),
		EchoCommandOnError: cfg.Service.EchoCommandOnError,
	})
	if err != nil {
		sock.Close() //nolint:errcheck // startup failed
		return fmt.Errorf("creating listener: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if publisher != nil {
		g.Go(func() error { return publisher.Run(gctx) })
	}
	g.Go(func() error {
		defer func() {
			if closeErr := sock.Close(); closeErr != nil {
				log.Error("error closing request socket", "error", closeErr)
			}
		}()
		if serveErr := listener.Serve(gctx); serveErr != nil {
			return fmt.Errorf("serving requests: %w", serveErr)
		}
		return nil
	})

	log.Info("initialisation complete, serving requests")
	err = g.Wait()

	log.Info("shutting down")
	if closeSession(session, log) && publisher != nil {
		publisher.flush()
	}
	exec.Stop()

	if err != nil {
		return err
	}
	log.Info("logix service stopped")
	return nil
}

// selectDriver returns the simulated controller or the registered driver
// named in config.
func selectDriver(cfg *config.Config) (driver.Opener, error) {
	if cfg.Service.Simulate {
		return simulated.NewDevice().Open, nil
	}
	opener, err := driver.Lookup(cfg.Service.Driver)
	if err != nil {
		return nil, fmt.Errorf("selecting driver: %w", err)
	}
	return opener, nil
}

// openDatabase opens the audit database and applies migrations.
func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // startup failed
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())
	return db, nil
}

// healthCheck runs every backend check concurrently and returns the first
// failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for name, check := range checks {
		g.Go(func() error {
			if err := check.HealthCheck(gctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// closeSession closes an open controller session on shutdown and reports
// whether there was one. The request context is gone by now, so a fresh one
// bounds the close.
func closeSession(session *service.Session, log *logging.Logger) bool {
	if !session.Connected() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := session.Close(ctx, session.Reserve()); err != nil && !errors.Is(err, service.ErrNoConnection) {
		log.Warn("closing controller session", "error", err)
		return true
	}
	log.Info("controller session closed")
	return true
}
