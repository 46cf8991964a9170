package main

import (
	_ "embed"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"omega/pkg/admin"
	"omega/pkg/ally"
	"omega/pkg/api"
	"omega/pkg/client"
	"omega/pkg/config"
	"omega/pkg/log"
	"omega/pkg/metrics"
	"omega/pkg/poller"
	"omega/pkg/queue"
	"omega/pkg/selftest"
	"omega/pkg/server"
	"omega/pkg/state"
)

const (
	stateDirPerm = 0750
)

//go:embed VERSION
var Version string

func main() {
	configPath := flag.String("config", "omega.yaml", "Config file path")
	addr := flag.String("addr", "", "Listen address, overrides web.addr")
	webDir := flag.String("web", "", "Web assets directory, overrides web.web_dir")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load config")
	}
	if *debug {
		log.SetDebugMode()
	} else if err := log.SetLevel(cfg.Log.Level); err != nil {
		log.Warn().Err(err).Str("level", cfg.Log.Level).Msg("Invalid log level, keeping default")
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}
	if *webDir != "" {
		cfg.Web.WebDir = *webDir
	}

	stateDir := filepath.Dir(cfg.State.Path)
	if err := os.MkdirAll(stateDir, stateDirPerm); err != nil {
		log.Fatal().Err(err).Str("state_dir", stateDir).Msg("Failed to create state directory")
	}
	store, err := state.NewStore(cfg.State.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.State.Path).Msg("Failed to open state store")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	core := client.New(cfg.APIBase,
		client.WithName("system"),
		client.WithRetryPolicy(retryPolicy(cfg)),
		client.WithCache(cfg.Cache.MaxEntries),
		client.WithMetrics(m),
		client.WithDefaultTimeout(cfg.Request.Timeout),
	)
	kiwix := client.New(cfg.KiwixBase,
		client.WithName("kiwix"),
		client.WithMetrics(m),
		client.WithDefaultTimeout(cfg.Request.Timeout),
	)

	system := api.New(core, cfg, m)
	allySvc := ally.New(cfg, store, queue.New(m), m)
	retrier := queue.NewRetrier(allySvc, cfg.Queue.RetryInterval)
	poll := poller.New(system, cfg)
	adminMgr := admin.New(store, cfg.Admin.UnlockTimeout, cfg.Admin.DefaultPIN)

	watcher, err := config.NewWatcher(*configPath, func(next *config.Config) {
		core.Reconfigure(next.APIBase, next.Request.Timeout)
		core.SetRetryPolicy(retryPolicy(next))
		kiwix.Reconfigure(next.KiwixBase, next.Request.Timeout)
		system.Reconfigure(next)
		allySvc.Reconfigure(next)
		poll.Reconfigure(next)
		retrier.SetInterval(next.Queue.RetryInterval)
		adminMgr.SetTimeout(next.Admin.UnlockTimeout)
		if err := log.SetLevel(next.Log.Level); err != nil {
			log.Warn().Err(err).Msg("Invalid log level in reloaded config")
		}
	})
	if err != nil {
		log.Warn().Err(err).Str("config", *configPath).Msg("Config hot reload disabled")
	} else {
		watcher.Start()
	}

	if cfg.Features.EnableOfflineMode {
		retrier.Start()
	}
	poll.Start()

	ds := server.NewDashServer(cfg.Web.WebDir, strings.TrimSpace(Version), server.Deps{
		System:   system,
		Ally:     allySvc,
		Poller:   poll,
		SelfTest: selftest.New(system, kiwix, store, m),
		Admin:    adminMgr,
		State:    store,
		Gatherer: reg,
		DataDir:  stateDir,
	})

	if err := ds.Start(cfg.Web.Addr); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}

	poll.Stop()
	if cfg.Features.EnableOfflineMode {
		retrier.Stop()
	}
	if watcher != nil {
		watcher.Stop()
	}
	if err := store.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close state store")
	}
}

func retryPolicy(cfg *config.Config) client.RetryPolicy {
	return client.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Factor:      cfg.Retry.BackoffFactor,
	}
}
