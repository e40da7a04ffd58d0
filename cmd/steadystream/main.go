// Command steadystream: IPTV guide backend. Loads M3U or Xtream lineups
// and XMLTV guides, serves the grid API, profiles and the stream relay.
//
//	run     One-run: import lineup, load guide, serve API. For systemd.
//	import  Fetch a lineup (M3U or Xtream) and save the snapshot
//	epg     Fetch an XMLTV guide and match it to the saved lineup
//	serve   Serve the API from the saved snapshot only (no import)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/steadystream/steadystream/internal/config"
	"github.com/steadystream/steadystream/internal/fetch"
	"github.com/steadystream/steadystream/internal/guide"
	"github.com/steadystream/steadystream/internal/profile"
	"github.com/steadystream/steadystream/internal/server"
	"github.com/steadystream/steadystream/internal/store"
	"github.com/steadystream/steadystream/internal/xtream"
)

func main() {
	_ = config.LoadEnvFile(".env")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importConfig := importCmd.String("config", "", "Config file (default: STEADYSTREAM_CONFIG or steadystream.yaml)")
	importM3U := importCmd.String("m3u", "", "M3U URL (default: STEADYSTREAM_M3U_URL)")
	importXtream := importCmd.String("xtream", "", "Xtream panel URL (with -user/-pass; default: STEADYSTREAM_XTREAM_*)")
	importUser := importCmd.String("user", "", "Xtream username")
	importPass := importCmd.String("pass", "", "Xtream password")

	epgCmd := flag.NewFlagSet("epg", flag.ExitOnError)
	epgConfig := epgCmd.String("config", "", "Config file")
	epgURL := epgCmd.String("url", "", "XMLTV URL (default: STEADYSTREAM_EPG_URL)")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveConfig := serveCmd.String("config", "", "Config file")
	serveAddr := serveCmd.String("addr", "", "Listen address (default: config listen_addr)")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runConfig := runCmd.String("config", "", "Config file")
	runAddr := runCmd.String("addr", "", "Listen address (default: config listen_addr)")
	runRefresh := runCmd.Duration("refresh", 0, "Re-import lineup and guide at this interval (e.g. 6h). 0 = only at startup")
	runSkipImport := runCmd.Bool("skip-import", false, "Serve the saved snapshot without importing at startup")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <run|import|epg|serve> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  run     Import lineup + guide, then serve API (for systemd)\n")
		fmt.Fprintf(os.Stderr, "  import  Fetch lineup (M3U or Xtream), save snapshot\n")
		fmt.Fprintf(os.Stderr, "  epg     Fetch XMLTV guide, match against saved lineup\n")
		fmt.Fprintf(os.Stderr, "  serve   Serve API from saved snapshot only\n")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		_ = importCmd.Parse(os.Args[2:])
		app := mustApp(*importConfig)
		if *importM3U != "" {
			app.cfg.M3UURL = *importM3U
			app.cfg.XtreamBaseURL = ""
		}
		if *importXtream != "" {
			app.cfg.XtreamBaseURL = *importXtream
			app.cfg.XtreamUser = *importUser
			app.cfg.XtreamPass = *importPass
		}
		ctx, cancel := signalContext()
		defer cancel()
		if err := app.importLineup(ctx); err != nil {
			app.log.WithError(err).Fatal("import failed")
		}

	case "epg":
		_ = epgCmd.Parse(os.Args[2:])
		app := mustApp(*epgConfig)
		if *epgURL != "" {
			app.cfg.EPGURL = *epgURL
		}
		ctx, cancel := signalContext()
		defer cancel()
		if _, err := app.loadGuide(ctx); err != nil {
			app.log.WithError(err).Fatal("epg load failed")
		}

	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		app := mustApp(*serveConfig)
		if *serveAddr != "" {
			app.cfg.ListenAddr = *serveAddr
		}
		ctx, cancel := signalContext()
		defer cancel()
		if err := app.serve(ctx); err != nil {
			app.log.WithError(err).Fatal("server failed")
		}

	case "run":
		_ = runCmd.Parse(os.Args[2:])
		app := mustApp(*runConfig)
		if *runAddr != "" {
			app.cfg.ListenAddr = *runAddr
		}
		ctx, cancel := signalContext()
		defer cancel()
		if !*runSkipImport {
			if err := app.importLineup(ctx); err != nil {
				// A saved snapshot can still serve; a cold start cannot.
				if _, found, _ := app.playlists.Current(); !found {
					app.log.WithError(err).Fatal("import failed and no snapshot exists")
				}
				app.log.WithError(err).Warn("import failed, serving saved snapshot")
			}
			app.refreshGuide(ctx)
		}
		if *runRefresh > 0 {
			go app.refreshLoop(ctx, *runRefresh)
		}
		go app.reimportOnHUP(ctx)
		if err := app.serve(ctx); err != nil {
			app.log.WithError(err).Fatal("server failed")
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// app wires config into the service graph.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	playlists *guide.PlaylistService
	epgSvc    *guide.EPGService
	profiles  *profile.Store
	srv       *server.Server
}

func mustApp(configPath string) *app {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	st, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("open data dir")
	}
	profiles, err := profile.Open(cfg.ProfileDBPath)
	if err != nil {
		log.WithError(err).Fatal("open profile db")
	}
	fetcher := &fetch.Fetcher{
		Client: fetch.WithTimeout(cfg.FetchTimeout),
		Log:    log,
	}
	if !cfg.UseRelays {
		fetcher.Proxies = []string{}
	} else if len(cfg.Relays) > 0 {
		fetcher.Proxies = cfg.Relays
	}
	a := &app{
		cfg:       cfg,
		log:       log,
		playlists: &guide.PlaylistService{Fetcher: fetcher, Store: st, Log: log},
		epgSvc:    &guide.EPGService{Fetcher: fetcher, Store: st, Log: log},
		profiles:  profiles,
	}
	a.srv = &server.Server{
		Addr:            cfg.ListenAddr,
		Playlists:       a.playlists,
		EPG:             a.epgSvc,
		Profiles:        a.profiles,
		PixelsPerMinute: cfg.PixelsPerMinute,
		SlotMinutes:     cfg.SlotMinutes,
		Log:             log,
	}
	return a
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

// importLineup loads from whichever source is configured, preferring the
// Xtream panel when both are set.
func (a *app) importLineup(ctx context.Context) error {
	switch {
	case a.cfg.HasXtream():
		creds := xtream.Credentials{
			Username: a.cfg.XtreamUser,
			Password: a.cfg.XtreamPass,
			BaseURL:  a.cfg.XtreamBaseURL,
		}
		_, err := a.playlists.LoadXtream(ctx, creds)
		return err
	case a.cfg.M3UURL != "":
		_, err := a.playlists.LoadM3U(ctx, a.cfg.M3UURL)
		return err
	default:
		return fmt.Errorf("no source configured: set m3u_url or xtream credentials")
	}
}

func (a *app) loadGuide(ctx context.Context) (int, error) {
	if a.cfg.EPGURL == "" {
		return 0, fmt.Errorf("no epg_url configured")
	}
	pl, found, err := a.playlists.Current()
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("no lineup loaded: run import first")
	}
	data, err := a.epgSvc.LoadEPG(ctx, a.cfg.EPGURL, pl.Channels)
	if err != nil {
		return 0, err
	}
	a.srv.SetGuide(data)
	return len(data.Channels), nil
}

// refreshGuide is the best-effort variant used by run: a guide failure
// degrades the grid but should not stop the server.
func (a *app) refreshGuide(ctx context.Context) {
	if a.cfg.EPGURL == "" {
		return
	}
	if _, err := a.loadGuide(ctx); err != nil {
		a.log.WithError(err).Warn("guide load failed")
	}
}

func (a *app) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.importLineup(ctx); err != nil {
				a.log.WithError(err).Warn("scheduled import failed")
				continue
			}
			a.refreshGuide(ctx)
		}
	}
}

// reimportOnHUP re-imports the lineup and guide when the process gets
// SIGHUP, so a provider-side change can be picked up without a restart.
func (a *app) reimportOnHUP(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			a.log.Info("sighup: re-importing")
			if err := a.importLineup(ctx); err != nil {
				a.log.WithError(err).Warn("sighup import failed")
				continue
			}
			a.refreshGuide(ctx)
		}
	}
}

func (a *app) serve(ctx context.Context) error {
	defer a.profiles.Close()
	return a.srv.Run(ctx)
}
