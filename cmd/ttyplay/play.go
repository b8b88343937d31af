package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ehrlich-b/ttyplay/internal/bookmark"
	"github.com/ehrlich-b/ttyplay/internal/cache"
	"github.com/ehrlich-b/ttyplay/internal/config"
	"github.com/ehrlich-b/ttyplay/internal/index"
	"github.com/ehrlich-b/ttyplay/internal/logger"
	"github.com/ehrlich-b/ttyplay/internal/metrics"
	"github.com/ehrlich-b/ttyplay/internal/player"
	"github.com/ehrlich-b/ttyplay/internal/serve"
	"github.com/ehrlich-b/ttyplay/internal/termio"
)

func runPlay(opts playOptions) error {
	log := logger.Log

	userDir, err := config.EnsureUserConfigDir()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	cfg, err := config.Load(userDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var idxCache index.Cache
	if !opts.noCache && !cfg.NoCache {
		dsn := filepath.Join(userDir, "index.db")
		store, err := cache.Open(dsn, log)
		if err != nil {
			log.Warn("play: index cache unavailable, scanning without it", "error", err)
		} else {
			defer store.Close()
			idxCache = store
		}
	}

	var ix *index.Index
	var stream io.Reader
	if len(opts.files) > 0 {
		ix, err = index.BuildIndex(opts.files, idxCache)
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		for _, f := range ix.Files {
			log.Info("play: indexed file", "name", f.Name, "elapsed_end", f.ElapsedAtEnd.Seconds())
		}
	} else {
		stream = os.Stdin
	}

	speed := opts.speed
	if speed <= 0 {
		speed = cfg.DefaultSpeed
	}
	state := player.NewState(speed)

	recKey := recordingKey(opts.files)
	bookmarkPath := filepath.Join(userDir, "bookmarks", recKey+".bookmark")

	if opts.resume && cfg.BookmarkPass != "" && bookmark.Exists(bookmarkPath) {
		mark, err := bookmark.Load(bookmarkPath, cfg.BookmarkPass)
		if err != nil {
			log.Warn("play: failed to load bookmark, starting from the beginning", "error", err)
		} else if !ix.NoIndex() {
			state.CurrentFileIdx = mark.FileIdx
			state.StreamPosition = mark.StreamOffset
			state.Elapsed = mark.Elapsed
			log.Info("play: resuming from bookmark", "file", ix.FileAt(mark.FileIdx).Name, "elapsed", mark.Elapsed.Seconds())
		}
	}

	charset := termio.CharsetNone
	switch {
	case opts.utf8:
		charset = termio.CharsetUTF8
	case opts.eightbit:
		charset = termio.Charset8Bit
	}
	term := termio.New(termio.StdinFD(), charset)
	if err := term.Enable(os.Stdout); err != nil {
		return err
	}
	defer term.Restore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	keys := player.StartKeyReader(func() (byte, error) {
		var b [1]byte
		_, err := os.Stdin.Read(b[:])
		return b[0], err
	})

	var m *metrics.Metrics
	if opts.metricsAddr != "" {
		m = metrics.New()
		serveMetrics(opts.metricsAddr, m.Handler(), log)
	}

	var hub *serve.Hub
	if opts.listen != "" {
		cols, rows := 80, 24
		if c, r, err := term.Size(); err == nil {
			cols, rows = c, r
		}
		hub = serve.NewHub(cols, rows, log)
		defer hub.Close()
		serveViewers(opts.listen, hub, []byte(cfg.ServeSecret), recKey, log)
	}

	var out io.Writer = os.Stdout
	if hub != nil || m != nil {
		out = &teeWriter{w: os.Stdout, hub: hub, metrics: m}
	}

	l := player.NewLoop(ix, state, out, keys.Chan(), log)
	l.NoWait = opts.noWait
	l.Metrics = m
	l.OnFileChange = func(name string) {
		log.Info("play: now playing", "file", name)
	}

	runErr := l.Run(ctx, stream)

	if cfg.BookmarkPass != "" && !ix.NoIndex() {
		mark := bookmark.Mark{
			RecordingKey: recKey,
			FileIdx:      state.CurrentFileIdx,
			StreamOffset: state.StreamPosition,
			Elapsed:      state.Elapsed,
		}
		err := os.MkdirAll(filepath.Dir(bookmarkPath), 0o700)
		if err == nil {
			err = bookmark.Save(bookmarkPath, cfg.BookmarkPass, mark)
		}
		if err != nil {
			log.Warn("play: failed to save bookmark", "error", err)
		}
	}

	if runErr == player.ErrQuit {
		return nil
	}
	return runErr
}

// recordingKey derives a stable identifier for a file list, used to key
// bookmarks and serve-mode viewer tokens. Stdin sessions (no files) are
// never bookmarked, but still get a key for serve mode.
func recordingKey(files []string) string {
	joined := strings.Join(files, "\x00")
	if joined == "" {
		joined = "<stdin>"
	}
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])[:16]
}

func serveMetrics(addr string, handler http.Handler, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics: server failed", "error", err)
		}
	}()
}

func serveViewers(addr string, hub *serve.Hub, secret []byte, recKey string, log *slog.Logger) {
	s := serve.NewServer(hub, secret, recKey, log)
	srv := &http.Server{Addr: addr, Handler: s}
	go func() {
		log.Info("serve: listening for viewers", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("serve: server failed", "error", err)
		}
	}()
}

// teeWriter forwards every playback write to stdout and, when configured,
// to the serve-mode hub and the metrics collector, without ever letting a
// slow viewer or the metrics path block the terminal write.
type teeWriter struct {
	w       io.Writer
	hub     *serve.Hub
	metrics *metrics.Metrics
}

func (t *teeWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if t.hub != nil {
		cp := make([]byte, len(p))
		copy(cp, p)
		t.hub.Feed(cp)
	}
	t.metrics.RecordPlayed()
	return n, err
}
