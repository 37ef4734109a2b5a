package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/splitmind/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/splitmind/internal/metrics"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

// storeOptions maps the loaded configuration onto store.Options.
func (o *rootOptions) storeOptions() store.Options {
	timeout, _ := o.cfg.Durations()
	return store.Options{
		Backend:        o.cfg.Store.Backend,
		Path:           o.cfg.Store.Path,
		URL:            o.cfg.Store.URL,
		Token:          o.cfg.Store.Token,
		Timeout:        timeout,
		CreateDefaults: o.cfg.Store.CreateDefaults,
		Logger:         o.logger.WithComponent("store").Slog(),
	}
}

// openStore creates the configured store and registers it for closing.
func (o *rootOptions) openStore(instrument bool) (settings.Store, error) {
	opts := o.storeOptions()
	if instrument {
		opts.Metrics = metrics.Default()
	}
	return o.open(opts)
}

func (o *rootOptions) open(opts store.Options) (settings.Store, error) {
	s, err := store.New(opts)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", opts.Backend, err)
	}
	o.closers = append(o.closers, closerFunc(func() error { return store.Close(s) }))
	return s, nil
}

// newReconciler builds a reconciler over s with the editor settings applied.
func (o *rootOptions) newReconciler(s settings.Store, optimistic bool) *settings.Reconciler {
	_, ttl := o.cfg.Durations()
	opts := []settings.Option{
		settings.WithCatalog(o.catalog),
		settings.WithLogger(o.logger.Slog()),
	}
	if ttl > 0 {
		opts = append(opts, settings.WithStatusTTL(ttl))
	}
	if optimistic || o.cfg.Editor.Optimistic {
		opts = append(opts, settings.WithOptimisticConcurrency())
	}
	return settings.NewReconciler(s, opts...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// readSecret reads one line from in without echo when in is a terminal.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
