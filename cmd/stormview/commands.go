package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/stormview/internal/adapter/backend"
	httpadapter "github.com/couchcryptid/stormview/internal/adapter/http"
	"github.com/couchcryptid/stormview/internal/dashboard"
	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/resolver"
	"github.com/couchcryptid/stormview/internal/session"
	"github.com/couchcryptid/stormview/internal/watch"
)

// probeConcurrency bounds the image downloads of `resolve --probe`.
const probeConcurrency = 4

// parseSelection turns the storm and date flags into a subject and slot.
// An empty storm selects the overview; an empty date selects the latest slot.
func parseSelection(storm string, invest bool, date string) (domain.Subject, domain.TimeSlot, error) {
	slot := domain.Latest()
	if date != "" {
		d, err := domain.ParseDateKey(date)
		if err != nil {
			return domain.Subject{}, domain.TimeSlot{}, fmt.Errorf("--date: %w", err)
		}
		slot = domain.Historic(d)
	}

	if storm == "" {
		if invest {
			return domain.Subject{}, domain.TimeSlot{}, errors.New("--invest requires --storm")
		}
		return domain.Overview(), slot, nil
	}
	id, err := domain.ParseStormID(storm)
	if err != nil {
		return domain.Subject{}, domain.TimeSlot{}, fmt.Errorf("--storm: %w", err)
	}
	return domain.SubjectFromRecord(domain.StormRecord{ID: id, Investigation: invest}), slot, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// --- dashboard ---

// DashboardCmd opens the interactive TUI.
type DashboardCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the dashboard TUI.
func (d *DashboardCmd) Run(rt *globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("dashboard: requires a terminal (TTY)")
	}

	a, err := newApp(rt, nil)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	ctx, stop := signalContext()
	defer stop()

	res := resolver.New(a.client, a.logger)
	m := dashboard.NewModel(
		session.New(res, a.observer, a.logger),
		session.NewDetailFetcher(a.client, a.observer, a.logger),
		dashboard.WithSubjectSource(a.client),
		dashboard.WithImageInspector(a.inspect),
		dashboard.WithContext(ctx),
	)

	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	return d.run(true, prog)
}

// run executes the tea program, enabling testable wiring.
func (d *DashboardCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("dashboard: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// --- resolve ---

// ResolveCmd resolves one selection and prints its image sequence.
type ResolveCmd struct {
	Storm  string `help:"Storm id; omit for the general overview." placeholder:"ID"`
	Invest bool   `help:"Treat the storm as an investigation area."`
	Date   string `help:"Historical date; omit for the latest reading." placeholder:"YYYYMMDD"`
	Output string `help:"Output format." enum:"text,json,yaml" default:"text" short:"o"`
	Probe  bool   `help:"Load every image and report the ones that fail to decode."`
}

// Run executes the resolve command.
func (c *ResolveCmd) Run(rt *globals) error {
	subject, slot, err := parseSelection(c.Storm, c.Invest, c.Date)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	a, err := newApp(rt, rt.errOut)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	ctx, stop := signalContext()
	defer stop()

	machine := session.New(resolver.New(a.client, a.logger), a.observer, a.logger)
	fetch := machine.Select(subject, slot)
	machine.Complete(fetch.Run(ctx))

	state := machine.State()
	if state.Phase == domain.PhaseFailed {
		return fmt.Errorf("resolve %s: %w", resolver.Describe(subject, slot), state.Failure)
	}

	var infos []backend.ImageInfo
	if c.Probe {
		infos = probeAll(ctx, machine, a.inspect)
	}
	return writeOutput(rt.out, c.Output, newResolveReport(machine.View(), infos, c.Probe))
}

// probeAll loads every image of the machine's sequence concurrently, then
// settles each position in order so broken images are marked and observed.
func probeAll(ctx context.Context, machine *session.Machine, inspect dashboard.ImageInspector) []backend.ImageInfo {
	locs := machine.State().Sequence.Locators()
	infos := make([]backend.ImageInfo, len(locs))
	errs := make([]error, len(locs))

	var g errgroup.Group
	g.SetLimit(probeConcurrency)
	for i, loc := range locs {
		g.Go(func() error {
			infos[i], errs[i] = inspect(ctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	for i := range locs {
		machine.JumpTo(i)
		machine.Settle(machine.View().Token, errs[i])
	}
	return infos
}

// --- detail ---

// DetailCmd fetches and prints the detail record of one selection.
type DetailCmd struct {
	Storm  string `help:"Storm id; omit for every storm on the slot." placeholder:"ID"`
	Date   string `help:"Historical date; omit for the latest reading." placeholder:"YYYYMMDD"`
	Output string `help:"Output format." enum:"text,json,yaml" default:"text" short:"o"`
}

// Run executes the detail command.
func (c *DetailCmd) Run(rt *globals) error {
	subject, slot, err := parseSelection(c.Storm, false, c.Date)
	if err != nil {
		return fmt.Errorf("detail: %w", err)
	}
	a, err := newApp(rt, rt.errOut)
	if err != nil {
		return fmt.Errorf("detail: %w", err)
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	ctx, stop := signalContext()
	defer stop()

	fetcher := session.NewDetailFetcher(a.client, a.observer, a.logger)
	fetcher.Complete(fetcher.Request(subject, slot).Run(ctx))

	state := fetcher.State()
	if state.Phase == domain.PhaseFailed {
		return fmt.Errorf("detail %s: %w", resolver.Describe(subject, slot), state.Failure)
	}
	return writeOutput(rt.out, c.Output, detailReport(state.Detail))
}

// --- watch ---

// WatchCmd runs the headless watcher with the ops HTTP server.
type WatchCmd struct {
	Storm    string        `help:"Storm id; omit for the general overview." placeholder:"ID"`
	Invest   bool          `help:"Treat the storm as an investigation area."`
	Date     string        `help:"Historical date; omit for the latest reading." placeholder:"YYYYMMDD"`
	Interval time.Duration `help:"Refresh interval; defaults to WATCH_INTERVAL."`
}

// Run executes the watch command until SIGINT or SIGTERM.
func (c *WatchCmd) Run(rt *globals) error {
	subject, slot, err := parseSelection(c.Storm, c.Invest, c.Date)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	a, err := newApp(rt, rt.errOut)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error("close error", "error", err)
		}
	}()

	interval := c.Interval
	if interval <= 0 {
		interval = a.cfg.WatchInterval
	}

	machine := session.New(resolver.New(a.client, a.logger), a.observer, a.logger)
	w := watch.New(machine, interval, a.logger, rt.metrics,
		watch.WithImageChecker(func(ctx context.Context, loc domain.ImageLocator) error {
			_, err := a.inspect(ctx, loc)
			return err
		}),
	)
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, w, func() any { return w.Status() }, a.logger)

	ctx, stop := signalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, subject, slot)
	})
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.logger.Info("shutdown complete")
	return err
}

// --- rain ---

// RainCmd fetches the realtime rain map and prints its summary.
type RainCmd struct {
	Grid    int    `help:"Interpolation grid size." default:"15"`
	Density int    `help:"Interpolation density." default:"50"`
	Output  string `help:"Output format." enum:"text,json,yaml" default:"text" short:"o"`
}

// Run executes the rain command.
func (c *RainCmd) Run(rt *globals) error {
	if c.Grid <= 0 || c.Density <= 0 {
		return errors.New("rain: --grid and --density must be positive")
	}
	a, err := newApp(rt, rt.errOut)
	if err != nil {
		return fmt.Errorf("rain: %w", err)
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	ctx, stop := signalContext()
	defer stop()

	m, err := a.client.FetchRainMap(ctx, c.Grid, c.Density)
	if err != nil {
		return fmt.Errorf("rain: %w", err)
	}
	return writeOutput(rt.out, c.Output, rainReport{m.Summarize()})
}
