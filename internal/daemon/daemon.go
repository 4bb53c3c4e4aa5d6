// Package daemon wires the Core and its collaborators into a running
// process: the compositor connection, the Poller and Interceptor observers,
// the Animator/Border/Dimmer, and the IPC server, then runs the startup
// orphan reconciliation and periodic reconciler loop.
//
// Grounded on the teacher's internal/daemon package: the same
// construct-collaborators-then-start-goroutines shape and panic-recovering
// reconciler loop, generalized from the teacher's tmux-session model to
// tilewm's Core/Observer/IPC wiring.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hatchwm/tilewm/internal/animator"
	"github.com/hatchwm/tilewm/internal/border"
	"github.com/hatchwm/tilewm/internal/compositor"
	"github.com/hatchwm/tilewm/internal/config"
	"github.com/hatchwm/tilewm/internal/core"
	"github.com/hatchwm/tilewm/internal/dimmer"
	"github.com/hatchwm/tilewm/internal/ipc"
	"github.com/hatchwm/tilewm/internal/observer"
	"github.com/hatchwm/tilewm/internal/persistence"
	"github.com/hatchwm/tilewm/internal/router"
	"github.com/hatchwm/tilewm/internal/wmstate"

	"github.com/BurntSushi/xgb/xproto"
)

const (
	pollerInterval      = 150 * time.Millisecond
	interceptorInterval = 8 * time.Millisecond
	reconcileInterval   = 10 * time.Second
	persistInterval     = 30 * time.Second
)

// Daemon owns every long-lived collaborator the process needs and the
// goroutines that drive them.
type Daemon struct {
	Core   *core.Core
	Bridge compositor.Bridge

	conn        *compositor.Connection
	poller      *observer.Poller
	interceptor *observer.Interceptor
	anim        *animator.Animator
	ipcServer   *ipc.Server
	persist     *persistence.Engine
	router      *router.Router
	logger      *slog.Logger

	cancel context.CancelFunc
}

// New establishes the X11 connection, builds every collaborator, and wires
// them into a Core. configPath is the file CommandReload re-reads.
func New(configPath string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := compositor.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("daemon: connect to X11: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("daemon: load config: %w", err)
	}

	bridge := compositor.NewLinuxBridge(conn)
	anim := animator.New(bridge, logger)

	var borderR *border.Renderer
	if cfg.Border.Enabled {
		overlayID, err := compositor.CreateOverlayWindow(conn)
		if err != nil {
			logger.Warn("daemon: border overlay disabled", "error", err)
		} else {
			borderR = border.New(bridge, overlayID, true, cfg.Border.Width, cfg.Border.Radius)
		}
	}

	var dim *dimmer.Dimmer
	if cfg.Layout.DimUnfocused > 0 {
		dim = dimmer.New(bridge, cfg.Layout.DimUnfocused)
	}

	c, err := core.New(bridge, anim, borderR, dim, cfg, core.ProcfsProcessTree{}, logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("daemon: build core: %w", err)
	}

	lookup := makeInfoLookup(conn)
	poller := observer.NewPoller(bridge, lookup, pollerInterval, logger)
	interceptor := observer.NewInterceptor(bridge, interceptorInterval, logger)

	c.SetObserver(poller)
	c.SetInterceptorHooks(interceptor.Acknowledge, interceptor.Forget)

	ipcServer, err := ipc.NewServer(c, bridge, configPath, logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("daemon: build ipc server: %w", err)
	}

	persist, err := persistence.NewEngine(persistence.DefaultRetention)
	if err != nil {
		logger.Warn("daemon: workspace persistence disabled", "error", err)
	}

	bindings, err := cfg.ResolvedBindings()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("daemon: resolve bindings: %w", err)
	}
	rt := router.New(conn, bridge, c, bindings, logger)

	return &Daemon{
		Core:        c,
		Bridge:      bridge,
		conn:        conn,
		poller:      poller,
		interceptor: interceptor,
		anim:        anim,
		ipcServer:   ipcServer,
		persist:     persist,
		router:      rt,
		logger:      logger,
	}, nil
}

// makeInfoLookup resolves a window's owning PID/app identity straight from
// its X11 properties, the shape the Poller needs to classify a window it
// has not seen before; Core.Store has nothing to say about a window until
// after that classification happens.
func makeInfoLookup(conn *compositor.Connection) observer.InfoLookup {
	return func(id wmstate.WindowID) (observer.WindowInfo, bool) {
		pid, appName, bundleID, err := compositor.WindowInfo(conn, xproto.Window(id))
		if err != nil {
			return observer.WindowInfo{}, false
		}
		return observer.WindowInfo{PID: pid, AppName: appName, BundleID: bundleID}, true
	}
}

// Run starts every background goroutine (observers, reconciler, IPC
// server), reconciles any windows left orphaned by a crashed prior run, and
// blocks on the X11 event loop until the connection closes.
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.restoreFromRegistry()

	if err := d.Core.ReconcileOrphans(); err != nil {
		d.logger.Warn("daemon: startup reconciliation failed", "error", err)
	}

	if err := d.router.Register(); err != nil {
		cancel()
		return fmt.Errorf("daemon: register keybindings: %w", err)
	}

	go d.poller.Run(ctx)
	go d.interceptor.Run(ctx, func() ([]wmstate.WindowID, error) {
		displays, err := d.Bridge.Displays()
		if err != nil {
			return nil, err
		}
		var all []wmstate.WindowID
		for _, disp := range displays {
			ids, err := d.Bridge.ListWindows(disp)
			if err != nil {
				return nil, err
			}
			all = append(all, ids...)
		}
		return all, nil
	})
	go d.drainEvents(ctx)
	go d.Core.RunReconciler(ctx, reconcileInterval)
	go d.runPersistLoop(ctx)

	if err := d.ipcServer.Start(); err != nil {
		cancel()
		return fmt.Errorf("daemon: start ipc server: %w", err)
	}

	d.conn.EventLoop()
	return nil
}

// restoreFromRegistry loads the last saved layout (if any, and not stale)
// and reconciles it against whatever windows are actually live right now,
// monitor by monitor and workspace by workspace.
func (d *Daemon) restoreFromRegistry() {
	if d.persist == nil {
		return
	}
	reg, err := d.persist.Load()
	if err != nil {
		d.logger.Warn("daemon: load workspace registry failed", "error", err)
		return
	}
	if reg == nil {
		return
	}

	displays, err := d.Bridge.Displays()
	if err != nil {
		d.logger.Warn("daemon: restore: list displays failed", "error", err)
		return
	}

	for _, display := range displays {
		mr, ok := reg.Monitors[string(display.ID)]
		if !ok {
			continue
		}
		liveIDs, err := d.Bridge.ListWindows(display)
		if err != nil {
			d.logger.Warn("daemon: restore: list windows failed", "display", display.ID, "error", err)
			continue
		}
		live := make([]persistence.LiveWindow, 0, len(liveIDs))
		for _, id := range liveIDs {
			_, appName, bundleID, err := compositor.WindowInfo(d.conn, xproto.Window(id))
			if err != nil {
				continue
			}
			live = append(live, persistence.LiveWindow{
				ID:          id,
				AppName:     appName,
				BundleID:    bundleID,
				WindowTitle: compositor.WindowTitle(d.conn, xproto.Window(id)),
			})
		}

		for n, saved := range mr.Workspaces {
			reconciled := persistence.ReconcileFromRegistry(saved, live)
			d.Core.Store().Workspace(display.ID, wmstate.WorkspaceNumber(n)).Restore(reconciled)
		}
		if err := d.Core.Store().SetActiveWorkspaceNumber(display.ID, wmstate.WorkspaceNumber(mr.ActiveWorkspace)); err != nil {
			d.logger.Warn("daemon: restore: set active workspace failed", "display", display.ID, "error", err)
		}
	}
}

// runPersistLoop periodically snapshots the workspace layout to disk so a
// daemon crash loses at most one interval's worth of layout changes.
func (d *Daemon) runPersistLoop(ctx context.Context) {
	if d.persist == nil {
		return
	}
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.refreshWindowTitles()
			if err := d.persist.Save(d.Core.Store()); err != nil {
				d.logger.Warn("daemon: final workspace save failed", "error", err)
			}
			return
		case <-ticker.C:
			d.refreshWindowTitles()
			if err := d.persist.Save(d.Core.Store()); err != nil {
				d.logger.Warn("daemon: workspace save failed", "error", err)
			}
		}
	}
}

// refreshWindowTitles stamps every tracked window's current WM_NAME onto its
// TrackedWindow before a save, so a restart's restoreFromRegistry title tier
// (spec.md:259) has something to match against beyond app identity.
func (d *Daemon) refreshWindowTitles() {
	store := d.Core.Store()
	for _, monitor := range store.Monitors() {
		for _, n := range store.WorkspacesWithWindows(monitor) {
			ws := store.Workspace(monitor, n)
			for id, tw := range ws.Tracked {
				tw.WindowTitle = compositor.WindowTitle(d.conn, xproto.Window(id))
			}
		}
	}
}

// drainEvents feeds every Poller event into the Core until ctx is canceled.
func (d *Daemon) drainEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-d.poller.Events():
			if !ok {
				return
			}
			if err := d.Core.OnObserverEvent(e); err != nil {
				d.logger.Warn("daemon: handle observer event failed", "error", err, "kind", e.Kind)
			}
		}
	}
}

// Close tears down every collaborator in reverse construction order.
func (d *Daemon) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.ipcServer.Stop()
	d.interceptor.Close()
	d.poller.Close()
	d.anim.Close()
	d.conn.Close()
	return nil
}
