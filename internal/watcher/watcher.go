package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"podwatch/internal/config"
	"podwatch/internal/ipc"
	"podwatch/internal/jobstore"
	"podwatch/internal/logging"
	"podwatch/internal/notify"
	"podwatch/internal/session"
	"podwatch/internal/syncer"
)

// Version is reported over IPC so clients can detect mismatched binaries.
const Version = "0.1.0"

// Watcher owns the long-running sync process: the persisted session, the
// push channel, the job status cache, and desktop notifications. It enforces
// single-instance execution with a file lock.
type Watcher struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *jobstore.Store
	sessions  *session.Store
	authority *session.Authority
	notifier  notify.Service
	sync      *syncer.Syncer

	lock    *flock.Flock
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New constructs a watcher with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, errors.New("watcher requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	sessions, err := session.OpenStore(cfg.SessionDBPath())
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	authority := session.NewAuthority()
	store := jobstore.NewStore()
	notifier := notify.NewService(cfg)
	sync, err := syncer.FromConfig(cfg, authority, store, notifier, syncer.WithLogger(logger))
	if err != nil {
		sessions.Close()
		return nil, err
	}

	return &Watcher{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "watcher"),
		store:     store,
		sessions:  sessions,
		authority: authority,
		notifier:  notifier,
		sync:      sync,
		lock:      flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the instance lock, restores any persisted session, and
// launches the sync loop.
func (w *Watcher) Start(ctx context.Context) error {
	if w.running.Load() {
		return errors.New("watcher already running")
	}

	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another podwatch watcher instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	changes := w.authority.Watch()
	if persisted, err := w.sessions.Current(runCtx); err == nil {
		w.authority.SignIn(persisted)
		w.logger.Info("restored persisted session", logging.String("email", persisted.Email))
	} else if !errors.Is(err, session.ErrNoSession) {
		w.logger.Warn("failed to load persisted session", logging.Error(err))
	}

	go func() {
		defer close(w.done)
		w.sync.Run(runCtx)
	}()
	go w.persistSessionChanges(runCtx, changes)

	w.running.Store(true)
	w.logger.Info("podwatch watcher started", logging.String("lock", w.cfg.LockPath()))
	return nil
}

// persistSessionChanges keeps the session database in step with the
// authority, so a credential rejection on the channel also removes the
// stored token.
func (w *Watcher) persistSessionChanges(ctx context.Context, changes <-chan session.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			if change.SignedIn {
				continue
			}
			if err := w.sessions.Clear(ctx); err != nil {
				w.logger.Warn("failed to clear persisted session", logging.Error(err))
			}
		}
	}
}

// Stop terminates the sync loop and releases the instance lock.
func (w *Watcher) Stop() {
	if !w.running.Load() {
		return
	}

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.done != nil {
		<-w.done
		w.done = nil
	}
	if err := w.lock.Unlock(); err != nil {
		w.logger.Warn("failed to release watcher lock", logging.Error(err))
	}
	w.running.Store(false)
	w.logger.Info("podwatch watcher stopped")
}

// Close releases resources held by the watcher.
func (w *Watcher) Close() error {
	w.Stop()
	if w.sessions != nil {
		return w.sessions.Close()
	}
	return nil
}

// Status reports the watcher snapshot exposed over IPC.
func (w *Watcher) Status(context.Context) ipc.WatcherStatus {
	status := ipc.WatcherStatus{
		Connected:     w.sync.IsConnected(),
		ChannelState:  w.sync.ChannelState().String(),
		SessionDBPath: w.cfg.SessionDBPath(),
		LockPath:      w.cfg.LockPath(),
	}
	if current, ok := w.authority.Current(); ok {
		status.SignedIn = true
		status.Email = current.Email
	}
	return status
}

// Jobs returns cached statuses in arrival order, optionally filtered by kind.
func (w *Watcher) Jobs(kinds []jobstore.Kind) []jobstore.Record {
	records := w.store.Snapshot()
	if len(kinds) == 0 {
		return records
	}
	wanted := make(map[jobstore.Kind]bool, len(kinds))
	for _, kind := range kinds {
		wanted[kind] = true
	}
	filtered := make([]jobstore.Record, 0, len(records))
	for _, record := range records {
		if wanted[record.Kind] {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// Job returns the cached status of a single job.
func (w *Watcher) Job(kind jobstore.Kind, id string) (jobstore.Record, bool) {
	return w.store.Get(kind, id)
}

// ClearJob drops the cached status of a single job.
func (w *Watcher) ClearJob(kind jobstore.Kind, id string) bool {
	if _, ok := w.store.Get(kind, id); !ok {
		return false
	}
	w.store.Evict(kind, id)
	return true
}

// SignIn persists a session and hands it to the authority, which opens the
// push channel.
func (w *Watcher) SignIn(ctx context.Context, email, token, deviceID string) error {
	if token == "" {
		return errors.New("session token is required")
	}
	sess := session.Session{
		Email:     email,
		Token:     token,
		DeviceID:  deviceID,
		CreatedAt: time.Now().UTC(),
	}
	if err := w.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	w.authority.SignIn(sess)
	return nil
}

// SignOut ends the session. The authority change also tears the channel
// down and clears the cached statuses.
func (w *Watcher) SignOut(ctx context.Context) error {
	w.authority.SignOut()
	if err := w.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

// TestNotification publishes a test message through the configured notifier.
func (w *Watcher) TestNotification(ctx context.Context) (bool, string, error) {
	if w.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := w.notifier.Test(ctx); err != nil {
		return false, err.Error(), err
	}
	return true, fmt.Sprintf("test notification sent to %s", w.cfg.Notifications.NtfyTopic), nil
}

// Version reports the watcher build version.
func (w *Watcher) Version() string {
	return Version
}
