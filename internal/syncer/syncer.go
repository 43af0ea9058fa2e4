package syncer

import (
	"context"
	"log/slog"

	"podwatch/internal/channel"
	"podwatch/internal/config"
	"podwatch/internal/dispatch"
	"podwatch/internal/jobstore"
	"podwatch/internal/logging"
	"podwatch/internal/notify"
	"podwatch/internal/session"
)

// Syncer ties the session authority, the push channel, and the job store
// together. It owns the single goroutine that consumes channel frames, so
// the store only ever sees one writer.
type Syncer struct {
	authority  *session.Authority
	manager    *channel.Manager
	dispatcher *dispatch.Dispatcher
	store      *jobstore.Store
	logger     *slog.Logger
}

// Option adjusts syncer construction.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	channelOpts []channel.Option
}

// WithLogger routes syncer and channel logging through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithChannelOptions forwards extra options to the channel manager.
func WithChannelOptions(opts ...channel.Option) Option {
	return func(o *options) {
		o.channelOpts = append(o.channelOpts, opts...)
	}
}

// New assembles a syncer around an explicit dialer. Credential rejections
// reported by the channel are translated into a session sign-out, which the
// run loop then observes like any other sign-out.
func New(dialer channel.Dialer, policy channel.RetryPolicy, authority *session.Authority, store *jobstore.Store, notifier notify.Service, opts ...Option) *Syncer {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	channelOpts := append([]channel.Option{
		channel.WithLogger(o.logger),
		channel.WithOnAuthError(authority.SignOut),
	}, o.channelOpts...)

	return &Syncer{
		authority:  authority,
		manager:    channel.NewManager(dialer, policy, channelOpts...),
		dispatcher: dispatch.NewDispatcher(store, notifier, o.logger),
		store:      store,
		logger:     logging.NewComponentLogger(o.logger, "syncer"),
	}
}

// FromConfig assembles a syncer with the production websocket dialer.
func FromConfig(cfg *config.Config, authority *session.Authority, store *jobstore.Store, notifier notify.Service, opts ...Option) (*Syncer, error) {
	dialer, err := channel.NewWebsocketDialer(cfg)
	if err != nil {
		return nil, err
	}
	return New(dialer, channel.PolicyFromConfig(cfg), authority, store, notifier, opts...), nil
}

// Run drives the syncer until ctx is cancelled. It must be called at most
// once. Sign-ins open the channel, sign-outs tear it down and clear the
// cached statuses, and every received frame is handed to the dispatcher in
// arrival order.
func (s *Syncer) Run(ctx context.Context) {
	changes := s.authority.Watch()

	// A session established before Run never reaches the watch channel,
	// so pick it up from the authority directly.
	if current, ok := s.authority.Current(); ok {
		s.manager.SignIn(current.Token)
	}

	for {
		select {
		case <-ctx.Done():
			s.manager.Close()
			return
		case change := <-changes:
			if change.SignedIn {
				s.manager.SignIn(change.Token)
			} else {
				s.manager.SignOut()
				s.store.Clear()
				s.logger.Info("session ended, cleared job statuses")
			}
		case frame := <-s.manager.Frames():
			if s.manager.Stale(frame) {
				s.logger.Debug("discarding frame from ended session")
				continue
			}
			s.dispatcher.Handle(ctx, frame.Data)
		}
	}
}

// Close tears down the channel without touching the cached statuses.
func (s *Syncer) Close() {
	s.manager.Close()
}

// IsConnected reports whether the push channel is currently established.
func (s *Syncer) IsConnected() bool {
	return s.manager.IsConnected()
}

// ChannelState exposes the channel state for status reporting.
func (s *Syncer) ChannelState() channel.State {
	return s.manager.State()
}

// ConversionStatus returns the cached status of an audio conversion job.
func (s *Syncer) ConversionStatus(id string) (jobstore.Record, bool) {
	return s.store.Get(jobstore.KindConversion, id)
}

// PodcastStatus returns the cached status of a podcast processing job.
func (s *Syncer) PodcastStatus(id string) (jobstore.Record, bool) {
	return s.store.Get(jobstore.KindPodcast, id)
}

// ClearConversionStatus drops the cached status of one conversion job.
func (s *Syncer) ClearConversionStatus(id string) {
	s.store.Evict(jobstore.KindConversion, id)
}

// ClearPodcastStatus drops the cached status of one podcast job.
func (s *Syncer) ClearPodcastStatus(id string) {
	s.store.Evict(jobstore.KindPodcast, id)
}

// Jobs returns every cached status in arrival order.
func (s *Syncer) Jobs() []jobstore.Record {
	return s.store.Snapshot()
}

// Counts returns a per-status tally of the cached jobs of one kind.
func (s *Syncer) Counts(kind jobstore.Kind) map[jobstore.Status]int {
	return s.store.Counts(kind)
}
