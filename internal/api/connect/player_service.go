package connect

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/maxify/internal/app/notification"
	"github.com/osa030/maxify/internal/app/session"
	"github.com/osa030/maxify/internal/domain/playlist"
	"github.com/osa030/maxify/internal/domain/track"
	"github.com/osa030/maxify/internal/infra/backend"
)

var errStreamClosed = errors.New("subscription stream closed")

// lookupConcurrency bounds parallel track lookups for a single request.
const lookupConcurrency = 4

// Library resolves track and playlist metadata.
type Library interface {
	GetTrack(ctx context.Context, trackID string) (*track.Track, error)
	GetPlaylist(ctx context.Context, playlistID string) (*playlist.Playlist, error)
}

// Warmer measures missing durations ahead of playback.
type Warmer interface {
	ResolveAll(ctx context.Context, tracks []track.Track) []track.Track
}

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
	library Library
	warmer  Warmer // Optional

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlayerService creates a new PlayerService. warmer may be nil, in which
// case durations are only learned when a track is played.
func NewPlayerService(session *session.Manager, library Library, warmer Warmer) *PlayerService {
	ctx, cancel := context.WithCancel(context.Background())
	return &PlayerService{
		session: session,
		library: library,
		warmer:  warmer,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Ensure PlayerService implements the interface.
var _ PlayerServiceHandler = (*PlayerService)(nil)

// Close cancels background duration probes and waits for them.
func (s *PlayerService) Close() {
	s.cancel()
	s.wg.Wait()
}

// GetStatus returns the current session status.
func (s *PlayerService) GetStatus(
	ctx context.Context,
	req *connect.Request[GetStatusRequest],
) (*connect.Response[GetStatusResponse], error) {
	return connect.NewResponse(&GetStatusResponse{
		Status: toStatus(s.session.Status()),
	}), nil
}

// Play plays a track, optionally replacing the queue.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[PlayRequest],
) (*connect.Response[CommandResponse], error) {
	if req.Msg.TrackID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("track_id is required"))
	}

	t, err := s.library.GetTrack(ctx, req.Msg.TrackID)
	if err != nil {
		return nil, backendError(err)
	}

	if req.Msg.QueueTrackIDs == nil {
		s.session.Play(*t)
		return s.commandResponse(), nil
	}

	tracks, err := s.lookupTracks(ctx, req.Msg.QueueTrackIDs)
	if err != nil {
		return nil, backendError(err)
	}
	s.session.PlayQueue(*t, tracks)
	s.warm(tracks)

	return s.commandResponse(), nil
}

// PlayPlaylist replaces the queue with a playlist and starts playing it.
func (s *PlayerService) PlayPlaylist(
	ctx context.Context,
	req *connect.Request[PlayPlaylistRequest],
) (*connect.Response[CommandResponse], error) {
	if req.Msg.PlaylistID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("playlist_id is required"))
	}

	p, err := s.library.GetPlaylist(ctx, req.Msg.PlaylistID)
	if err != nil {
		return nil, backendError(err)
	}

	if err := s.session.PlayPlaylist(p, req.Msg.StartTrackID); err != nil {
		switch {
		case errors.Is(err, session.ErrTrackNotFound):
			return nil, connect.NewError(connect.CodeNotFound, err)
		case errors.Is(err, session.ErrEmptyPlaylist):
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		default:
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}
	s.warm(p.Tracks)

	return s.commandResponse(), nil
}

// Pause pauses playback.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	s.session.Pause()
	return s.commandResponse(), nil
}

// Resume resumes playback.
func (s *PlayerService) Resume(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	s.session.Resume()
	return s.commandResponse(), nil
}

// Stop stops playback and rewinds the current track.
func (s *PlayerService) Stop(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	s.session.Stop()
	return s.commandResponse(), nil
}

// Next plays the following queue entry.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	s.session.Next()
	return s.commandResponse(), nil
}

// Previous plays the preceding queue entry.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	s.session.Previous()
	return s.commandResponse(), nil
}

// Seek moves the playback position.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[CommandResponse], error) {
	if !finite(req.Msg.Seconds) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("seconds must be a finite number"))
	}
	s.session.Seek(req.Msg.Seconds)
	return s.commandResponse(), nil
}

// SetVolume sets the normalized gain.
func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[SetVolumeRequest],
) (*connect.Response[CommandResponse], error) {
	if !finite(req.Msg.Level) {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("level must be a finite number"))
	}
	s.session.SetVolume(req.Msg.Level)
	return s.commandResponse(), nil
}

// ToggleMute toggles between silence and the last audible volume.
func (s *PlayerService) ToggleMute(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	s.session.ToggleMute()
	return s.commandResponse(), nil
}

// Enqueue appends tracks to the queue.
func (s *PlayerService) Enqueue(
	ctx context.Context,
	req *connect.Request[EnqueueRequest],
) (*connect.Response[CommandResponse], error) {
	if len(req.Msg.TrackIDs) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("track_ids is required"))
	}

	tracks, err := s.lookupTracks(ctx, req.Msg.TrackIDs)
	if err != nil {
		return nil, backendError(err)
	}
	s.session.AddToQueue(tracks...)
	s.warm(tracks)

	return s.commandResponse(), nil
}

// Dequeue removes a queue entry. Out-of-range indexes remove nothing.
func (s *PlayerService) Dequeue(
	ctx context.Context,
	req *connect.Request[DequeueRequest],
) (*connect.Response[DequeueResponse], error) {
	removed := s.session.RemoveFromQueue(req.Msg.Index)
	return connect.NewResponse(&DequeueResponse{
		Removed: removed,
		Status:  toStatus(s.session.Status()),
	}), nil
}

// ClearQueue empties the queue.
func (s *PlayerService) ClearQueue(
	ctx context.Context,
	req *connect.Request[CommandRequest],
) (*connect.Response[CommandResponse], error) {
	s.session.ClearQueue()
	return s.commandResponse(), nil
}

// Subscribe streams the current status followed by every status broadcast.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[SubscribeRequest],
	stream *connect.ServerStream[Notification],
) error {
	notifManager := s.session.GetNotificationManager()
	adapter := &notificationStreamAdapter{stream: stream}
	defer adapter.close()

	// Register before snapshotting so no broadcast falls between the two.
	// Holding the adapter lock keeps broadcasts behind the initial state.
	adapter.mu.Lock()
	seq := notifManager.NextSequenceNo()
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)
	err := adapter.sendLocked(&Notification{
		SequenceNo: seq,
		Type:       NotificationTypeInitialState,
		Timestamp:  time.Now(),
		Status:     toStatus(s.session.Status()),
	})
	adapter.mu.Unlock()
	if err != nil {
		return err
	}
	zlog.Debug().Msgf("connect: subscriber joined: subscription=%s", subscriptionID)

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}

	zlog.Debug().Msgf("connect: subscriber left: subscription=%s", subscriptionID)
	return nil
}

func (s *PlayerService) commandResponse() *connect.Response[CommandResponse] {
	return connect.NewResponse(&CommandResponse{
		Status: toStatus(s.session.Status()),
	})
}

// lookupTracks fetches track metadata for ids, preserving order.
func (s *PlayerService) lookupTracks(ctx context.Context, ids []string) ([]track.Track, error) {
	tracks := make([]track.Track, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			t, err := s.library.GetTrack(gctx, id)
			if err != nil {
				return errors.Wrapf(err, "failed to get track %s", id)
			}
			tracks[i] = *t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}

// warm probes missing durations in the background so the session can apply
// them when the tracks are loaded.
func (s *PlayerService) warm(tracks []track.Track) {
	if s.warmer == nil {
		return
	}

	var pending []track.Track
	for _, t := range tracks {
		if !t.HasDuration() {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		zlog.Debug().Msgf("connect: warming durations: tracks=%d", len(pending))
		s.warmer.ResolveAll(s.ctx, pending)
	}()
}

// backendError maps a backend lookup failure to a Connect error.
func backendError(err error) error {
	if se, ok := backend.AsStatusError(err); ok && se.StatusCode == http.StatusNotFound {
		return connect.NewError(connect.CodeNotFound, err)
	}
	if errors.Is(err, context.Canceled) {
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeUnavailable, err)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Broadcasts may arrive from several goroutines, so sends are serialized.
// Once the handler returns the stream must not be written to.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[Notification]
	closed bool
}

func (a *notificationStreamAdapter) Send(n *notification.Notification[*session.Status]) error {
	return a.send(toNotification(n))
}

func (a *notificationStreamAdapter) send(n *Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sendLocked(n)
}

func (a *notificationStreamAdapter) sendLocked(n *Notification) error {
	if a.closed {
		return errStreamClosed
	}
	return a.stream.Send(n)
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
