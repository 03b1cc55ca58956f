package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// PlayerServiceName is the fully-qualified name of the PlayerService service.
const PlayerServiceName = "maxify.player.v1.PlayerService"

// Procedure paths for each PlayerService RPC.
const (
	PlayerServiceGetStatusProcedure    = "/" + PlayerServiceName + "/GetStatus"
	PlayerServicePlayProcedure         = "/" + PlayerServiceName + "/Play"
	PlayerServicePlayPlaylistProcedure = "/" + PlayerServiceName + "/PlayPlaylist"
	PlayerServicePauseProcedure        = "/" + PlayerServiceName + "/Pause"
	PlayerServiceResumeProcedure       = "/" + PlayerServiceName + "/Resume"
	PlayerServiceStopProcedure         = "/" + PlayerServiceName + "/Stop"
	PlayerServiceNextProcedure         = "/" + PlayerServiceName + "/Next"
	PlayerServicePreviousProcedure     = "/" + PlayerServiceName + "/Previous"
	PlayerServiceSeekProcedure         = "/" + PlayerServiceName + "/Seek"
	PlayerServiceSetVolumeProcedure    = "/" + PlayerServiceName + "/SetVolume"
	PlayerServiceToggleMuteProcedure   = "/" + PlayerServiceName + "/ToggleMute"
	PlayerServiceEnqueueProcedure      = "/" + PlayerServiceName + "/Enqueue"
	PlayerServiceDequeueProcedure      = "/" + PlayerServiceName + "/Dequeue"
	PlayerServiceClearQueueProcedure   = "/" + PlayerServiceName + "/ClearQueue"
	PlayerServiceSubscribeProcedure    = "/" + PlayerServiceName + "/Subscribe"
)

// PlayerServiceHandler is implemented by the server side of PlayerService.
type PlayerServiceHandler interface {
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error)
	Play(context.Context, *connect.Request[PlayRequest]) (*connect.Response[CommandResponse], error)
	PlayPlaylist(context.Context, *connect.Request[PlayPlaylistRequest]) (*connect.Response[CommandResponse], error)
	Pause(context.Context, *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error)
	Resume(context.Context, *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error)
	Stop(context.Context, *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error)
	Next(context.Context, *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error)
	Previous(context.Context, *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error)
	Seek(context.Context, *connect.Request[SeekRequest]) (*connect.Response[CommandResponse], error)
	SetVolume(context.Context, *connect.Request[SetVolumeRequest]) (*connect.Response[CommandResponse], error)
	ToggleMute(context.Context, *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error)
	Enqueue(context.Context, *connect.Request[EnqueueRequest]) (*connect.Response[CommandResponse], error)
	Dequeue(context.Context, *connect.Request[DequeueRequest]) (*connect.Response[DequeueResponse], error)
	ClearQueue(context.Context, *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error)
	Subscribe(context.Context, *connect.Request[SubscribeRequest], *connect.ServerStream[Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself. Messages are exchanged as JSON.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayerServiceGetStatusProcedure, connect.NewUnaryHandler(PlayerServiceGetStatusProcedure, svc.GetStatus, opts...))
	mux.Handle(PlayerServicePlayProcedure, connect.NewUnaryHandler(PlayerServicePlayProcedure, svc.Play, opts...))
	mux.Handle(PlayerServicePlayPlaylistProcedure, connect.NewUnaryHandler(PlayerServicePlayPlaylistProcedure, svc.PlayPlaylist, opts...))
	mux.Handle(PlayerServicePauseProcedure, connect.NewUnaryHandler(PlayerServicePauseProcedure, svc.Pause, opts...))
	mux.Handle(PlayerServiceResumeProcedure, connect.NewUnaryHandler(PlayerServiceResumeProcedure, svc.Resume, opts...))
	mux.Handle(PlayerServiceStopProcedure, connect.NewUnaryHandler(PlayerServiceStopProcedure, svc.Stop, opts...))
	mux.Handle(PlayerServiceNextProcedure, connect.NewUnaryHandler(PlayerServiceNextProcedure, svc.Next, opts...))
	mux.Handle(PlayerServicePreviousProcedure, connect.NewUnaryHandler(PlayerServicePreviousProcedure, svc.Previous, opts...))
	mux.Handle(PlayerServiceSeekProcedure, connect.NewUnaryHandler(PlayerServiceSeekProcedure, svc.Seek, opts...))
	mux.Handle(PlayerServiceSetVolumeProcedure, connect.NewUnaryHandler(PlayerServiceSetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(PlayerServiceToggleMuteProcedure, connect.NewUnaryHandler(PlayerServiceToggleMuteProcedure, svc.ToggleMute, opts...))
	mux.Handle(PlayerServiceEnqueueProcedure, connect.NewUnaryHandler(PlayerServiceEnqueueProcedure, svc.Enqueue, opts...))
	mux.Handle(PlayerServiceDequeueProcedure, connect.NewUnaryHandler(PlayerServiceDequeueProcedure, svc.Dequeue, opts...))
	mux.Handle(PlayerServiceClearQueueProcedure, connect.NewUnaryHandler(PlayerServiceClearQueueProcedure, svc.ClearQueue, opts...))
	mux.Handle(PlayerServiceSubscribeProcedure, connect.NewServerStreamHandler(PlayerServiceSubscribeProcedure, svc.Subscribe, opts...))

	return "/" + PlayerServiceName + "/", mux
}

// PlayerServiceClient is a client for PlayerService.
type PlayerServiceClient struct {
	getStatus    *connect.Client[GetStatusRequest, GetStatusResponse]
	play         *connect.Client[PlayRequest, CommandResponse]
	playPlaylist *connect.Client[PlayPlaylistRequest, CommandResponse]
	pause        *connect.Client[CommandRequest, CommandResponse]
	resume       *connect.Client[CommandRequest, CommandResponse]
	stop         *connect.Client[CommandRequest, CommandResponse]
	next         *connect.Client[CommandRequest, CommandResponse]
	previous     *connect.Client[CommandRequest, CommandResponse]
	seek         *connect.Client[SeekRequest, CommandResponse]
	setVolume    *connect.Client[SetVolumeRequest, CommandResponse]
	toggleMute   *connect.Client[CommandRequest, CommandResponse]
	enqueue      *connect.Client[EnqueueRequest, CommandResponse]
	dequeue      *connect.Client[DequeueRequest, DequeueResponse]
	clearQueue   *connect.Client[CommandRequest, CommandResponse]
	subscribe    *connect.Client[SubscribeRequest, Notification]
}

// NewPlayerServiceClient constructs a client for PlayerService. baseURL is
// the server root, e.g. http://localhost:8090.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &PlayerServiceClient{
		getStatus:    connect.NewClient[GetStatusRequest, GetStatusResponse](httpClient, baseURL+PlayerServiceGetStatusProcedure, opts...),
		play:         connect.NewClient[PlayRequest, CommandResponse](httpClient, baseURL+PlayerServicePlayProcedure, opts...),
		playPlaylist: connect.NewClient[PlayPlaylistRequest, CommandResponse](httpClient, baseURL+PlayerServicePlayPlaylistProcedure, opts...),
		pause:        connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayerServicePauseProcedure, opts...),
		resume:       connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayerServiceResumeProcedure, opts...),
		stop:         connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayerServiceStopProcedure, opts...),
		next:         connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayerServiceNextProcedure, opts...),
		previous:     connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayerServicePreviousProcedure, opts...),
		seek:         connect.NewClient[SeekRequest, CommandResponse](httpClient, baseURL+PlayerServiceSeekProcedure, opts...),
		setVolume:    connect.NewClient[SetVolumeRequest, CommandResponse](httpClient, baseURL+PlayerServiceSetVolumeProcedure, opts...),
		toggleMute:   connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayerServiceToggleMuteProcedure, opts...),
		enqueue:      connect.NewClient[EnqueueRequest, CommandResponse](httpClient, baseURL+PlayerServiceEnqueueProcedure, opts...),
		dequeue:      connect.NewClient[DequeueRequest, DequeueResponse](httpClient, baseURL+PlayerServiceDequeueProcedure, opts...),
		clearQueue:   connect.NewClient[CommandRequest, CommandResponse](httpClient, baseURL+PlayerServiceClearQueueProcedure, opts...),
		subscribe:    connect.NewClient[SubscribeRequest, Notification](httpClient, baseURL+PlayerServiceSubscribeProcedure, opts...),
	}
}

func (c *PlayerServiceClient) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Play(ctx context.Context, req *connect.Request[PlayRequest]) (*connect.Response[CommandResponse], error) {
	return c.play.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) PlayPlaylist(ctx context.Context, req *connect.Request[PlayPlaylistRequest]) (*connect.Response[CommandResponse], error) {
	return c.playPlaylist.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Pause(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.pause.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Resume(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.resume.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Stop(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.stop.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Next(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Previous(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Seek(ctx context.Context, req *connect.Request[SeekRequest]) (*connect.Response[CommandResponse], error) {
	return c.seek.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) SetVolume(ctx context.Context, req *connect.Request[SetVolumeRequest]) (*connect.Response[CommandResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) ToggleMute(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.toggleMute.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Enqueue(ctx context.Context, req *connect.Request[EnqueueRequest]) (*connect.Response[CommandResponse], error) {
	return c.enqueue.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Dequeue(ctx context.Context, req *connect.Request[DequeueRequest]) (*connect.Response[DequeueResponse], error) {
	return c.dequeue.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) ClearQueue(ctx context.Context, req *connect.Request[CommandRequest]) (*connect.Response[CommandResponse], error) {
	return c.clearQueue.CallUnary(ctx, req)
}

func (c *PlayerServiceClient) Subscribe(ctx context.Context, req *connect.Request[SubscribeRequest]) (*connect.ServerStreamForClient[Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}
