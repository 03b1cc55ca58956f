// Package main provides the player control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/maxify/internal/api/connect"
	"github.com/osa030/maxify/internal/domain/track"
)

var (
	app    = kingpin.New("maxify-playerctl", "maxify player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8090").String()
	token  = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show player status")

	// play command
	playCmd     = app.Command("play", "Play a track")
	playTrackID = playCmd.Arg("track-id", "Track ID").Required().String()
	playQueue   = playCmd.Flag("queue", "Replace the queue with these track IDs").Strings()

	// playlist command
	playlistCmd   = app.Command("playlist", "Play a playlist")
	playlistID    = playlistCmd.Arg("playlist-id", "Playlist ID").Required().String()
	playlistStart = playlistCmd.Flag("start", "Track ID to start from").String()

	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	stopCmd   = app.Command("stop", "Stop playback and rewind")
	nextCmd   = app.Command("next", "Play the next queue entry")
	prevCmd   = app.Command("prev", "Play the previous queue entry").Alias("previous")

	// seek command
	seekCmd     = app.Command("seek", "Seek within the current track")
	seekSeconds = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()

	// volume command
	volumeCmd   = app.Command("volume", "Set the volume")
	volumeLevel = volumeCmd.Arg("level", "Volume between 0 and 1").Required().Float64()

	muteCmd = app.Command("mute", "Toggle mute")

	// enqueue command
	enqueueCmd = app.Command("enqueue", "Append tracks to the queue")
	enqueueIDs = enqueueCmd.Arg("track-id", "Track IDs").Required().Strings()

	// dequeue command
	dequeueCmd   = app.Command("dequeue", "Remove a queue entry")
	dequeueIndex = dequeueCmd.Arg("index", "Queue index (0-based)").Required().Int()

	clearCmd = app.Command("clear", "Clear the queue")

	// watch command
	watchCmd = app.Command("watch", "Stream status notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Check control token
	if *token == "" {
		fmt.Println("Error: control token is required (use --token or CONTROL_TOKEN env)")
		os.Exit(1)
	}

	// Create client
	client := apiconnect.NewPlayerServiceClient(
		http.DefaultClient,
		*server,
	)

	ctx := context.Background()

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		resp, err := client.GetStatus(ctx, newRequest(&apiconnect.GetStatusRequest{}))
		exitOnError(err)
		printStatus(resp.Msg.Status)
	case playCmd.FullCommand():
		req := &apiconnect.PlayRequest{TrackID: *playTrackID}
		if len(*playQueue) > 0 {
			req.QueueTrackIDs = *playQueue
		}
		report(client.Play(ctx, newRequest(req)))
	case playlistCmd.FullCommand():
		report(client.PlayPlaylist(ctx, newRequest(&apiconnect.PlayPlaylistRequest{
			PlaylistID:   *playlistID,
			StartTrackID: *playlistStart,
		})))
	case pauseCmd.FullCommand():
		report(client.Pause(ctx, newRequest(&apiconnect.CommandRequest{})))
	case resumeCmd.FullCommand():
		report(client.Resume(ctx, newRequest(&apiconnect.CommandRequest{})))
	case stopCmd.FullCommand():
		report(client.Stop(ctx, newRequest(&apiconnect.CommandRequest{})))
	case nextCmd.FullCommand():
		report(client.Next(ctx, newRequest(&apiconnect.CommandRequest{})))
	case prevCmd.FullCommand():
		report(client.Previous(ctx, newRequest(&apiconnect.CommandRequest{})))
	case seekCmd.FullCommand():
		report(client.Seek(ctx, newRequest(&apiconnect.SeekRequest{Seconds: *seekSeconds})))
	case volumeCmd.FullCommand():
		report(client.SetVolume(ctx, newRequest(&apiconnect.SetVolumeRequest{Level: *volumeLevel})))
	case muteCmd.FullCommand():
		report(client.ToggleMute(ctx, newRequest(&apiconnect.CommandRequest{})))
	case enqueueCmd.FullCommand():
		report(client.Enqueue(ctx, newRequest(&apiconnect.EnqueueRequest{TrackIDs: *enqueueIDs})))
	case dequeueCmd.FullCommand():
		resp, err := client.Dequeue(ctx, newRequest(&apiconnect.DequeueRequest{Index: *dequeueIndex}))
		exitOnError(err)
		if !resp.Msg.Removed {
			fmt.Printf("Nothing at index %d\n", *dequeueIndex)
		}
		printStatus(resp.Msg.Status)
	case clearCmd.FullCommand():
		report(client.ClearQueue(ctx, newRequest(&apiconnect.CommandRequest{})))
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

// newRequest wraps msg and attaches the control token.
func newRequest[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(apiconnect.ControlTokenHeader, *token)
	return req
}

func exitOnError(err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func report(resp *connect.Response[apiconnect.CommandResponse], err error) {
	exitOnError(err)
	printStatus(resp.Msg.Status)
}

func watch(ctx context.Context, client *apiconnect.PlayerServiceClient) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.Subscribe(ctx, newRequest(&apiconnect.SubscribeRequest{}))
	exitOnError(err)
	defer stream.Close()

	fmt.Println("Watching player status. Press Ctrl+C to exit.")

	// Receive notifications
	for stream.Receive() {
		n := stream.Msg()
		fmt.Printf("\n[Sequence: %d] %s %s\n", n.SequenceNo, n.Timestamp.Format("15:04:05"), n.Type)
		printStatus(n.Status)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printStatus(s *apiconnect.Status) {
	if s == nil {
		return
	}

	fmt.Printf("State: %s\n", s.State)
	if s.CurrentTrack != nil {
		fmt.Printf("Track: %s - %s (%s)\n", s.CurrentTrack.Artist, s.CurrentTrack.Title, s.CurrentTrack.ID)
		fmt.Printf("Time: %s / %s\n", track.FormatSeconds(s.CurrentTime), track.FormatSeconds(s.Duration))
	} else {
		fmt.Println("No track selected")
	}
	fmt.Printf("Volume: %.0f%%\n", s.Volume*100)
	if s.LastError != "" {
		fmt.Printf("Error: %s\n", s.LastError)
	}

	if len(s.Queue) == 0 {
		fmt.Println("Queue: empty")
		return
	}
	fmt.Printf("Queue (%d):\n", len(s.Queue))
	for i, t := range s.Queue {
		marker := " "
		if i == s.Cursor {
			marker = ">"
		}
		fmt.Printf(" %s %2d  %s - %s [%s]\n", marker, i, t.Artist, t.Title, t.FormatDuration())
	}
}
