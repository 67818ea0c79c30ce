// Package torrentsupervisor owns the lifecycle of a locally spawned
// BitTorrent client subprocess: lazy spawn on first command, readiness
// detection via a stdout banner, a thin HTTP client against its local
// WebUI API, and idle-triggered shutdown once nothing remains to
// download.
package torrentsupervisor

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/omnicloud/mediacore/internal/signalwatch"
	"github.com/omnicloud/mediacore/internal/torrentextra"
)

// Command is the set of operations the Supervisor accepts. Each carries a
// reply channel so callers can await the outcome, matching the
// request/response shape signalwatch.Watcher is built for.
type Command struct {
	kind commandKind

	magnetOrURL string
	hash        string
	extra       torrentextra.Extra

	reply chan commandReply
}

type commandKind int

const (
	cmdAddTorrent commandKind = iota
	cmdRemoveTorrent
	cmdGetTorrentContents
	cmdSetExtra
	cmdUpdateTorrentList
)

type commandReply struct {
	contents []Contents
	err      error
}

// Supervisor is the caller-facing handle: send commands and read the
// latest known torrent list.
type Supervisor = signalwatch.Watcher[Command, []Info]

// Worker runs the supervisor's service loop. Construct with New and run
// its Run method in its own goroutine.
type Worker struct {
	profileDir string
	recv       *signalwatch.Receiver[Command, []Info]
	httpClient *http.Client

	proc *spawnedProcess
	api  *webAPI
}

// New constructs the Supervisor/worker pair. profileDir is where the
// subprocess's configuration and download state live; the subprocess
// itself is not spawned until the first command arrives.
func New(profileDir string) (Supervisor, *Worker) {
	watcher, receiver := signalwatch.New[Command, []Info](100, nil)
	w := &Worker{
		profileDir: profileDir,
		recv:       receiver,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	return watcher, w
}

// AddTorrent requests the subprocess start downloading urlOrMagnet tagged
// with extra, blocking until handled or ctx is done.
func AddTorrent(ctx context.Context, s Supervisor, urlOrMagnet string, extra torrentextra.Extra) error {
	reply := make(chan commandReply, 1)
	cmd := Command{kind: cmdAddTorrent, magnetOrURL: urlOrMagnet, extra: extra, reply: reply}
	if err := s.Send(ctx, cmd); err != nil {
		return err
	}
	return awaitReply(ctx, reply).err
}

// RemoveTorrent requests removal (and file deletion) of the torrent
// identified by hash.
func RemoveTorrent(ctx context.Context, s Supervisor, hash string) error {
	reply := make(chan commandReply, 1)
	cmd := Command{kind: cmdRemoveTorrent, hash: hash, reply: reply}
	if err := s.Send(ctx, cmd); err != nil {
		return err
	}
	return awaitReply(ctx, reply).err
}

// GetTorrentContents requests the file listing of the torrent identified
// by hash.
func GetTorrentContents(ctx context.Context, s Supervisor, hash string) ([]Contents, error) {
	reply := make(chan commandReply, 1)
	cmd := Command{kind: cmdGetTorrentContents, hash: hash, reply: reply}
	if err := s.Send(ctx, cmd); err != nil {
		return nil, err
	}
	r := awaitReply(ctx, reply)
	return r.contents, r.err
}

// SetExtra re-tags an existing torrent's category.
func SetExtra(ctx context.Context, s Supervisor, hash string, extra torrentextra.Extra) error {
	reply := make(chan commandReply, 1)
	cmd := Command{kind: cmdSetExtra, hash: hash, extra: extra, reply: reply}
	if err := s.Send(ctx, cmd); err != nil {
		return err
	}
	return awaitReply(ctx, reply).err
}

// UpdateTorrentList requests a fresh poll of the subprocess's torrent
// list, publishing the result to every watcher and potentially idling the
// subprocess down afterward.
func UpdateTorrentList(ctx context.Context, s Supervisor) error {
	reply := make(chan commandReply, 1)
	cmd := Command{kind: cmdUpdateTorrentList, reply: reply}
	if err := s.Send(ctx, cmd); err != nil {
		return err
	}
	return awaitReply(ctx, reply).err
}

func awaitReply(ctx context.Context, reply chan commandReply) commandReply {
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return commandReply{err: ctx.Err()}
	}
}

// pollInterval is how often the supervisor polls /torrents/info on its own,
// independent of any caller-issued UpdateTorrentList, so that a running
// download's progress and eventual completion become visible to the
// Processor without requiring an external poller.
const pollInterval = 2 * time.Second

// Run drives the service loop until the command channel closes, the
// shutdown condition shared by every service, or until ctx is done; either
// way a running subprocess is killed. The subprocess is spawned lazily on
// the first command that needs it and killed again once idle-detection
// decides nothing remains to download. Alongside commands, Run polls the
// torrent list on pollInterval, but only while the subprocess is up;
// polling never spawns it on its own.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	cmds := w.recv.Commands()
	for {
		select {
		case cmd, ok := <-cmds:
			if !ok {
				if w.proc != nil {
					if err := w.proc.kill(); err != nil {
						log.Printf("torrentsupervisor: shutdown: %v", err)
					}
				}
				return
			}
			w.handle(ctx, cmd)
		case <-ticker.C:
			if w.proc == nil {
				continue
			}
			if err := w.updateTorrentList(ctx); err != nil {
				log.Printf("torrentsupervisor: periodic poll: %v", err)
			}
		case <-ctx.Done():
			if w.proc != nil {
				if err := w.proc.kill(); err != nil {
					log.Printf("torrentsupervisor: shutdown: %v", err)
				}
			}
			return
		}
	}
}

func (w *Worker) handle(ctx context.Context, cmd Command) {
	switch cmd.kind {
	case cmdAddTorrent:
		err := w.withAPI(ctx, func(api *webAPI) error {
			return api.AddTorrent(ctx, cmd.magnetOrURL, cmd.extra)
		})
		reply(cmd.reply, commandReply{err: err})
	case cmdRemoveTorrent:
		err := w.withAPI(ctx, func(api *webAPI) error {
			return api.RemoveTorrent(ctx, cmd.hash)
		})
		reply(cmd.reply, commandReply{err: err})
	case cmdGetTorrentContents:
		var contents []Contents
		err := w.withAPI(ctx, func(api *webAPI) error {
			var innerErr error
			contents, innerErr = api.GetTorrentContents(ctx, cmd.hash)
			return innerErr
		})
		reply(cmd.reply, commandReply{contents: contents, err: err})
	case cmdSetExtra:
		err := w.withAPI(ctx, func(api *webAPI) error {
			return api.SetExtra(ctx, cmd.hash, cmd.extra)
		})
		reply(cmd.reply, commandReply{err: err})
	case cmdUpdateTorrentList:
		err := w.updateTorrentList(ctx)
		reply(cmd.reply, commandReply{err: err})
	}
}

func reply(ch chan commandReply, r commandReply) {
	if ch == nil {
		return
	}
	ch <- r
}

// withAPI lazily spawns the subprocess (if Down) before invoking fn against
// its WebUI client.
func (w *Worker) withAPI(ctx context.Context, fn func(*webAPI) error) error {
	if w.proc == nil {
		proc, err := spawn(ctx, w.profileDir)
		if err != nil {
			return err
		}
		w.proc = proc
		w.api = newWebAPI(w.httpClient, proc.port)
	}
	return fn(w.api)
}

// updateTorrentList polls the subprocess (spawning it if necessary),
// publishes the fresh list, and kills the subprocess when the list is
// empty or every torrent has reached a stopped/seeding state
// (State.ShouldStop). The next command that needs it respawns it.
func (w *Worker) updateTorrentList(ctx context.Context) error {
	var list []Info
	err := w.withAPI(ctx, func(api *webAPI) error {
		var innerErr error
		list, innerErr = api.GetTorrentList(ctx)
		return innerErr
	})
	if err != nil {
		return err
	}

	w.recv.Publish(list)

	if allIdle(list) && w.proc != nil {
		if err := w.proc.kill(); err != nil {
			log.Printf("torrentsupervisor: idle shutdown: %v", err)
		}
		w.proc = nil
		w.api = nil
	}
	return nil
}

func allIdle(list []Info) bool {
	for _, info := range list {
		if !info.State.ShouldStop() {
			return false
		}
	}
	return true
}
