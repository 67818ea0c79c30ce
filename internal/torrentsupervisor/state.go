package torrentsupervisor

// State is the torrent subprocess's own notion of a torrent's lifecycle
// stage. Values mirror the wire strings the subprocess's /torrents/info
// endpoint returns.
type State string

const (
	StateError              State = "error"
	StateMissingFiles       State = "missingFiles"
	StateUploading          State = "uploading"
	StatePausedUP           State = "pausedUP"
	StateQueuedUP           State = "queuedUP"
	StateStalledUP          State = "stalledUP"
	StateCheckingUP         State = "checkingUP"
	StateForcedUP           State = "forcedUP"
	StateAllocating         State = "allocating"
	StateDownloading        State = "downloading"
	StateMetaDL             State = "metaDL"
	StatePausedDL           State = "pausedDL"
	StateQueuedDL           State = "queuedDL"
	StateStalledDL          State = "stalledDL"
	StateCheckingDL         State = "checkingDL"
	StateForcedDL           State = "forcedDL"
	StateCheckingResumeData State = "checkingResumeData"
	StateMoving             State = "moving"
	StateUnknown            State = "unknown"
	StateStoppedDL          State = "stoppedDL"
)

// IsDone reports whether s is one of the states the processor treats as a
// finished, removable download. Deliberately stricter than
// "progress == 1.0": only Uploading and StalledUP count.
func (s State) IsDone() bool {
	return s == StateUploading || s == StateStalledUP
}

// IsFaulty reports whether s is one of the error/missing-files states the
// Processor queues for removal without any preparation attempt. A torrent
// whose files later reappear on disk is still queued for removal every
// time its state is observed as MissingFiles.
func (s State) IsFaulty() bool {
	return s == StateError || s == StateMissingFiles
}

// IsPaused reports whether the torrent is paused or stopped by the user.
func (s State) IsPaused() bool {
	return s == StatePausedDL || s == StatePausedUP || s == StateStoppedDL
}

// ShouldStop reports whether s is a state in which the subprocess is not
// actively moving data, used by idle-detection to decide whether the
// subprocess can be killed.
func (s State) ShouldStop() bool {
	switch s {
	case StateError, StateUploading, StateMissingFiles, StateStoppedDL,
		StatePausedUP, StatePausedDL, StateStalledUP:
		return true
	default:
		return false
	}
}

// Info is one torrent record as returned by the subprocess's
// /torrents/info endpoint.
type Info struct {
	AddedOn      int64    `json:"added_on"`
	Name         string   `json:"name"`
	AmountLeft   int64    `json:"amount_left"`
	Category     string   `json:"category"`
	Completed    int64    `json:"completed"`
	CompletionOn int64    `json:"completion_on"`
	ContentPath  string   `json:"content_path"`
	DlSpeed      int64    `json:"dlspeed"`
	Downloaded   int64    `json:"downloaded"`
	ETA          int64    `json:"eta"`
	Hash         string   `json:"hash"`
	MagnetURI    string   `json:"magnet_uri"`
	NumSeeds     int      `json:"num_seeds"`
	Progress     float32  `json:"progress"`
	RootPath     string   `json:"root_path"`
	SavePath     string   `json:"save_path"`
	Size         int64    `json:"size"`
	State        State    `json:"state"`
	Tags         []string `json:"-"` // comma-separated on the wire; see UnmarshalJSON
	Uploaded     int64    `json:"uploaded"`
	UpSpeed      int64    `json:"upspeed"`
}

// Contents is one file entry as returned by /torrents/files.
type Contents struct {
	Index        int     `json:"index"`
	IsSeed       *bool   `json:"is_seed"`
	Name         string  `json:"name"`
	PieceRange   []int   `json:"piece_range"`
	Priority     int     `json:"priority"`
	Progress     float32 `json:"progress"`
	Size         int64   `json:"size"`
	Availability float32 `json:"availability"`
}
