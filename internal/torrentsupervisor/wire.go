package torrentsupervisor

import (
	"encoding/json"
	"strings"
)

// infoWire mirrors Info's JSON shape except for Tags, which the subprocess
// sends as a single comma-separated string rather than a JSON array.
type infoWire struct {
	AddedOn      int64   `json:"added_on"`
	Name         string  `json:"name"`
	AmountLeft   int64   `json:"amount_left"`
	Category     string  `json:"category"`
	Completed    int64   `json:"completed"`
	CompletionOn int64   `json:"completion_on"`
	ContentPath  string  `json:"content_path"`
	DlSpeed      int64   `json:"dlspeed"`
	Downloaded   int64   `json:"downloaded"`
	ETA          int64   `json:"eta"`
	Hash         string  `json:"hash"`
	MagnetURI    string  `json:"magnet_uri"`
	NumSeeds     int     `json:"num_seeds"`
	Progress     float32 `json:"progress"`
	RootPath     string  `json:"root_path"`
	SavePath     string  `json:"save_path"`
	Size         int64   `json:"size"`
	State        State   `json:"state"`
	Tags         string  `json:"tags"`
	Uploaded     int64   `json:"uploaded"`
	UpSpeed      int64   `json:"upspeed"`
}

func (i Info) MarshalJSON() ([]byte, error) {
	return json.Marshal(infoWire{
		AddedOn: i.AddedOn, Name: i.Name, AmountLeft: i.AmountLeft, Category: i.Category,
		Completed: i.Completed, CompletionOn: i.CompletionOn, ContentPath: i.ContentPath,
		DlSpeed: i.DlSpeed, Downloaded: i.Downloaded, ETA: i.ETA, Hash: i.Hash,
		MagnetURI: i.MagnetURI, NumSeeds: i.NumSeeds, Progress: i.Progress,
		RootPath: i.RootPath, SavePath: i.SavePath, Size: i.Size, State: i.State,
		Tags: strings.Join(i.Tags, ","), Uploaded: i.Uploaded, UpSpeed: i.UpSpeed,
	})
}

func (i *Info) UnmarshalJSON(data []byte) error {
	var w infoWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = Info{
		AddedOn: w.AddedOn, Name: w.Name, AmountLeft: w.AmountLeft, Category: w.Category,
		Completed: w.Completed, CompletionOn: w.CompletionOn, ContentPath: w.ContentPath,
		DlSpeed: w.DlSpeed, Downloaded: w.Downloaded, ETA: w.ETA, Hash: w.Hash,
		MagnetURI: w.MagnetURI, NumSeeds: w.NumSeeds, Progress: w.Progress,
		RootPath: w.RootPath, SavePath: w.SavePath, Size: w.Size, State: w.State,
		Uploaded: w.Uploaded, UpSpeed: w.UpSpeed,
	}
	if w.Tags != "" {
		i.Tags = strings.Split(w.Tags, ",")
	}
	return nil
}
