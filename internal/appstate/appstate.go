// Package appstate bundles the process-wide handles an HTTP layer would
// clone into every request handler: the three command-capable
// signal/watch handles (Supervisor, Crawler, Subtitle) plus the
// publish-only ProcessingList watcher and the media root path. This
// package exists so the handles constructed in cmd/mediacore have one
// well-known shape to be handed to such a layer.
package appstate

import (
	"github.com/omnicloud/mediacore/internal/crawl"
	"github.com/omnicloud/mediacore/internal/processor"
	"github.com/omnicloud/mediacore/internal/subtitle"
	"github.com/omnicloud/mediacore/internal/torrentsupervisor"
)

// AppState is a small value type: every field is itself a cheap
// sender/reader handle, so AppState is meant to be copied by value into
// each handler.
type AppState struct {
	Supervisor torrentsupervisor.Supervisor
	Crawler    crawl.Crawler
	Subtitle   subtitle.Service
	Processing processor.ProcessingListWatcher

	MediaRoot string
}
