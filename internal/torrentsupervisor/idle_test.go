package torrentsupervisor

import "testing"

func TestAllIdleEmptyListIsIdle(t *testing.T) {
	if !allIdle(nil) {
		t.Fatal("an empty torrent list should be considered idle")
	}
}

func TestAllIdleRequiresEveryTorrentDone(t *testing.T) {
	list := []Info{{State: StateUploading}, {State: StateDownloading}}
	if allIdle(list) {
		t.Fatal("a list with an actively downloading torrent should not be idle")
	}
}

func TestAllIdleAllDoneStates(t *testing.T) {
	list := []Info{{State: StateUploading}, {State: StateStalledUP}}
	if !allIdle(list) {
		t.Fatal("a list where every torrent is Uploading/StalledUP should be idle")
	}
}

func TestAllIdlePausedTorrentsAreIdle(t *testing.T) {
	list := []Info{{State: StatePausedDL}, {State: StatePausedUP}}
	if !allIdle(list) {
		t.Fatal("a list where every torrent is paused should be idle")
	}
}

func TestAllIdleProgressCompleteButWrongStateIsNotIdle(t *testing.T) {
	// Progress == 1.0 alone must not count; checkingUP is still active.
	list := []Info{{State: StateCheckingUP, Progress: 1.0}}
	if allIdle(list) {
		t.Fatal("checkingUP with full progress should still not be considered idle")
	}
}

func TestStateIsFaultyAndShouldStop(t *testing.T) {
	if !StateError.IsFaulty() || !StateMissingFiles.IsFaulty() {
		t.Fatal("error and missingFiles states should be faulty")
	}
	if StateDownloading.IsFaulty() {
		t.Fatal("downloading should not be faulty")
	}
	if !StateStalledUP.ShouldStop() || !StatePausedDL.ShouldStop() {
		t.Fatal("stalledUP and pausedDL should report ShouldStop")
	}
	if StateDownloading.ShouldStop() {
		t.Fatal("downloading should not report ShouldStop")
	}
}
