package torrentsupervisor

import (
	"strings"
	"testing"
)

func TestParseReadinessLine(t *testing.T) {
	cases := []struct {
		line     string
		wantPort int
		wantOK   bool
	}{
		{"2026-07-31 To control the program, access the WebUI at http://127.0.0.1:8472", 8472, true},
		{":hey", 0, false},
		{"nothing relevant here", 0, false},
		{"To control the program, access the WebUI at http://127.0.0.1:", 0, false},
		{"To control the program, access the WebUI at http://127.0.0.1:not-a-port", 0, false},
	}
	for _, c := range cases {
		port, ok := parseReadinessLine(c.line)
		if ok != c.wantOK || (ok && port != c.wantPort) {
			t.Errorf("parseReadinessLine(%q) = (%d, %v), want (%d, %v)", c.line, port, ok, c.wantPort, c.wantOK)
		}
	}
}

func TestWaitForReadinessFindsBannerAmongOtherLines(t *testing.T) {
	r := strings.NewReader("starting up\nloading torrents\nTo control the program, access the WebUI at http://127.0.0.1:9999\nmore noise\n")
	port, err := waitForReadiness(r)
	if err != nil {
		t.Fatalf("waitForReadiness: %v", err)
	}
	if port != 9999 {
		t.Fatalf("port = %d, want 9999", port)
	}
}

func TestWaitForReadinessEOFWithoutBannerIsError(t *testing.T) {
	r := strings.NewReader("starting up\nfailed to bind\n")
	if _, err := waitForReadiness(r); err == nil {
		t.Fatal("expected error when stream ends without a readiness banner")
	}
}
