package torrentsupervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/omnicloud/mediacore/internal/torrentextra"
)

// webAPIError splits WebUI failures into three buckets: non-2xx status
// (status code preserved for callers distinguishing 404), transport
// failure, and deserialization failure. The supervisor never retries;
// retries are the caller's policy.
type webAPIError struct {
	kind       errorKind
	statusCode int
	msg        string
}

type errorKind int

const (
	ErrTransport errorKind = iota
	ErrNonOKStatus
	ErrDeserialize
)

func (e *webAPIError) Error() string { return e.msg }

// Kind reports which of the three taxonomy buckets this error falls into.
func Kind(err error) (errorKind, bool) {
	var w *webAPIError
	if e, ok := err.(*webAPIError); ok {
		w = e
	} else {
		return 0, false
	}
	return w.kind, true
}

// StatusCode returns the HTTP status code carried by a non-2xx error, or 0
// if err does not carry one.
func StatusCode(err error) int {
	if w, ok := err.(*webAPIError); ok {
		return w.statusCode
	}
	return 0
}

// webAPI is the localhost-only HTTP client for the subprocess's WebUI API.
type webAPI struct {
	httpClient *http.Client
	port       int
}

func newWebAPI(httpClient *http.Client, port int) *webAPI {
	return &webAPI{httpClient: httpClient, port: port}
}

func (a *webAPI) baseURL(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d/api/v2/%s", a.port, path)
}

func (a *webAPI) doForm(ctx context.Context, method, path string, form url.Values) (string, error) {
	var body io.Reader
	target := a.baseURL(path)
	if method == http.MethodGet {
		target += "?" + form.Encode()
	} else {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return "", &webAPIError{kind: ErrTransport, msg: fmt.Sprintf("build request: %v", err)}
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &webAPIError{kind: ErrTransport, msg: fmt.Sprintf("call %s: %v", path, err)}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &webAPIError{kind: ErrTransport, msg: fmt.Sprintf("read response body for %s: %v", path, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &webAPIError{
			kind:       ErrNonOKStatus,
			statusCode: resp.StatusCode,
			msg:        fmt.Sprintf("non-2xx status %d calling %s", resp.StatusCode, path),
		}
	}

	return string(text), nil
}

func encodeExtra(extra torrentextra.Extra) (string, error) {
	encoded, err := torrentextra.Encode(extra)
	if err != nil {
		return "", &webAPIError{kind: ErrDeserialize, msg: fmt.Sprintf("encode category: %v", err)}
	}
	return encoded, nil
}

// AddTorrent adds a torrent by URL/magnet, encoding extra into its category
// field and ensuring that category exists before it is assigned. Any
// response body other than the exact string "Ok." is an error.
func (a *webAPI) AddTorrent(ctx context.Context, urlOrMagnet string, extra torrentextra.Extra) error {
	category, err := encodeExtra(extra)
	if err != nil {
		return err
	}
	if err := a.createCategory(ctx, category); err != nil {
		return err
	}

	form := url.Values{
		"urls":        {urlOrMagnet},
		"category":    {category},
		"root_folder": {"true"},
	}
	result, err := a.doForm(ctx, http.MethodPost, "torrents/add", form)
	if err != nil {
		return err
	}
	if result != "Ok." {
		return &webAPIError{kind: ErrNonOKStatus, msg: fmt.Sprintf("add torrent: API returned non-'Ok.' body %q", result)}
	}
	return nil
}

// RemoveTorrent removes a torrent and deletes its files.
func (a *webAPI) RemoveTorrent(ctx context.Context, hash string) error {
	form := url.Values{"hashes": {hash}, "deleteFiles": {"true"}}
	_, err := a.doForm(ctx, http.MethodPost, "torrents/delete", form)
	return err
}

// GetTorrentContents returns the file list of a torrent.
func (a *webAPI) GetTorrentContents(ctx context.Context, hash string) ([]Contents, error) {
	form := url.Values{"hash": {hash}}
	text, err := a.doForm(ctx, http.MethodGet, "torrents/files", form)
	if err != nil {
		return nil, err
	}
	var contents []Contents
	if err := json.Unmarshal([]byte(text), &contents); err != nil {
		return nil, &webAPIError{kind: ErrDeserialize, msg: fmt.Sprintf("decode torrent contents: %v", err)}
	}
	return contents, nil
}

// createCategory ensures the given category string exists before it is
// assigned to a torrent (required by the subprocess's API).
func (a *webAPI) createCategory(ctx context.Context, category string) error {
	form := url.Values{"category": {category}}
	_, err := a.doForm(ctx, http.MethodPost, "torrents/createCategory", form)
	return err
}

// SetExtra re-encodes and swaps the category on an existing torrent.
func (a *webAPI) SetExtra(ctx context.Context, hash string, extra torrentextra.Extra) error {
	category, err := encodeExtra(extra)
	if err != nil {
		return err
	}
	if err := a.createCategory(ctx, category); err != nil {
		return err
	}
	form := url.Values{"hashes": {hash}, "category": {category}}
	_, err = a.doForm(ctx, http.MethodPost, "torrents/setCategory", form)
	return err
}

// GetTorrentList fetches the full torrent list.
func (a *webAPI) GetTorrentList(ctx context.Context) ([]Info, error) {
	text, err := a.doForm(ctx, http.MethodGet, "torrents/info", url.Values{})
	if err != nil {
		return nil, err
	}
	var list []Info
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, &webAPIError{kind: ErrDeserialize, msg: fmt.Sprintf("decode torrent list: %v", err)}
	}
	return list, nil
}
