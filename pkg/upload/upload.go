package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strconv"
	"time"

	"github.com/tauraamui/archbooth/pkg/recorder"
	"github.com/tauraamui/xerror"
)

const formField = "video"

var now = time.Now

// FileName names an upload after the moment it was sent.
func FileName(ext string) string {
	return fmt.Sprintf("video-%d%s", now().UnixNano()/int64(time.Millisecond), ext)
}

// HTTP posts the recording as a multipart form and reads the share
// url from the JSON response.
type HTTP struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewHTTP(url, token string, timeout time.Duration) *HTTP {
	return &HTTP{URL: url, Token: token, Client: &http.Client{Timeout: timeout}}
}

// describe lists what a receiver needs to know beyond the bytes,
// including whether the clip still has to be transcoded for phones.
func describe(blob recorder.Blob) map[string]string {
	return map[string]string{
		"fps":         strconv.Itoa(blob.FPS),
		"duration_ms": strconv.FormatInt(blob.Duration.Milliseconds(), 10),
		"transcode":   strconv.FormatBool(blob.NeedsTranscode()),
	}
}

type response struct {
	URL string `json:"url"`
}

func (u *HTTP) Upload(ctx context.Context, blob recorder.Blob) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	fields := describe(blob)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := form.WriteField(k, fields[k]); err != nil {
			return "", xerror.Errorf("unable to build upload form: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, FileName(blob.Format.Extension)))
	header.Set("Content-Type", blob.MediaType)
	part, err := form.CreatePart(header)
	if err != nil {
		return "", xerror.Errorf("unable to build upload form: %w", err)
	}
	if _, err := part.Write(blob.Data); err != nil {
		return "", xerror.Errorf("unable to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", xerror.Errorf("unable to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, &body)
	if err != nil {
		return "", xerror.Errorf("unable to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if len(u.Token) > 0 {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		return "", xerror.Errorf("unable to send recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body) //nolint
		return "", xerror.Errorf("upload endpoint responded %s", resp.Status)
	}

	r := response{}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", xerror.Errorf("unable to read upload response: %w", err)
	}
	if len(r.URL) == 0 {
		return "", xerror.New("upload response is missing url")
	}
	return r.URL, nil
}
