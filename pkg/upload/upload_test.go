package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tauraamui/archbooth/pkg/configdef"
	"github.com/tauraamui/archbooth/pkg/recorder"
)

func overloadNow(t time.Time) func() {
	ref := now
	now = func() time.Time { return t }
	return func() { now = ref }
}

func testBlob() recorder.Blob {
	return recorder.Blob{
		Data:      []byte("not really a video"),
		MediaType: "video/webm",
		Format:    configdef.Format{Container: "webm", Codec: "vp8", MediaType: "video/webm", Extension: ".webm"},
		FPS:       30,
		Duration:  2500 * time.Millisecond,
	}
}

func TestFileNameUsesUnixMillis(t *testing.T) {
	defer overloadNow(time.Unix(1700000000, 123*int64(time.Millisecond)))()
	assert.Equal(t, "video-1700000000123.webm", FileName(".webm"))
}

func TestHTTPUploadSendsMultipartVideo(t *testing.T) {
	defer overloadNow(time.Unix(1700000000, 0))()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("video")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		assert.Equal(t, "video-1700000000000.webm", header.Filename)
		assert.Equal(t, "video/webm", header.Header.Get("Content-Type"))
		assert.Equal(t, "not really a video", string(data))
		assert.Equal(t, "30", r.FormValue("fps"))
		assert.Equal(t, "2500", r.FormValue("duration_ms"))
		assert.Equal(t, "false", r.FormValue("transcode"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://share.example.com/v/42"}`)) //nolint
	}))
	defer srv.Close()

	url, err := NewHTTP(srv.URL, "s3cret", time.Second).Upload(context.Background(), testBlob())
	require.NoError(t, err)
	assert.Equal(t, "https://share.example.com/v/42", url)
}

func TestHTTPUploadFlagsMotionJPEGForTranscoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("video")
		require.NoError(t, err)
		assert.Equal(t, recorder.MJPEGFormat.MediaType, header.Header.Get("Content-Type"))
		assert.Equal(t, "true", r.FormValue("transcode"))
		w.Write([]byte(`{"url":"https://share.example.com/v/7"}`)) //nolint
	}))
	defer srv.Close()

	blob := testBlob()
	blob.Format, blob.MediaType = recorder.MJPEGFormat, recorder.MJPEGFormat.MediaType
	_, err := NewHTTP(srv.URL, "", time.Second).Upload(context.Background(), blob)
	assert.NoError(t, err)
}

func TestHTTPUploadWithoutTokenSendsNoAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"url":"https://share.example.com/v/1"}`)) //nolint
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, "", time.Second).Upload(context.Background(), testBlob())
	assert.NoError(t, err)
}

func TestHTTPUploadFailures(t *testing.T) {
	tests := []struct {
		title   string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, `oops`, "upload endpoint responded 500 Internal Server Error"},
		{"missing url", http.StatusOK, `{}`, "upload response is missing url"},
		{"bad json", http.StatusOK, `not json`, "unable to read upload response"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint
			}))
			defer srv.Close()

			url, err := NewHTTP(srv.URL, "", time.Second).Upload(context.Background(), testBlob())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, url)
		})
	}
}

type memObject struct {
	bytes.Buffer
	closed   bool
	closeErr error
}

func (m *memObject) Close() error {
	m.closed = true
	return m.closeErr
}

func TestGCSUploadWritesObjectAndReturnsPublicURL(t *testing.T) {
	defer overloadNow(time.Unix(1700000000, 0))()

	obj := &memObject{}
	var gotName, gotType string
	var gotMetadata map[string]string
	g := &GCS{
		bucket: "booth-clips",
		prefix: "event one",
		newWriter: func(ctx context.Context, object, contentType string, metadata map[string]string) io.WriteCloser {
			gotName, gotType, gotMetadata = object, contentType, metadata
			return obj
		},
	}

	url, err := g.Upload(context.Background(), testBlob())
	require.NoError(t, err)
	assert.Equal(t, "event one/video-1700000000000.webm", gotName)
	assert.Equal(t, "video/webm", gotType)
	assert.Equal(t, map[string]string{"fps": "30", "duration_ms": "2500", "transcode": "false"}, gotMetadata)
	assert.Equal(t, "not really a video", obj.String())
	assert.True(t, obj.closed)
	assert.Equal(t, "https://storage.googleapis.com/booth-clips/event%20one/video-1700000000000.webm", url)
	assert.NoError(t, g.Close())
}

func TestGCSUploadReportsCloseFailure(t *testing.T) {
	g := &GCS{
		bucket: "booth-clips",
		newWriter: func(ctx context.Context, object, contentType string, metadata map[string]string) io.WriteCloser {
			return &memObject{closeErr: errors.New("permission denied")}
		},
	}

	_, err := g.Upload(context.Background(), testBlob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
