package camera_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tauraamui/archbooth/pkg/camera"
	"github.com/tauraamui/archbooth/pkg/video/videobackend"
	"github.com/tauraamui/archbooth/pkg/video/videoclip"
	"github.com/tauraamui/archbooth/pkg/video/videoframe"
)

type testVideoBackend struct {
	onConnectError error
	conn           *testVideoConnection
}

func (tvb *testVideoBackend) OpenCamera(ctx context.Context, c videobackend.Constraints) (videobackend.Connection, error) {
	if tvb.onConnectError != nil {
		return nil, tvb.onConnectError
	}
	return tvb.conn, nil
}

func (tvb *testVideoBackend) OpenBackground(ctx context.Context, path string) (videobackend.Connection, error) {
	return tvb.OpenCamera(ctx, videobackend.Constraints{})
}

func (tvb *testVideoBackend) NewFrame() videoframe.Frame { return &testVideoFrame{} }

func (tvb *testVideoBackend) Encoders() []videoclip.Encoder { return nil }

func (tvb *testVideoBackend) NewDisplay(string) (videobackend.Display, error) { return nil, nil }

type testVideoFrame struct {
	img image.Image
}

func (tvf *testVideoFrame) DataRef() interface{} { return &tvf.img }

func (tvf *testVideoFrame) Dimensions() videoframe.Dimensions {
	if tvf.img == nil {
		return videoframe.Dimensions{}
	}
	return videoframe.Dimensions{W: tvf.img.Bounds().Dx(), H: tvf.img.Bounds().Dy()}
}

func (tvf *testVideoFrame) Image() (image.Image, error) { return tvf.img, nil }

func (tvf *testVideoFrame) Close() {}

type testVideoConnection struct {
	mu          sync.Mutex
	size        image.Point
	reads       int
	emptyReads  int
	onReadError error
	closed      int
	closeError  error
}

func (tvc *testVideoConnection) UUID() string { return "test-conn" }

func (tvc *testVideoConnection) Read(frame videoframe.Frame) error {
	tvc.mu.Lock()
	defer tvc.mu.Unlock()
	time.Sleep(time.Millisecond)
	tvc.reads++
	if tvc.onReadError != nil {
		return tvc.onReadError
	}
	if tvc.reads <= tvc.emptyReads {
		return nil
	}
	ref := frame.DataRef().(*image.Image)
	*ref = image.NewRGBA(image.Rectangle{Max: tvc.size})
	return nil
}

func (tvc *testVideoConnection) IsOpen() bool { return true }

func (tvc *testVideoConnection) Close() error {
	tvc.mu.Lock()
	defer tvc.mu.Unlock()
	tvc.closed++
	return tvc.closeError
}

func (tvc *testVideoConnection) closeCount() int {
	tvc.mu.Lock()
	defer tvc.mu.Unlock()
	return tvc.closed
}

func TestAcquireReturnsDeviceErrorWhenCameraMissing(t *testing.T) {
	backend := &testVideoBackend{onConnectError: errors.New("no such device")}
	manager := camera.NewManager(backend)

	feed, err := manager.Acquire(context.Background(), camera.Constraints{Device: "0"})
	assert.Nil(t, feed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, camera.ErrDevice))
	assert.Contains(t, err.Error(), "no such device")
}

func TestFeedBecomesReadyOnlyAfterNonEmptyFrame(t *testing.T) {
	is := is.New(t)
	conn := &testVideoConnection{size: image.Pt(64, 48), emptyReads: 3}
	manager := camera.NewManager(&testVideoBackend{conn: conn})

	feed, err := manager.Acquire(context.Background(), camera.Constraints{Device: "0"})
	is.NoErr(err)
	defer feed.Release()

	assert.Eventually(t, feed.Ready, 2*time.Second, time.Millisecond)
	is.Equal(feed.Latest().Bounds().Size(), image.Pt(64, 48))
}

func TestFeedNeverReadyWhileReadsFail(t *testing.T) {
	is := is.New(t)
	conn := &testVideoConnection{onReadError: errors.New("still warming up")}
	manager := camera.NewManager(&testVideoBackend{conn: conn})

	feed, err := manager.Acquire(context.Background(), camera.Constraints{})
	is.NoErr(err)
	defer feed.Release()

	assert.Never(t, feed.Ready, 30*time.Millisecond, time.Millisecond)
	is.True(feed.Latest() == nil)
}

func TestReleaseIsIdempotentAndSwallowsCloseErrors(t *testing.T) {
	is := is.New(t)
	conn := &testVideoConnection{size: image.Pt(8, 8), closeError: errors.New("already gone")}
	manager := camera.NewManager(&testVideoBackend{conn: conn})

	feed, err := manager.Acquire(context.Background(), camera.Constraints{})
	is.NoErr(err)

	feed.Release()
	feed.Release()
	is.Equal(conn.closeCount(), 1)
	is.True(!feed.Ready())
	is.True(feed.Latest() == nil)
}

func TestReleaseOnNilFeedDoesNotPanic(t *testing.T) {
	var feed *camera.Feed
	feed.Release()
}
