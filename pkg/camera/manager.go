package camera

import (
	"context"

	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/archbooth/pkg/video/videobackend"
	"github.com/tauraamui/xerror"
)

const DeviceErrorKind = xerror.Kind("device")

// ErrDevice is returned when no camera exists or access is refused.
// It is not retried.
var ErrDevice = xerror.NewWithKind(DeviceErrorKind, "camera unavailable")

type Constraints = videobackend.Constraints

type Manager struct {
	backend videobackend.Backend
}

func NewManager(backend videobackend.Backend) *Manager {
	return &Manager{backend: backend}
}

// Acquire opens the camera with the ideal constraints and starts
// reading frames from it straight away.
func (m *Manager) Acquire(ctx context.Context, constraints Constraints) (*Feed, error) {
	conn, err := m.backend.OpenCamera(ctx, constraints)
	if err != nil {
		return nil, xerror.Errorf("%w: %v", ErrDevice, err)
	}
	log.Info("Acquired camera [%s]", constraints.Device)
	return newFeed("camera "+constraints.Device, m.backend, conn), nil
}

// OpenBackground starts a looping background video feed.
func (m *Manager) OpenBackground(ctx context.Context, path string) (*Feed, error) {
	conn, err := m.backend.OpenBackground(ctx, path)
	if err != nil {
		return nil, xerror.Errorf("unable to open background video %s: %w", path, err)
	}
	return newFeed("background", m.backend, conn), nil
}
