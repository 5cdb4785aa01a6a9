//go:build !gocv
// +build !gocv

package capture

import (
	"context"

	"go.uber.org/zap"
)

// Camera is a placeholder when built without the gocv tag.
type Camera struct {
	Device int
	logger *zap.Logger
}

func NewCamera(device int, logger *zap.Logger) *Camera {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Camera{Device: device, logger: logger.Named("camera")}
}

// Capture always fails with ErrCameraUnavailable.
func (c *Camera) Capture(context.Context, Resolution) ([]byte, error) {
	return nil, ErrCameraUnavailable
}

var _ Source = (*Camera)(nil)
