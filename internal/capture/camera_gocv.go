//go:build gocv
// +build gocv

package capture

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Camera grabs a single frame from a video device.
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

func (c *Camera) Capture(ctx context.Context, res Resolution) ([]byte, error) {
	webcam, err := gocv.OpenVideoCapture(c.Device)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", c.Device, err)
	}
	defer webcam.Close()

	if long, short, ok := res.MaxDimensions(); ok {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(long))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(short))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := gocv.NewMat()
	defer frame.Close()
	if ok := webcam.Read(&frame); !ok || frame.Empty() {
		return nil, fmt.Errorf("camera %d returned no frame", c.Device)
	}

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()
	raw := make([]byte, len(buf.GetBytes()))
	copy(raw, buf.GetBytes())

	c.logger.Debug("Frame captured",
		zap.Int("device", c.Device),
		zap.Int("width", frame.Cols()),
		zap.Int("height", frame.Rows()))

	// drivers may ignore the requested frame size
	return Fit(raw, res)
}

var _ Source = (*Camera)(nil)
