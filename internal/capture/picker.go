package capture

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/menta2k/vision-companion/internal/utils"
)

// FilePicker reads the photo at Path. An empty Path is a cancelled pick.
type FilePicker struct {
	Path   string
	logger *zap.Logger
}

func NewFilePicker(path string, logger *zap.Logger) *FilePicker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilePicker{Path: strings.TrimSpace(path), logger: logger.Named("picker")}
}

func (p *FilePicker) Capture(ctx context.Context, res Resolution) ([]byte, error) {
	if p.Path == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := utils.ExpandHome(p.Path)
	if !utils.IsImageFile(path) {
		return nil, fmt.Errorf("not an image file: %s", p.Path)
	}
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("photo not found: %s", p.Path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	fitted, err := Fit(raw, res)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Photo picked",
		zap.String("path", path),
		zap.String("resolution", res.String()),
		zap.Int("bytes", len(fitted)))
	return fitted, nil
}

var _ Source = (*FilePicker)(nil)
