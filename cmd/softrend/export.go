package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/taigrr/softrend/pkg/render"
)

// exportFrames renders a turntable of n frames, one full yaw turn, into
// dir/frame_000.bmp and onwards. Progress is reported on progress.
func exportFrames(s *setup, dir string, n int, progress io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	s.r.Texture = s.texture

	bar := progressbar.NewOptions(n,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("rendering "+s.name),
		progressbar.OptionShowCount(),
	)

	for i := range n {
		s.r.Model = modelMatrix(0, 2*math.Pi*float64(i)/float64(n), 0)
		if _, err := s.renderFrame(true, false); err != nil {
			return err
		}

		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.bmp", i))
		if err := writeBMP(path, s.r.Surface()); err != nil {
			return err
		}
		render.Logger().Debug("wrote frame", "path", path)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(progress)
	return nil
}

func writeBMP(path string, s *render.Surface) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := render.EncodeBMP(f, s.ColorTexture()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close frame: %w", err)
	}
	return nil
}
