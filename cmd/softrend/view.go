package main

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/softrend/pkg/math3d"
	"github.com/taigrr/softrend/pkg/render"
)

const torqueStrength = 3.0

// viewer is the interactive terminal session. All of its state is owned by
// the frame loop goroutine.
type viewer struct {
	*setup

	term      *uv.Terminal
	presenter *render.Presenter
	camera    *render.Camera
	rotation  *RotationState
	zoom      *Zoom

	eyeDir  math3d.Vec3 // Unit vector from the camera target to the eye
	startAt float64     // Initial camera distance

	// Torque from held keys, decayed each frame since key releases are not
	// reported by every terminal.
	torque struct{ pitch, yaw, roll float64 }

	textured bool
	depth    bool
	status   bool
	fps      fpsCounter
	vertices int         // Emitted by the last rendered frame
	last     *image.RGBA // Last presented frame, redrawn on resize
}

func view(s *setup) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	v := newViewer(s, term)
	defer v.presenter.Close()

	if !s.sized {
		if err := v.resize(width, height); err != nil {
			v.cleanup()
			return err
		}
	}

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err = v.loop(ctx, cancel)
	v.cleanup()
	return err
}

func newViewer(s *setup, term *uv.Terminal) *viewer {
	cam := s.cfg.Camera()
	offset := cam.Position.Sub(cam.Target)

	textured := s.texture != nil
	for _, o := range s.objects {
		textured = textured || o.Texture != nil
	}

	return &viewer{
		setup:     s,
		term:      term,
		presenter: render.NewPresenter(nil),
		camera:    cam,
		rotation:  NewRotationState(*targetFPS),
		zoom:      NewZoom(*targetFPS, offset.Len()),
		eyeDir:    offset.Normalize(),
		startAt:   offset.Len(),
		textured:  textured,
	}
}

func (v *viewer) cleanup() {
	v.term.ExitAltScreen()
	v.term.ShowCursor()
	v.term.Shutdown(context.Background())
}

func (v *viewer) loop(ctx context.Context, cancel context.CancelFunc) error {
	ticker := time.NewTicker(time.Second / time.Duration(*targetFPS))
	defer ticker.Stop()

	events := v.term.Events()
	lastFrame := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			quit, err := v.handle(ev)
			if err != nil {
				return err
			}
			if quit {
				cancel()
			}

		case now := <-ticker.C:
			dt := min(now.Sub(lastFrame).Seconds(), 0.1)
			lastFrame = now
			if err := v.frame(now, dt); err != nil {
				return err
			}
		}
	}
}

// handle applies one terminal event. It reports whether to quit.
func (v *viewer) handle(ev uv.Event) (bool, error) {
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		v.term.Erase()
		v.term.Resize(ev.Width, ev.Height)
		if !v.sized {
			return false, v.resize(ev.Width, ev.Height)
		}
		return false, v.draw()

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape", "ctrl+c"):
			return true, nil
		case ev.MatchString("w", "up"):
			v.torque.pitch = -torqueStrength
		case ev.MatchString("s", "down"):
			v.torque.pitch = torqueStrength
		case ev.MatchString("a", "left"):
			v.torque.yaw = -torqueStrength
		case ev.MatchString("d", "right"):
			v.torque.yaw = torqueStrength
		case ev.MatchString("q"):
			v.torque.roll = -torqueStrength
		case ev.MatchString("e"):
			v.torque.roll = torqueStrength
		case ev.MatchString("space"):
			v.rotation.ApplyImpulse(
				(rand.Float64()-0.5)*1.5,
				(rand.Float64()-0.5)*1.5,
				(rand.Float64()-0.5)*1.5,
			)
		case ev.MatchString("r"):
			v.rotation.Reset()
			v.zoom.Reset(v.startAt)
		case ev.MatchString("+", "="):
			v.zoom.Step(-0.5)
		case ev.MatchString("-", "_"):
			v.zoom.Step(0.5)
		case ev.MatchString("t"):
			v.textured = !v.textured
		case ev.MatchString("b"):
			v.r.Bilinear = !v.r.Bilinear
		case ev.MatchString("l"):
			v.r.Lighting = !v.r.Lighting
		case ev.MatchString("m"):
			v.r.Multithread = !v.r.Multithread
		case ev.MatchString("z"):
			v.depth = !v.depth
		case ev.MatchString("?", "shift+/"):
			v.status = !v.status
			return false, v.draw()
		}

	case uv.KeyReleaseEvent:
		switch {
		case ev.MatchString("w", "up", "s", "down"):
			v.torque.pitch = 0
		case ev.MatchString("a", "left", "d", "right"):
			v.torque.yaw = 0
		case ev.MatchString("q", "e"):
			v.torque.roll = 0
		}
	}
	return false, nil
}

// resize matches the surfaces to a terminal of cols x rows cells. The
// frame being converted is dropped.
func (v *viewer) resize(cols, rows int) error {
	w, h := render.FramebufferSize(cols, rows)
	if w <= 0 || h <= 0 {
		return nil
	}
	if err := v.presenter.Resize(v.r, w, h); err != nil {
		return err
	}
	v.camera.SetAspectRatio(float64(w) / float64(h))
	v.last = nil
	return nil
}

// frame advances the springs, renders into the front surface and hands it
// to the presenter, drawing the frame the presenter finished meanwhile.
func (v *viewer) frame(now time.Time, dt float64) error {
	v.rotation.ApplyImpulse(v.torque.pitch*dt, v.torque.yaw*dt, v.torque.roll*dt)
	v.torque.pitch *= 0.9
	v.torque.yaw *= 0.9
	v.torque.roll *= 0.9

	v.rotation.Update()
	v.zoom.Update()

	v.camera.SetPosition(v.camera.Target.Add(v.eyeDir.Scale(v.zoom.Distance)))
	v.camera.Apply(v.r)
	v.r.Model = modelMatrix(v.rotation.Pitch.Position, v.rotation.Yaw.Position, v.rotation.Roll.Position)

	v.r.Texture = nil
	if v.textured {
		v.r.Texture = v.texture
		if v.r.Texture == nil {
			v.r.Texture = v.fallback
		}
	}

	n, err := v.renderFrame(v.textured, v.depth)
	if err != nil {
		return err
	}
	v.vertices = n
	v.fps.tick(now)

	img, err := v.presenter.Exchange(v.r.Surface())
	if err != nil {
		return err
	}
	v.r.FlipSurfaces()

	if img == nil {
		return nil
	}
	v.last = img
	return v.draw()
}

// draw shows the last presented frame scaled to the whole terminal, under
// the status line when it is on.
func (v *viewer) draw() error {
	if v.last == nil {
		return nil
	}
	area := v.term.Bounds()
	if area.Dx() <= 0 || area.Dy() <= 0 {
		return nil
	}

	render.DrawImage(v.term, area, render.ScaleImage(v.last, area.Dx(), area.Dy()*2))
	if v.status {
		drawStatus(v.term, area, statusLine(v.fps.fps, v.vertices, v.r.Options, v.textured, v.depth))
	}
	if err := v.term.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
