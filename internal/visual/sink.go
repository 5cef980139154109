package visual

import (
	"fmt"
	"path/filepath"

	"github.com/born-ml/gantrain/internal/data"
	"github.com/born-ml/gantrain/internal/gan"
)

// File names written by Sink.
const (
	ValidImage  = "valid_im.png"
	ValidGIF    = "valid_gif.gif"
	RealSamples = "real_samples.png"
)

// Options configures a Sink.
type Options struct {
	// NRow is the number of tiles per grid row; 0 means 8.
	NRow int
	// Scale enlarges every tile; 0 means 1.
	Scale int
	// Delay is the GIF frame delay in 100ths of a second; 0 means 20.
	Delay int
}

// Sink writes the visual output of a run to a directory. It implements
// gan.Renderer.
//
//	valid_im.png                          first batch of the primary stream
//	valid_gif.gif                         first batch of clips, paired runs only
//	real_samples.png                      same as valid_im.png
//	fake_samples_epoch-E_step-S.png       first frame of every generated sample
//	fake_samples_epoch-E_step-S.gif       animated clips, video samples only
type Sink struct {
	dir  string
	opts Options
}

var _ gan.Renderer = (*Sink)(nil)

// NewSink renders into dir.
func NewSink(dir string, opts Options) *Sink {
	if opts.NRow <= 0 {
		opts.NRow = 8
	}
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Delay <= 0 {
		opts.Delay = 20
	}
	return &Sink{dir: dir, opts: opts}
}

// Dir is the output directory.
func (s *Sink) Dir() string { return s.dir }

// RenderReal writes the validation images of the first batch.
func (s *Sink) RenderReal(b gan.Batch) error {
	if err := s.still(b.Real, ValidImage, RealSamples); err != nil {
		return err
	}
	if b.Paired && b.Pair.Layout.Frames > 1 {
		return s.animation(b.Pair, ValidGIF)
	}
	return nil
}

// RenderFake writes the generated samples of one visual tick.
func (s *Sink) RenderFake(epoch, step int, samples data.Batch) error {
	name := fmt.Sprintf("fake_samples_epoch-%d_step-%d", epoch, step)
	if err := s.still(samples, name+".png"); err != nil {
		return err
	}
	if samples.Layout.Frames > 1 {
		return s.animation(samples, name+".gif")
	}
	return nil
}

func (s *Sink) still(b data.Batch, names ...string) error {
	img, err := Grid(b, 0, s.opts.NRow)
	if err != nil {
		return err
	}
	img = Upscale(img, s.opts.Scale)
	for _, name := range names {
		if err := SavePNG(filepath.Join(s.dir, name), img); err != nil {
			return fmt.Errorf("save %s: %w", name, err)
		}
	}
	return nil
}

func (s *Sink) animation(b data.Batch, name string) error {
	frames, err := Frames(b, s.opts.NRow)
	if err != nil {
		return err
	}
	for i := range frames {
		frames[i] = Upscale(frames[i], s.opts.Scale)
	}
	if err := SaveGIF(filepath.Join(s.dir, name), frames, s.opts.Delay); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}
