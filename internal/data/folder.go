package data

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder
)

// ImageOptions configures the folder loaders.
type ImageOptions struct {
	Size     int // square side after resizing
	Channels int // 1 (gray) or 3 (RGB)

	// Frames is the clip length for video datasets.
	Frames int
	// EveryNth spaces the frames of a clip when the video is long enough.
	EveryNth int

	// Captions reads a sibling .txt file per image as its caption.
	Captions bool

	// Seed drives clip start selection.
	Seed int64
}

func (o ImageOptions) withDefaults() ImageOptions {
	if o.Channels == 0 {
		o.Channels = 3
	}
	if o.EveryNth < 1 {
		o.EveryNth = 1
	}
	return o
}

// Dataset is a fully loaded sample set.
type Dataset struct {
	Samples []Sample
	Layout  Layout
	// Classes maps label ids to sub-directory names.
	Classes []string
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".webp": true,
}

type entry struct {
	path  string
	class string
}

// listImages finds images under root. Files in a sub-directory take the
// directory name as their class; files directly under root share class "".
func listImages(root string) ([]entry, []string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("dataset root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("dataset root %s is not a directory", root)
	}

	var entries []entry
	classSet := make(map[string]struct{})
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		depth := len(strings.Split(rel, string(filepath.Separator)))
		if d.IsDir() {
			if path != root && depth > 1 {
				return filepath.SkipDir
			}
			return nil
		}
		if !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		class := ""
		if depth == 2 {
			class = filepath.Dir(rel)
		}
		classSet[class] = struct{}{}
		entries = append(entries, entry{path: path, class: class})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if len(entries) == 0 {
		return nil, nil, fmt.Errorf("%w: no images under %s", ErrEmpty, root)
	}

	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	return entries, classes, nil
}

func classIndex(classes []string) map[string]int64 {
	idx := make(map[string]int64, len(classes))
	for i, c := range classes {
		idx[c] = int64(i)
	}
	return idx
}

// LoadImageFolder loads every still image under root, resized to a square
// and normalized to [-1, 1].
func LoadImageFolder(root string, opts ImageOptions) (*Dataset, error) {
	opts = opts.withDefaults()
	entries, classes, err := listImages(root)
	if err != nil {
		return nil, err
	}
	labels := classIndex(classes)
	ds := &Dataset{Layout: ImageLayout(1, opts.Channels, opts.Size), Classes: classes}
	for _, e := range entries {
		img, err := decodeFirst(e.path)
		if err != nil {
			return nil, err
		}
		s := Sample{Observation: pixels(img, opts), Label: labels[e.class]}
		if opts.Captions {
			if s.Caption, err = readCaption(e.path); err != nil {
				return nil, err
			}
		}
		ds.Samples = append(ds.Samples, s)
	}
	return ds, nil
}

// LoadVideoFolder loads videos under root. A video is either an animated GIF
// or a strip of square frames concatenated along its long side. Videos with
// fewer than opts.Frames frames are skipped.
//
// It returns a clip dataset (opts.Frames frames per sample) and a frame
// dataset holding every frame of every kept video as a still image.
func LoadVideoFolder(root string, opts ImageOptions) (videos, frames *Dataset, err error) {
	opts = opts.withDefaults()
	if opts.Frames < 1 {
		return nil, nil, fmt.Errorf("video length must be positive, got %d", opts.Frames)
	}
	entries, classes, err := listImages(root)
	if err != nil {
		return nil, nil, err
	}
	labels := classIndex(classes)
	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // reproducible clip selection

	videos = &Dataset{Layout: ImageLayout(opts.Frames, opts.Channels, opts.Size), Classes: classes}
	frames = &Dataset{Layout: ImageLayout(1, opts.Channels, opts.Size), Classes: classes}
	for _, e := range entries {
		all, err := decodeFrames(e.path)
		if err != nil {
			return nil, nil, err
		}
		if len(all) < opts.Frames {
			continue
		}
		label := labels[e.class]
		clip := make([]float32, 0, videos.Layout.SampleDim())
		for _, i := range ClipIndices(len(all), opts.Frames, opts.EveryNth, rng) {
			clip = append(clip, pixels(all[i], opts)...)
		}
		videos.Samples = append(videos.Samples, Sample{Observation: clip, Label: label})
		for _, f := range all {
			frames.Samples = append(frames.Samples, Sample{Observation: pixels(f, opts), Label: label})
		}
	}
	if len(videos.Samples) == 0 {
		return nil, nil, fmt.Errorf("%w: no video under %s has %d frames", ErrEmpty, root, opts.Frames)
	}
	return videos, frames, nil
}

// LoadPairedFolder loads aligned image pairs from root/a and root/b. Files
// are matched by name; the a image becomes the conditioning input and the b
// image the observation.
func LoadPairedFolder(root string, opts ImageOptions) (*Dataset, error) {
	opts = opts.withDefaults()
	entries, _, err := listImages(filepath.Join(root, "b"))
	if err != nil {
		return nil, err
	}
	layout := ImageLayout(1, opts.Channels, opts.Size)
	layout.CondDim = layout.Dim
	ds := &Dataset{Layout: layout}
	for _, e := range entries {
		rel, _ := filepath.Rel(filepath.Join(root, "b"), e.path)
		imgB, err := decodeFirst(e.path)
		if err != nil {
			return nil, err
		}
		imgA, err := decodeFirst(filepath.Join(root, "a", rel))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ds.Samples = append(ds.Samples, Sample{Observation: pixels(imgB, opts), Cond: pixels(imgA, opts)})
	}
	if len(ds.Samples) == 0 {
		return nil, fmt.Errorf("%w: no matching pairs under %s", ErrEmpty, root)
	}
	return ds, nil
}

// ClipIndices picks length frame indices out of a video of n frames. Long
// videos get a random start and every-nth spacing; shorter ones are spread
// evenly from first to last frame.
func ClipIndices(n, length, everyNth int, rng *rand.Rand) []int {
	idx := make([]int, length)
	if n > length*everyNth {
		needed := everyNth * (length - 1)
		start := rng.Intn(n - needed)
		for i := range idx {
			idx[i] = start + i*everyNth
		}
		return idx
	}
	if length == 1 {
		return idx
	}
	for i := range idx {
		idx[i] = i * (n - 1) / (length - 1)
	}
	return idx
}

func decodeFirst(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // G304: dataset path from configuration
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// decodeFrames returns the frames of a GIF animation, or the square tiles
// of a frame strip.
func decodeFrames(path string) ([]image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		f, err := os.Open(path) //nolint:gosec // G304: dataset path from configuration
		if err != nil {
			return nil, err
		}
		defer f.Close()
		g, err := gif.DecodeAll(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return composeGIF(g), nil
	}
	img, err := decodeFirst(path)
	if err != nil {
		return nil, err
	}
	return splitStrip(img), nil
}

// composeGIF renders each GIF frame over the previous ones.
func composeGIF(g *gif.GIF) []image.Image {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	canvas := image.NewRGBA(bounds)
	out := make([]image.Image, 0, len(g.Image))
	for _, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		snapshot := image.NewRGBA(bounds)
		draw.Draw(snapshot, bounds, canvas, bounds.Min, draw.Src)
		out = append(out, snapshot)
	}
	return out
}

func splitStrip(img image.Image) []image.Image {
	b := img.Bounds()
	short, long := min(b.Dx(), b.Dy()), max(b.Dx(), b.Dy())
	horizontal := b.Dx() > b.Dy()
	n := long / short
	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok || n <= 1 {
		return []image.Image{img}
	}
	out := make([]image.Image, n)
	for i := range out {
		r := image.Rect(b.Min.X, b.Min.Y+i*short, b.Min.X+short, b.Min.Y+(i+1)*short)
		if horizontal {
			r = image.Rect(b.Min.X+i*short, b.Min.Y, b.Min.X+(i+1)*short, b.Min.Y+short)
		}
		out[i] = sub.SubImage(r)
	}
	return out
}

// pixels resizes img to opts.Size and returns channel-major values in [-1, 1].
func pixels(img image.Image, opts ImageOptions) []float32 {
	size := opts.Size
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, opts.Channels*plane)
	for y := range size {
		for x := range size {
			c := dst.RGBAAt(x, y)
			i := y*size + x
			if opts.Channels == 1 {
				g := color.GrayModel.Convert(c).(color.Gray)
				out[i] = normalize(g.Y)
				continue
			}
			out[i] = normalize(c.R)
			out[plane+i] = normalize(c.G)
			out[2*plane+i] = normalize(c.B)
		}
	}
	return out
}

func normalize(v uint8) float32 {
	return float32(v)/127.5 - 1
}

func readCaption(imagePath string) (string, error) {
	path := strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".txt"
	b, err := os.ReadFile(path) //nolint:gosec // G304: dataset path from configuration
	if err != nil {
		return "", fmt.Errorf("caption for %s: %w", filepath.Base(imagePath), err)
	}
	return strings.TrimSpace(string(b)), nil
}
