package data

import (
	"fmt"
	"math"
	"math/rand"
)

// Synthetic datasets for smoke runs and tests. Values are in [-1, 1] with
// the same layout the folder loaders produce.

// Blobs draws n images of a Gaussian blob whose position depends on the
// class, so a conditional generator has something to learn.
func Blobs(n, classes, channels, size int, rng *rand.Rand) *Dataset {
	ds := &Dataset{Layout: ImageLayout(1, channels, size), Classes: classNames(classes)}
	for i := range n {
		class := i % classes
		angle := 2 * math.Pi * float64(class) / float64(classes)
		cx := float64(size)/2 + float64(size)/4*math.Cos(angle) + rng.NormFloat64()
		cy := float64(size)/2 + float64(size)/4*math.Sin(angle) + rng.NormFloat64()
		img := make([]float32, ds.Layout.Dim)
		paintBlob(img, channels, size, cx, cy, float64(size)/8)
		ds.Samples = append(ds.Samples, Sample{Observation: img, Label: int64(class)})
	}
	return ds
}

// MovingDots draws n clips of a blob travelling in one of four directions;
// the direction is the label. It also returns every frame as a still image.
func MovingDots(n, frames, channels, size int, rng *rand.Rand) (videos, stills *Dataset) {
	videos = &Dataset{Layout: ImageLayout(frames, channels, size), Classes: []string{"right", "down", "left", "up"}}
	stills = &Dataset{Layout: ImageLayout(1, channels, size), Classes: videos.Classes}
	dirs := [4][2]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	for i := range n {
		label := i % 4
		x := float64(size)/4 + rng.Float64()*float64(size)/2
		y := float64(size)/4 + rng.Float64()*float64(size)/2
		speed := float64(size) / float64(2*frames)
		clip := make([]float32, 0, videos.Layout.SampleDim())
		for f := range frames {
			img := make([]float32, videos.Layout.Dim)
			paintBlob(img, channels, size, x+dirs[label][0]*speed*float64(f), y+dirs[label][1]*speed*float64(f), float64(size)/10)
			clip = append(clip, img...)
			stills.Samples = append(stills.Samples, Sample{Observation: img, Label: int64(label)})
		}
		videos.Samples = append(videos.Samples, Sample{Observation: clip, Label: int64(label)})
	}
	return videos, stills
}

// MaskPairs draws n (mask, colored blob) pairs for image-to-image
// translation: the mask is the conditioning input.
func MaskPairs(n, channels, size int, rng *rand.Rand) *Dataset {
	layout := ImageLayout(1, channels, size)
	layout.CondDim = layout.Dim
	ds := &Dataset{Layout: layout}
	for range n {
		cx, cy := rng.Float64()*float64(size), rng.Float64()*float64(size)
		radius := float64(size) / 6
		mask := make([]float32, layout.Dim)
		paintDisc(mask, channels, size, cx, cy, radius)
		img := make([]float32, layout.Dim)
		paintBlob(img, channels, size, cx, cy, radius)
		ds.Samples = append(ds.Samples, Sample{Observation: img, Cond: mask})
	}
	return ds
}

var (
	shapeNames = []string{"square", "disc"}
	colorNames = []string{"red", "green", "blue"}
)

// CaptionedShapes draws n images of a colored shape with a caption such as
// "a small red square". Conditioning vectors are left to a text embedder.
func CaptionedShapes(n, size int, rng *rand.Rand) *Dataset {
	ds := &Dataset{Layout: ImageLayout(1, 3, size), Classes: shapeNames}
	for range n {
		shape, col := rng.Intn(len(shapeNames)), rng.Intn(len(colorNames))
		small := rng.Intn(2) == 0
		radius := float64(size) / 3
		sizeWord := "large"
		if small {
			radius, sizeWord = float64(size)/6, "small"
		}
		cx, cy := float64(size)/2, float64(size)/2
		img := make([]float32, ds.Layout.Dim)
		for i := range img {
			img[i] = -1
		}
		plane := size * size
		for y := range size {
			for x := range size {
				dx, dy := math.Abs(float64(x)-cx), math.Abs(float64(y)-cy)
				inside := dx <= radius && dy <= radius
				if shape == 1 {
					inside = dx*dx+dy*dy <= radius*radius
				}
				if inside {
					img[col*plane+y*size+x] = 1
				}
			}
		}
		ds.Samples = append(ds.Samples, Sample{
			Observation: img,
			Label:       int64(shape),
			Caption:     fmt.Sprintf("a %s %s %s", sizeWord, colorNames[col], shapeNames[shape]),
		})
	}
	return ds
}

func paintBlob(img []float32, channels, size int, cx, cy, sigma float64) {
	plane := size * size
	for y := range size {
		for x := range size {
			d2 := (float64(x)-cx)*(float64(x)-cx) + (float64(y)-cy)*(float64(y)-cy)
			v := float32(2*math.Exp(-d2/(2*sigma*sigma)) - 1)
			for c := range channels {
				img[c*plane+y*size+x] = v
			}
		}
	}
}

func paintDisc(img []float32, channels, size int, cx, cy, radius float64) {
	plane := size * size
	for y := range size {
		for x := range size {
			v := float32(-1)
			if (float64(x)-cx)*(float64(x)-cx)+(float64(y)-cy)*(float64(y)-cy) <= radius*radius {
				v = 1
			}
			for c := range channels {
				img[c*plane+y*size+x] = v
			}
		}
	}
}

func classNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("class-%d", i)
	}
	return names
}
