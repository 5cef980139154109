package models

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/born-ml/gantrain/internal/nn"
	"github.com/born-ml/gantrain/internal/tensor"
)

// DiscriminatorKind selects a discriminator architecture.
type DiscriminatorKind int

const (
	ImageDiscriminator DiscriminatorKind = iota + 1
	PatchImageDiscriminator
	VideoDiscriminator
	PatchVideoDiscriminator
	CategoricalVideoDiscriminator
	ConditionalDiscriminator
	PairDiscriminator
	TextDiscriminator
)

// imagePatches is the number of adversarial outputs of a patch image discriminator.
const imagePatches = 4

// Input is what a discriminator kind scores.
type Input int

const (
	// Still is one frame per sample.
	Still Input = iota + 1
	// Clip is Frames frames per sample.
	Clip
	// Conditioned is one frame followed by its CondDim-wide condition.
	Conditioned
)

func (in Input) width(c Config) int {
	switch in {
	case Clip:
		return c.Frames * c.Dim
	case Conditioned:
		return c.Dim + c.CondDim
	default:
		return c.Dim
	}
}

type discriminatorSpec struct {
	name  string
	alias string
	input Input
	// adversarial outputs and class outputs for a config
	adv     func(Config) int
	classes func(Config) int
}

func single(Config) int     { return 1 }
func patches(Config) int    { return imagePatches }
func perFrame(c Config) int { return c.Frames }
func none(Config) int       { return 0 }
func classes(c Config) int  { return c.Classes }

var registry = map[DiscriminatorKind]discriminatorSpec{
	ImageDiscriminator:            {"ImageDiscriminator", "image", Still, single, none},
	PatchImageDiscriminator:       {"PatchImageDiscriminator", "patch-image", Still, patches, none},
	VideoDiscriminator:            {"VideoDiscriminator", "video", Clip, single, none},
	PatchVideoDiscriminator:       {"PatchVideoDiscriminator", "patch-video", Clip, perFrame, none},
	CategoricalVideoDiscriminator: {"CategoricalVideoDiscriminator", "categorical-video", Clip, single, classes},
	ConditionalDiscriminator:      {"ConditionalDiscriminator", "conditional", Still, single, classes},
	PairDiscriminator:             {"PairDiscriminator", "pair", Conditioned, single, none},
	TextDiscriminator:             {"TextDiscriminator", "text", Conditioned, single, none},
}

func (k DiscriminatorKind) String() string {
	if entry, ok := registry[k]; ok {
		return entry.name
	}
	return fmt.Sprintf("DiscriminatorKind(%d)", int(k))
}

// HasClassHead reports whether the kind has an auxiliary classification head.
func (k DiscriminatorKind) HasClassHead() bool {
	entry, ok := registry[k]
	return ok && entry.classes(Config{Classes: 1}) > 0
}

// Input reports what the kind scores; zero for unknown kinds.
func (k DiscriminatorKind) Input() Input {
	return registry[k].input
}

// ParseDiscriminatorKind accepts a kind name ("PatchVideoDiscriminator") or
// its short alias ("patch-video"), case-insensitively.
func ParseDiscriminatorKind(s string) (DiscriminatorKind, error) {
	for kind, entry := range registry {
		if strings.EqualFold(s, entry.name) || strings.EqualFold(s, entry.alias) {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown discriminator %q (known: %s)", s, strings.Join(DiscriminatorNames(), ", "))
}

// DiscriminatorNames lists the registered kind names in order.
func DiscriminatorNames() []string {
	kinds := make([]int, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, int(k))
	}
	sort.Ints(kinds)
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = registry[DiscriminatorKind(k)].name
	}
	return names
}

// Discriminator scores samples. Discriminate splits the network output into
// adversarial logits [N, A] and, for kinds with a class head, class logits
// [N, C]; cls is nil otherwise.
type Discriminator[B tensor.Backend] interface {
	nn.Module[B]
	Discriminate(x *tensor.Tensor[float32, B]) (adv, cls *tensor.Tensor[float32, B])
	Kind() DiscriminatorKind
}

type mlpDiscriminator[B tensor.Backend] struct {
	*nn.Sequential[B]
	kind    DiscriminatorKind
	adv     int
	classes int
}

// NewDiscriminator builds the discriminator registered for kind.
func NewDiscriminator[B tensor.Backend](kind DiscriminatorKind, cfg Config, backend B, rng *rand.Rand) (Discriminator[B], error) {
	entry, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("unknown discriminator kind %d", int(kind))
	}
	cfg = cfg.withDefaults()
	adv, cls := entry.adv(cfg), entry.classes(cfg)
	if entry.classes(Config{Classes: 1}) > 0 && cls <= 0 {
		return nil, fmt.Errorf("%s needs a positive class count", entry.name)
	}
	in := entry.input.width(cfg)
	if in <= 0 {
		return nil, fmt.Errorf("%s: input width must be positive, got %d", entry.name, in)
	}
	net := mlp([]int{in, 2 * cfg.Hidden, cfg.Hidden, adv + cls}, leaky[B](), nil, cfg.InitStd, backend, rng)
	return &mlpDiscriminator[B]{Sequential: net, kind: kind, adv: adv, classes: cls}, nil
}

func (d *mlpDiscriminator[B]) Kind() DiscriminatorKind { return d.kind }

func (d *mlpDiscriminator[B]) Discriminate(x *tensor.Tensor[float32, B]) (adv, cls *tensor.Tensor[float32, B]) {
	out := d.Forward(x)
	if d.classes == 0 {
		return out, nil
	}
	return out.Narrow(1, 0, d.adv), out.Narrow(1, d.adv, d.classes)
}
