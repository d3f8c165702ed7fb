package frame

import (
	"github.com/cockroachdb/errors"
)

// Target is the render target of one presentable image. ImageIndex is a
// non-owning reference into the chain generation that built it.
type Target struct {
	ImageIndex   int
	RenderTarget RenderTarget
}

// TargetSet holds one Target per presentable image, in chain order.
type TargetSet struct {
	factory TargetFactory
	targets []Target
	extent  Extent
}

// BuildTargets creates one target per image. Targets built before a failure
// are released.
func BuildTargets(factory TargetFactory, images []PresentableImage, extent Extent) (*TargetSet, error) {
	set := &TargetSet{factory: factory, extent: extent}

	for _, image := range images {
		rt, err := factory.CreateTarget(image.View, extent)
		if err != nil {
			set.Destroy()
			return nil, &ChainBuildError{Stage: "targets", Err: errors.Wrapf(err, "image %d", image.Index)}
		}
		set.targets = append(set.targets, Target{ImageIndex: image.Index, RenderTarget: rt})
	}

	return set, nil
}

func (s *TargetSet) Len() int { return len(s.targets) }

// At returns the target for image index i.
func (s *TargetSet) At(i int) (Target, error) {
	if i < 0 || i >= len(s.targets) {
		return Target{}, errors.Wrapf(ErrTargetIndex, "index %d of %d", i, len(s.targets))
	}
	return s.targets[i], nil
}

func (s *TargetSet) Extent() Extent { return s.extent }

// Destroy releases every target. It must run before the chain that owns the
// underlying images is destroyed.
func (s *TargetSet) Destroy() {
	for _, target := range s.targets {
		s.factory.DestroyTarget(target.RenderTarget)
	}
	s.targets = nil
}
