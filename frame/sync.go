package frame

// SyncTriple is the handshake state of one frame slot.
type SyncTriple struct {
	ImageAcquired  Semaphore
	RenderFinished Semaphore
	SlotFree       Fence
}

// SyncSet owns one SyncTriple per frame slot. Either every triple exists or
// none do.
type SyncSet struct {
	device  Device
	triples []SyncTriple
}

// NewSyncSet creates slotCount triples. Slot fences start signaled so the
// first wait on each slot returns at once.
func NewSyncSet(device Device, slotCount int) (*SyncSet, error) {
	set := &SyncSet{device: device}

	for i := 0; i < slotCount; i++ {
		triple, err := set.createTriple()
		if err != nil {
			set.Destroy()
			return nil, &SyncInitError{Slot: i, Err: err}
		}
		set.triples = append(set.triples, triple)
	}

	return set, nil
}

func (s *SyncSet) createTriple() (SyncTriple, error) {
	var triple SyncTriple
	var err error

	triple.ImageAcquired, err = s.device.CreateSemaphore()
	if err != nil {
		return triple, err
	}

	triple.RenderFinished, err = s.device.CreateSemaphore()
	if err != nil {
		s.device.DestroySemaphore(triple.ImageAcquired)
		return triple, err
	}

	triple.SlotFree, err = s.device.CreateFence(true)
	if err != nil {
		s.device.DestroySemaphore(triple.RenderFinished)
		s.device.DestroySemaphore(triple.ImageAcquired)
		return triple, err
	}

	return triple, nil
}

// Len returns the number of slots.
func (s *SyncSet) Len() int {
	return len(s.triples)
}

// Slot returns the triple for slot i.
func (s *SyncSet) Slot(i int) SyncTriple {
	return s.triples[i]
}

// Fences returns every slot fence in slot order.
func (s *SyncSet) Fences() []Fence {
	fences := make([]Fence, 0, len(s.triples))
	for _, triple := range s.triples {
		fences = append(fences, triple.SlotFree)
	}
	return fences
}

// Destroy releases every primitive. No GPU work may still reference them.
func (s *SyncSet) Destroy() {
	for _, triple := range s.triples {
		s.device.DestroyFence(triple.SlotFree)
		s.device.DestroySemaphore(triple.RenderFinished)
		s.device.DestroySemaphore(triple.ImageAcquired)
	}
	s.triples = nil
}
