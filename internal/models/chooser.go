package models

import (
	"sort"

	"golang.org/x/sys/unix"
)

// Choice is the chooser's result: a model plus the compute type it fits with.
type Choice struct {
	Model       string
	Compute     ComputeType
	RequiredMB  int
	AvailableMB int
}

// memoryProbe reports free device memory in MB. Swappable for tests and for
// platforms where the probe is unavailable.
var memoryProbe = sysinfoFreeMB

func sysinfoFreeMB() (int, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	free := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit
	return int(free / (1 << 20)), true
}

// ChooseBest picks the highest-quality model whose memory requirement plus
// the safety margin fits the device's free memory. Candidates are filtered by
// the English-only flag; ties on quality prefer the smaller working set.
// Returns false when no model fits or the memory probe is unavailable, which
// signals the caller to fall back to CPU defaults.
func ChooseBest(englishOnly bool, safetyMarginMB int) (Choice, bool) {
	freeMB, ok := memoryProbe()
	if !ok {
		return Choice{}, false
	}
	if safetyMarginMB <= 0 {
		safetyMarginMB = 100
	}

	type candidate struct {
		desc    Descriptor
		compute ComputeType
		mb      int
	}
	var fits []candidate
	for _, desc := range registry {
		if desc.EnglishOnly != englishOnly {
			continue
		}
		for _, compute := range []ComputeType{ComputeInt8, ComputeFloat16, ComputeFloat32} {
			mb, ok := VRAM(desc.Name, compute)
			if !ok {
				continue
			}
			if mb+safetyMarginMB <= freeMB {
				fits = append(fits, candidate{desc: desc, compute: compute, mb: mb})
			}
		}
	}
	if len(fits) == 0 {
		return Choice{}, false
	}

	sort.SliceStable(fits, func(i, j int) bool {
		if fits[i].desc.Tier != fits[j].desc.Tier {
			return fits[i].desc.Tier > fits[j].desc.Tier
		}
		return fits[i].mb < fits[j].mb
	})

	head := fits[0]
	return Choice{
		Model:       head.desc.Name,
		Compute:     head.compute,
		RequiredMB:  head.mb,
		AvailableMB: freeMB,
	}, true
}
