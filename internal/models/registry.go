// Package models holds the fixed registry of speech-to-text models, their
// quality ordering, and the memory-aware auto-chooser.
package models

// Descriptor describes one speech-to-text model.
type Descriptor struct {
	Name        string
	Tier        int
	EnglishOnly bool
	DiskSizeMB  int
}

// ComputeType selects the numeric precision the engine runs with.
type ComputeType string

const (
	ComputeInt8    ComputeType = "int8"
	ComputeFloat16 ComputeType = "float16"
	ComputeFloat32 ComputeType = "float32"
)

// registry lists every known model in quality order. Multilingual models come
// first; English-only variants form a parallel tier whose indices continue
// after the multilingual block.
var registry = []Descriptor{
	{Name: "tiny", Tier: 1, DiskSizeMB: 75},
	{Name: "base", Tier: 1, DiskSizeMB: 142},
	{Name: "small", Tier: 2, DiskSizeMB: 466},
	{Name: "medium", Tier: 3, DiskSizeMB: 1500},
	{Name: "large", Tier: 4, DiskSizeMB: 2900},
	{Name: "large-v2", Tier: 5, DiskSizeMB: 3000},
	{Name: "large-v3", Tier: 6, DiskSizeMB: 3000},
	{Name: "tiny.en", Tier: 1, EnglishOnly: true, DiskSizeMB: 75},
	{Name: "base.en", Tier: 1, EnglishOnly: true, DiskSizeMB: 142},
	{Name: "small.en", Tier: 2, EnglishOnly: true, DiskSizeMB: 466},
	{Name: "medium.en", Tier: 3, EnglishOnly: true, DiskSizeMB: 1500},
}

// multilingualCount is the size of the multilingual block; English-only raw
// indices start here.
const multilingualCount = 7

// vramMB maps (model, compute type) to the engine's working-set estimate.
var vramMB = map[string]map[ComputeType]int{
	"tiny":      {ComputeInt8: 270, ComputeFloat16: 400, ComputeFloat32: 600},
	"base":      {ComputeInt8: 400, ComputeFloat16: 550, ComputeFloat32: 850},
	"small":     {ComputeInt8: 900, ComputeFloat16: 1300, ComputeFloat32: 2100},
	"medium":    {ComputeInt8: 1900, ComputeFloat16: 2900, ComputeFloat32: 4800},
	"large":     {ComputeInt8: 3100, ComputeFloat16: 4700, ComputeFloat32: 8200},
	"large-v2":  {ComputeInt8: 3100, ComputeFloat16: 4700, ComputeFloat32: 8200},
	"large-v3":  {ComputeInt8: 3300, ComputeFloat16: 4900, ComputeFloat32: 8600},
	"tiny.en":   {ComputeInt8: 270, ComputeFloat16: 400, ComputeFloat32: 600},
	"base.en":   {ComputeInt8: 400, ComputeFloat16: 550, ComputeFloat32: 850},
	"small.en":  {ComputeInt8: 900, ComputeFloat16: 1300, ComputeFloat32: 2100},
	"medium.en": {ComputeInt8: 1900, ComputeFloat16: 2900, ComputeFloat32: 4800},
}

// Lookup returns the descriptor for a model name.
func Lookup(name string) (Descriptor, bool) {
	for _, desc := range registry {
		if desc.Name == name {
			return desc, true
		}
	}
	return Descriptor{}, false
}

// All returns the registry in quality order.
func All() []Descriptor {
	cp := make([]Descriptor, len(registry))
	copy(cp, registry)
	return cp
}

// IsKnown reports whether name is a registered model.
func IsKnown(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// RawIndex returns the model's position in the full quality ordering, or -1
// for unknown models. English-only variants occupy indices after the
// multilingual block.
func RawIndex(name string) int {
	for i, desc := range registry {
		if desc.Name == name {
			return i
		}
	}
	return -1
}

// NormalizedIndex strips the English-only offset so cross-tier comparisons
// line up: tiny.en normalizes to tiny's index and so on. Returns -1 for
// unknown models.
func NormalizedIndex(name string) int {
	raw := RawIndex(name)
	if raw < 0 {
		return -1
	}
	if raw >= multilingualCount {
		return raw - multilingualCount
	}
	return raw
}

// VRAM returns the memory requirement in MB for a model and compute type.
func VRAM(name string, compute ComputeType) (int, bool) {
	byCompute, ok := vramMB[name]
	if !ok {
		return 0, false
	}
	mb, ok := byCompute[compute]
	return mb, ok
}

// NextSmaller returns the next model down the quality ordering within the
// same English-only block, for the engine's downgrade fallback.
func NextSmaller(name string) (string, bool) {
	raw := RawIndex(name)
	if raw <= 0 {
		return "", false
	}
	if raw == multilingualCount {
		// tiny.en has nothing smaller in its block.
		return "", false
	}
	return registry[raw-1].Name, true
}
