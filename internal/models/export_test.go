package models

// SetMemoryProbe overrides the device memory probe for tests and returns a
// restore function.
func SetMemoryProbe(probe func() (int, bool)) func() {
	old := memoryProbe
	memoryProbe = probe
	return func() { memoryProbe = old }
}
