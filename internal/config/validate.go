package config

import "fmt"

var validDevices = map[string]struct{}{
	"cpu":  {},
	"cuda": {},
	"mps":  {},
}

var validComputeTypes = map[string]struct{}{
	"int8":         {},
	"float16":      {},
	"float32":      {},
	"int8_float32": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if _, ok := validDevices[c.Engine.Device]; !ok {
		return fmt.Errorf("engine.device: unsupported value %q (cpu, cuda, mps)", c.Engine.Device)
	}
	if _, ok := validComputeTypes[c.Engine.ComputeType]; !ok {
		return fmt.Errorf("engine.compute_type: unsupported value %q (int8, float16, float32, int8_float32)", c.Engine.ComputeType)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (console, json)", c.Logging.Format)
	}
	return nil
}
