package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate compiles a full WGSL module with naga and discards the output. It catches syntax and
// type errors on the CPU, with a readable message, before the source reaches the GPU driver.
//
// Parameters:
//   - source: the complete WGSL module
//
// Returns:
//   - error: the compiler diagnostic wrapped, or nil if the module compiles
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("failed to compile shader: %w", err)
	}
	return nil
}
