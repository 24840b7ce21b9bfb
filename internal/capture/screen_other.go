//go:build !darwin

package capture

import "fmt"

// NewScreenSource is only available on macOS.
func NewScreenSource(displayIndex int, fps int) (Source, error) {
	return nil, fmt.Errorf("screen source is not supported on this platform")
}
