//go:build !gst

package capture

import "errors"

// CameraBuiltIn reports whether this build includes the GStreamer camera.
const CameraBuiltIn = false

// DefaultKind is the source used when none is configured.
const DefaultKind = "pattern"

// NewCameraSource needs the gst build tag and the GStreamer development
// libraries.
func NewCameraSource(device string, width, height, fps int) (Source, error) {
	return nil, errors.New("camera source not built in; rebuild with -tags gst")
}
