/*
Package watermark decodes photos and writes the results of stamping them with a band of camera metadata.

Decoding applies the EXIF orientation so the image comes out upright, the way photo viewers present it, and keeps
the raw bytes around as lazily parsed metadata (see the meta package). The metadata is turned into display strings
by the camera package and drawn by the render package.
*/
package watermark

import "fmt"

type VersionInfo struct {
	Major, Minor, Patch uint
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Version is printed by cmd/stamp -version.
var Version = VersionInfo{1, 2, 0}
