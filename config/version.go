package config

import "fmt"

const (
	VersionMajor = 0
	VersionMinor = 3
	VersionPatch = 0
	VersionMeta  = "unstable"
)

// Version holds the textual version string.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)

// VersionWithMeta holds the textual version string including the metadata.
var VersionWithMeta = Version + "-" + VersionMeta

// VersionWithCommit appends the first eight characters of gitCommit, when known.
func VersionWithCommit(gitCommit string) string {
	vsn := VersionWithMeta
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	return vsn
}
