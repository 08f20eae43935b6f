package version

import (
	"github.com/Masterminds/semver/v3"
)

var (
	parsedVersion  *semver.Version
	parseAttempted bool
)

// resetParsedVersion clears the parse cache between tests.
func resetParsedVersion() {
	parsedVersion = nil
	parseAttempted = false
}

// Parsed returns the build version as a semantic version, or nil when the
// binary was built without a release tag (Version stays "dev"). Parsed
// lazily once and cached.
func Parsed() *semver.Version {
	if parsedVersion != nil || parseAttempted {
		return parsedVersion
	}
	parseAttempted = true

	v, err := semver.NewVersion(Version)
	if err != nil {
		return nil
	}
	parsedVersion = v
	return parsedVersion
}

// IsPrerelease reports whether this build carries a prerelease tag such as
// v1.2.0-rc.1. Dev builds are not prereleases, they are unversioned.
func IsPrerelease() bool {
	v := Parsed()
	if v == nil {
		return false
	}
	return v.Prerelease() != ""
}

// IsDevBuild reports whether the binary was built without a release tag.
func IsDevBuild() bool {
	return Parsed() == nil
}

// Compare orders this build against another version string: -1 when older,
// 0 when equal, 1 when newer. When either side is unparseable the answer
// is 0, so an update check degrades to "no opinion" instead of nagging a
// dev build.
func Compare(other string) int {
	current := Parsed()
	if current == nil {
		return 0
	}

	otherV, err := semver.NewVersion(other)
	if err != nil {
		return 0
	}

	return current.Compare(otherV)
}

// IsNewerThan reports whether this build is strictly newer than other.
func IsNewerThan(other string) bool {
	return Compare(other) > 0
}
