// Package semver handles the strict MAJOR.MINOR.PATCH version strings
// used for artifact versions. Ordering is delegated to
// golang.org/x/mod/semver; this package adds the strict-format check
// (x/mod accepts partial versions and pre-release suffixes, artifact
// versions allow neither).
package semver

import (
	"fmt"
	"strconv"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

// Initial is the version string assigned to an artifact's first version.
const Initial = "1.0.0"

// Parse splits a strict MAJOR.MINOR.PATCH string into its components.
func Parse(version string) (major, minor, patch int, err error) {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version %q is not MAJOR.MINOR.PATCH", version)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		if part == "" || (len(part) > 1 && part[0] == '0') {
			return 0, 0, 0, fmt.Errorf("version %q is not MAJOR.MINOR.PATCH", version)
		}
		n, convErr := strconv.Atoi(part)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("version %q is not MAJOR.MINOR.PATCH", version)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}

// Valid reports whether version is a strict MAJOR.MINOR.PATCH string.
func Valid(version string) bool {
	_, _, _, err := Parse(version)
	return err == nil
}

// Compare orders two strict versions: -1, 0, or +1.
func Compare(a, b string) (int, error) {
	if !Valid(a) {
		return 0, fmt.Errorf("version %q is not MAJOR.MINOR.PATCH", a)
	}
	if !Valid(b) {
		return 0, fmt.Errorf("version %q is not MAJOR.MINOR.PATCH", b)
	}
	return xsemver.Compare("v"+strings.TrimSpace(a), "v"+strings.TrimSpace(b)), nil
}

// BumpPatch increments the PATCH component.
func BumpPatch(version string) (string, error) {
	major, minor, patch, err := Parse(version)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.%d", major, minor, patch+1), nil
}

// BumpMinor increments MINOR and resets PATCH.
func BumpMinor(version string) (string, error) {
	major, minor, _, err := Parse(version)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.0", major, minor+1), nil
}

// BumpMajor increments MAJOR and resets MINOR and PATCH.
func BumpMajor(version string) (string, error) {
	major, _, _, err := Parse(version)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.0.0", major+1), nil
}
