package version

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Info captures a tool version installed on the system.
type Info struct {
	Name    string
	Version string
}

var gitRegex = regexp.MustCompile(`(?i)git version\s+(\d+\.\d+(?:\.\d+)?)`)

// DetectGit returns the system git version by calling `git --version`.
func DetectGit() (Info, error) {
	out, err := runCommand("git", "--version")
	if err != nil {
		return Info{}, err
	}
	match := gitRegex.FindStringSubmatch(out)
	if len(match) < 2 {
		return Info{}, fmt.Errorf("unable to parse git version from %q", out)
	}
	return Info{Name: "git", Version: match[1]}, nil
}

func runCommand(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// AtLeast reports whether actual >= minimum, comparing numeric
// major.minor.patch segments. Missing segments count as zero.
func AtLeast(minimum, actual string) bool {
	minParts := segments(minimum)
	actParts := segments(actual)
	for i := 0; i < 3; i++ {
		if actParts[i] != minParts[i] {
			return actParts[i] > minParts[i]
		}
	}
	return true
}

func segments(version string) [3]int {
	var out [3]int
	parts := strings.Split(version, ".")
	for i := 0; i < len(parts) && i < 3; i++ {
		var v int
		fmt.Sscanf(parts[i], "%d", &v)
		out[i] = v
	}
	return out
}

// Missing reports whether executing the command returns a not-found error.
func Missing(cmdErr error) bool {
	return errors.Is(cmdErr, exec.ErrNotFound)
}
