package registry

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Validation regexes based on the OCI distribution spec.
var (
	// Repository path: lowercase, digits, separators (-, _, ., /).
	ociPathRe = regexp.MustCompile(`^[a-z0-9]+(?:(?:[._]|__|[-]+)[a-z0-9]+)*(?:/[a-z0-9]+(?:(?:[._]|__|[-]+)[a-z0-9]+)*)*$`)

	// Tag: alphanumeric, -, _, ., max 128 chars. Must start with alphanumeric or _.
	ociTagRe = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127}$`)

	// Registry host with optional port.
	hostRe = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9.-]*[a-zA-Z0-9])?(?::[0-9]+)?$`)

	// Env var prefix: uppercase letters, digits, underscore. Must start with letter.
	envPrefixRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
)

// ValidateHost checks a registry host[:port].
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("registry host is empty")
	}
	if containsControlChars(host) {
		return fmt.Errorf("registry host %q contains control characters", host)
	}
	if strings.Contains(host, "://") {
		return fmt.Errorf("registry host %q must not include a scheme", host)
	}
	if !hostRe.MatchString(host) {
		return fmt.Errorf("registry host %q is not a valid host[:port]", host)
	}
	return nil
}

// ValidateRepository checks that a repository path conforms to the OCI spec.
func ValidateRepository(path string) error {
	if path == "" {
		return fmt.Errorf("repository is empty")
	}
	if containsControlChars(path) {
		return fmt.Errorf("repository %q contains control characters", path)
	}
	if len(path) > 256 {
		return fmt.Errorf("repository %q exceeds 256 characters", path)
	}
	if !ociPathRe.MatchString(path) {
		return fmt.Errorf("repository %q contains invalid characters (OCI spec: lowercase, digits, -, _, ., /)", path)
	}
	return nil
}

// ValidateTag checks that a resolved tag conforms to the OCI spec.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag is empty")
	}
	if containsControlChars(tag) {
		return fmt.Errorf("tag %q contains control characters", tag)
	}
	if len(tag) > 128 {
		return fmt.Errorf("tag %q exceeds 128 characters", tag)
	}
	if !ociTagRe.MatchString(tag) {
		return fmt.Errorf("tag %q contains invalid characters (OCI spec: alphanumeric, -, _, .)", tag)
	}
	return nil
}

// ValidateCredentials checks that a credential prefix is a valid env var name.
func ValidateCredentials(prefix string) error {
	if prefix == "" {
		return nil // empty = docker credential store only
	}
	if !envPrefixRe.MatchString(strings.ToUpper(prefix)) {
		return fmt.Errorf("credentials prefix %q is not a valid env var name (expected: [A-Z][A-Z0-9_]*)", prefix)
	}
	return nil
}

func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}
