package gitver

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ExpandTag resolves a tag template against s.
//
// Supported placeholders:
//
//	{tag}      → DefaultTag: "v1.2.3", "abc1234", "abc1234-dirty"
//	{sha}      → "abc1234"
//	{commit}   → full commit hash
//	{branch}   → "main" (slashes become dashes)
//	{version}  → "1.2.3" when the HEAD tag is semver, else "0.0.0"
//	{major}, {minor}, {patch}
//
// An empty template means "{tag}".
func ExpandTag(tmpl string, s *State) string {
	if tmpl == "" {
		tmpl = "{tag}"
	}

	v := semver.New(0, 0, 0, "", "")
	if s.Tag != "" {
		if parsed, err := semver.NewVersion(s.Tag); err == nil {
			v = parsed
		}
	}

	r := strings.NewReplacer(
		"{tag}", s.DefaultTag(),
		"{sha}", s.Short(),
		"{commit}", s.Commit,
		"{branch}", sanitizeTag(s.Branch),
		"{version}", v.String(),
		"{major}", strconv.FormatUint(v.Major(), 10),
		"{minor}", strconv.FormatUint(v.Minor(), 10),
		"{patch}", strconv.FormatUint(v.Patch(), 10),
	)
	return sanitizeTag(r.Replace(tmpl))
}

// sanitizeTag replaces characters not allowed in OCI tags.
func sanitizeTag(s string) string {
	r := strings.NewReplacer(
		"/", "-",
		" ", "-",
		"+", "-",
		"~", "-",
	)
	return r.Replace(s)
}
