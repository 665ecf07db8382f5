// Package keybuilder implements the naming & placement engine: the
// deterministic mapping from (root, owner, workspace, base_path) to an
// object-key prefix, and the content-derived id used for index
// documents. Every function here is pure so the policy synthesizer and
// the event handler can call it without touching the database.
package keybuilder

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/storj-labs/workspace-broker/internal/model"
)

// isAllowedSanitizeChar reports membership in the conservative character class usernames
// and workspace names are restricted to before they are ever spliced
// into an S3 key or an IAM policy ARN. The teacher's sanitize was a
// documented TODO (spec §4.A); this is the conservative subset the
// spec's Open Questions section asks implementers to enforce.
func isAllowedSanitizeChar(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	default:
		return false
	}
}

// Sanitize rejects any character outside [A-Za-z0-9._-] by returning a
// non-nil error; it never silently strips or rewrites input, because
// silently coercing a name would let two different requested names
// collide on the same prefix.
func Sanitize(name string) (string, error) {
	if name == "" {
		return "", errInvalidName("name is empty")
	}
	for _, r := range name {
		if !isAllowedSanitizeChar(r) {
			return "", errInvalidName("name %q contains disallowed character %q", name, string(r))
		}
	}
	return name, nil
}

type invalidNameError struct{ msg string }

func (e *invalidNameError) Error() string { return e.msg }

func errInvalidName(format string, args ...interface{}) error {
	return &invalidNameError{msg: fmt.Sprintf(format, args...)}
}

// stripSlashes trims leading/trailing '/' and collapses internal
// "//" introduced by joining possibly-empty segments.
func stripSlashes(s string) string {
	parts := strings.Split(s, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

func join(parts ...string) string {
	return strings.Join(parts, "/")
}

// WorkspaceKey computes the object-key prefix for a workspace inside
// its root, per spec §4.A:
//
//	unmanaged:        strip_slashes(join(root.base_path, workspace.base_path))
//	public/private:   strip_slashes(join(root.base_path, sanitize(owner), sanitize(name)))
func WorkspaceKey(ws model.Workspace, root model.WorkspaceRoot, owner model.User) (string, error) {
	if ws.IsUnmanaged() {
		return stripSlashes(join(root.BasePath, ws.BasePath)), nil
	}

	username, err := Sanitize(owner.Username)
	if err != nil {
		return "", err
	}
	name, err := Sanitize(ws.Name)
	if err != nil {
		return "", err
	}
	return stripSlashes(join(root.BasePath, username, name)), nil
}

// PrimaryKey computes the content-derived index document id: the
// inputs are concatenated in exactly this order, with no delimiter,
// SHA-256'd, and the last 16 hex characters are kept. Implementers
// must reproduce this ordering bit-for-bit for cross-broker
// compatibility (spec §4.A).
func PrimaryKey(apiURL, bucket, workspacePrefix, innerPath string) string {
	h := sha256.New()
	h.Write([]byte(apiURL))
	h.Write([]byte(bucket))
	h.Write([]byte(workspacePrefix))
	h.Write([]byte(innerPath))
	sum := hex.EncodeToString(h.Sum(nil))
	return sum[len(sum)-16:]
}
