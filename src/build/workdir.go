package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
)

// NewWorkRoot creates a scratch directory for one run under the user's
// cache home. Callers remove it once images are loaded into memory.
func NewWorkRoot() (string, error) {
	dir := filepath.Join(xdg.CacheHome, "steiger", "runs", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating work dir: %w", err)
	}
	return dir, nil
}
