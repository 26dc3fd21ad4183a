package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	tempDirBase string
	tempDirOnce sync.Once
	tempDirErr  error
)

// TempOutputDir returns a process-wide scratch directory for rewritten
// trees when the caller did not pick an output location.
func TempOutputDir() (string, error) {
	tempDirOnce.Do(func() {
		tempDirBase, tempDirErr = os.MkdirTemp("", "timed-")
	})
	return tempDirBase, tempDirErr
}

// mirrorPath maps a file under root to the same relative location under
// outputDir, creating parent directories as needed.
func mirrorPath(root, filePath, outputDir string) (string, error) {
	rel, err := filepath.Rel(root, filePath)
	if err != nil {
		return "", err
	}
	target := filepath.Join(outputDir, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return target, nil
}
