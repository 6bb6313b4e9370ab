package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-rotation/pkg/errors"
)

// getResultFolder returns <resultsFolder>/<signal file name without extension>.
func getResultFolder(resultsFolder string, signalsPath string) string {
	name := strings.TrimSuffix(filepath.Base(signalsPath), filepath.Ext(signalsPath))

	return filepath.Join(resultsFolder, name)
}

// getResultFolders returns one result folder per signal file. Files that share a
// name (from different directories) get the run index appended.
func getResultFolders(resultsFolder string, signalsPaths []string) []string {
	folders := make([]string, len(signalsPaths))
	seen := make(map[string]bool, len(signalsPaths))

	for i, path := range signalsPaths {
		folder := getResultFolder(resultsFolder, path)
		if seen[folder] {
			folder = fmt.Sprintf("%s_%d", folder, i)
		}

		seen[folder] = true
		folders[i] = folder
	}

	return folders
}

// checkResultsFolder rejects folders that Run must not wipe: the filesystem
// root, the working directory and the home directory, or any of their parents.
func checkResultsFolder(resultsFolder string) error {
	folder, err := filepath.Abs(resultsFolder)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to resolve results folder", err)
	}

	protected := []string{}

	if cwd, err := os.Getwd(); err == nil {
		protected = append(protected, cwd)
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		protected = append(protected, home)
	}

	if folder == filepath.Dir(folder) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "refusing to clean results folder %s", folder)
	}

	for _, dir := range protected {
		if isSameOrParent(folder, filepath.Clean(dir)) {
			return errors.Newf(errors.ErrCodeInvalidParameter, "refusing to clean results folder %s, it contains %s", folder, dir)
		}
	}

	return nil
}

// isSameOrParent reports whether dir equals path or is one of its ancestors.
func isSameOrParent(dir string, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
