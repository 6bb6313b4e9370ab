package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-rotation/pkg/errors"

	"github.com/stretchr/testify/suite"
)

// UtilsTestSuite is a test suite for utils package
type UtilsTestSuite struct {
	suite.Suite
}

// TestUtilsSuite runs the test suite
func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestGetResultFolder() {
	tests := []struct {
		name          string
		signalsPath   string
		resultsFolder string
		expectedPath  string
	}{
		{
			name:          "CSV signal file",
			signalsPath:   "/path/to/momentum.csv",
			resultsFolder: "/results",
			expectedPath:  "/results/momentum",
		},
		{
			name:          "File without extension",
			signalsPath:   "/path/to/signals",
			resultsFolder: "/results",
			expectedPath:  "/results/signals",
		},
		{
			name:          "Relative results folder",
			signalsPath:   "signals/mean_reversion.v2.csv",
			resultsFolder: "results",
			expectedPath:  "results/mean_reversion.v2",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expectedPath, getResultFolder(tc.resultsFolder, tc.signalsPath))
		})
	}
}

func (suite *UtilsTestSuite) TestGetResultFoldersDisambiguatesDuplicateNames() {
	folders := getResultFolders("/results", []string{
		"/a/signals.csv",
		"/b/signals.csv",
		"/b/other.csv",
	})

	suite.Equal([]string{
		"/results/signals",
		"/results/signals_1",
		"/results/other",
	}, folders)
}

func (suite *UtilsTestSuite) TestCheckResultsFolder() {
	cwd, err := os.Getwd()
	suite.Require().NoError(err)

	home, err := os.UserHomeDir()
	suite.Require().NoError(err)

	rejected := []struct {
		name   string
		folder string
	}{
		{name: "Working directory", folder: "."},
		{name: "Absolute working directory", folder: cwd},
		{name: "Parent of working directory", folder: filepath.Dir(cwd)},
		{name: "Home directory", folder: home},
		{name: "Filesystem root", folder: string(filepath.Separator)},
	}

	for _, tc := range rejected {
		suite.Run(tc.name, func() {
			err := checkResultsFolder(tc.folder)
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
		})
	}

	allowed := []string{
		filepath.Join(suite.T().TempDir(), "results"),
		"results",
		filepath.Join(cwd, "testdata", "results"),
	}

	for _, folder := range allowed {
		suite.NoError(checkResultsFolder(folder), folder)
	}
}
