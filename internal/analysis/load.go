package analysis

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
)

// ReadReport reads the HTML report at path. A missing or unreadable file is
// not an error for the analysis: the returned pointer is nil and reason
// explains why.
func ReadReport(fsys afero.Fs, path string) (html *string, reason string) {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Sprintf("%s: %s", reportUnavailable, path)
		}
		return nil, fmt.Sprintf("%s: %v", reportUnavailable, err)
	}
	s := string(b)
	return &s, ""
}

// LoadInput assembles an Input from captured script outputs and the report
// file on fsys.
func LoadInput(fsys afero.Fs, reportPath, standbyOutput, dailyOutput string) Input {
	html, reason := ReadReport(fsys, reportPath)
	return Input{
		StandbyOutput: standbyOutput,
		DailyOutput:   dailyOutput,
		HTML:          html,
		ReportPath:    reportPath,
		ReportErr:     reason,
	}
}
