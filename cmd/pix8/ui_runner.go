package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"pix8/internal/driver"
	"pix8/internal/source"
	"pix8/internal/ui"
)

type dirOutcome struct {
	fileSet *source.FileSet
	results []driver.Result
	err     error
}

// fixDirWithProgress runs FixDir, streaming progress into the terminal
// UI when the mode allows it.
func fixDirWithProgress(cmd *cobra.Command, s *fixSettings, dir string) (*source.FileSet, []driver.Result, error) {
	if !shouldUseTUI(s.ui) {
		return s.driver.FixDir(cmd.Context(), dir)
	}

	files, err := driver.ListCarts(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return s.driver.FixDir(cmd.Context(), dir)
	}

	events := make(chan driver.Event, len(files))
	outcomeCh := make(chan dirOutcome, 1)

	opts := s.driver
	opts.Progress = func(ev driver.Event) { events <- ev }

	go func() {
		fileSet, results, err := opts.FixDir(cmd.Context(), dir)
		outcomeCh <- dirOutcome{fileSet: fileSet, results: results, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel("fixing "+dir, files, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.fileSet, outcome.results, uiErr
	}
	return outcome.fileSet, outcome.results, outcome.err
}
