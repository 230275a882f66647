package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

var pageTheme = progressbar.Theme{
	Saucer:        "█",
	SaucerHead:    "█",
	SaucerPadding: "░",
	BarStart:      "│",
	BarEnd:        "│",
}

// PageBar tracks pages completed out of a document's page count.
type PageBar struct {
	bar *progressbar.ProgressBar
}

// NewPageBar starts a bar for a document with pages pages.
func NewPageBar(pages int) *PageBar {
	return &PageBar{bar: progressbar.NewOptions(pages,
		progressbar.OptionSetDescription("Pages"),
		progressbar.OptionSetTheme(pageTheme),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)}
}

// PageDone marks page (1-based) as complete.
func (p *PageBar) PageDone(page int) {
	_ = p.bar.Set(page)
}

// Finish fills the bar.
func (p *PageBar) Finish() {
	_ = p.bar.Finish()
}

// Spinner shows indeterminate work on stderr.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a stopped spinner showing message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	return &Spinner{s: s}
}

// Start begins the animation.
func (sp *Spinner) Start() { sp.s.Start() }

// Stop clears the spinner line. Stopping twice is a no-op.
func (sp *Spinner) Stop() { sp.s.Stop() }

// UpdateMessage replaces the text beside the spinner.
func (sp *Spinner) UpdateMessage(message string) {
	sp.s.Lock()
	sp.s.Suffix = " " + message
	sp.s.Unlock()
}
