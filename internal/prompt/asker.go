// Package prompt collects answers from the terminal user and validates them.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"
)

// ErrInterrupted is returned when the user aborts a prompt with Ctrl+C.
var ErrInterrupted = errors.New("exiting on user's request")

// ErrNoInput is returned when stdin is closed before an answer was read.
var ErrNoInput = errors.New("no input available")

// Asker reads one answer per call from the user.
type Asker interface {
	Ask(question string) (string, error)
	Password(question string) (string, error)
	Confirm(question string, defaultYes bool) (bool, error)
}

// NewAsker picks a survey-based asker when in is a terminal and a plain
// line reader otherwise (pipes, CI).
func NewAsker(in, out *os.File) Asker {
	if term.IsTerminal(int(in.Fd())) {
		return &SurveyAsker{In: in, Out: out}
	}
	return NewLineAsker(in, out)
}

// SurveyAsker renders prompts with survey.
type SurveyAsker struct {
	In  terminal.FileReader
	Out terminal.FileWriter
}

func (a *SurveyAsker) opts() survey.AskOpt {
	return survey.WithStdio(a.In, a.Out, os.Stderr)
}

func (a *SurveyAsker) Ask(question string) (string, error) {
	var result string
	q := &survey.Input{Message: question}
	return result, surveyErr(survey.AskOne(q, &result, a.opts()))
}

func (a *SurveyAsker) Password(question string) (string, error) {
	var result string
	q := &survey.Password{Message: question}
	return result, surveyErr(survey.AskOne(q, &result, a.opts()))
}

func (a *SurveyAsker) Confirm(question string, defaultYes bool) (bool, error) {
	var result bool
	q := &survey.Confirm{Message: question, Default: defaultYes}
	return result, surveyErr(survey.AskOne(q, &result, a.opts()))
}

func surveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrInterrupted
	}
	return err
}

// LineAsker reads newline-terminated answers from a reader.
type LineAsker struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// NewLineAsker returns a LineAsker reading from in and printing questions to out.
func NewLineAsker(in io.Reader, out io.Writer) *LineAsker {
	a := &LineAsker{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.fd = int(f.Fd())
		a.tty = true
	}
	return a
}

func (a *LineAsker) Ask(question string) (string, error) {
	fmt.Fprintf(a.out, "=> %s ", question)
	return a.readLine()
}

// Password hides the typed characters when reading from a terminal.
func (a *LineAsker) Password(question string) (string, error) {
	fmt.Fprintf(a.out, "=> %s ", question)
	if !a.tty {
		return a.readLine()
	}
	b, err := term.ReadPassword(a.fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func (a *LineAsker) Confirm(question string, defaultYes bool) (bool, error) {
	suffix := "(yes/no)"
	for {
		answer, err := a.Ask(question + " " + suffix)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "":
			return defaultYes, nil
		}
		suffix = "Please type yes or no:"
	}
}

func (a *LineAsker) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
