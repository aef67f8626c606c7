// Package phonebook queries the CERN directory service through the
// `phonebook` command-line tool and parses its text report.
package phonebook

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
)

// ErrNotFound is returned when a login does not resolve to exactly one record.
var ErrNotFound = errors.New("no unique phonebook entry")

const (
	blockDelimiter  = "#--"
	lastLoginLayout = "02/01/06 15:04"
	neverLoggedIn   = "--/--/-- --:--"
)

// Number is a phone number with its external and internal forms.
type Number struct {
	External string
	Internal string
}

// Login is one computer account listed in a record.
type Login struct {
	ID        string
	Group     string
	Status    string
	UID       string
	GID       string
	LastLogin *time.Time
	Shell     string
	Home      string
}

// Entry is one person record from the report.
type Entry struct {
	Surname          string
	FirstName        string
	DisplayName      string
	Emails           []string
	Phones           []Number
	Mobiles          []Number
	Faxes            []Number
	Department       string
	Group            string
	Section          string
	POBox            string
	Location         string
	Organizations    []string
	ComputerCenterID string
	Logins           []Login
}

// HasLogin reports whether the record owns the given login.
func (e Entry) HasLogin(id string) bool {
	return slices.ContainsFunc(e.Logins, func(l Login) bool { return l.ID == id })
}

// PrimaryEmail returns the first listed address, or "".
func (e Entry) PrimaryEmail() string {
	if len(e.Emails) == 0 {
		return ""
	}
	return e.Emails[0]
}

// Parse splits a report into records. Only text enclosed between two
// delimiter lines counts, and only blocks starting with "Surname" are kept.
func Parse(report string) []Entry {
	var entries []Entry
	var block []string
	open := false

	for _, line := range strings.Split(report, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, blockDelimiter) {
			if open && len(block) > 0 && strings.HasPrefix(block[0], "Surname") {
				entries = append(entries, parseEntry(block))
			}
			block = nil
			open = true
			continue
		}
		if open {
			block = append(block, line)
		}
	}
	return entries
}

// Find returns the single record owning login. Zero or several owners both
// yield ErrNotFound.
func Find(entries []Entry, login string) (Entry, error) {
	var matches []Entry
	for _, e := range entries {
		if e.HasLogin(login) {
			matches = append(matches, e)
		}
	}
	if len(matches) != 1 {
		return Entry{}, fmt.Errorf("%w for %q (%d matches)", ErrNotFound, login, len(matches))
	}
	return matches[0], nil
}

type extractor func(e *Entry, value string)

// Field prefixes recognized in a record, matched against the start of a line.
var extractors = []struct {
	prefix string
	fn     extractor
}{
	{"Surname", func(e *Entry, v string) { e.Surname = v }},
	{"Firstname", func(e *Entry, v string) { e.FirstName = v }},
	{"Display Name", func(e *Entry, v string) { e.DisplayName = v }},
	{"E-mail", func(e *Entry, v string) { e.Emails = append(e.Emails, v) }},
	{"Other E-mail", func(e *Entry, v string) { e.Emails = append(e.Emails, v) }},
	{"Telephone", func(e *Entry, v string) { e.Phones = append(e.Phones, parseNumber(v)) }},
	{"Mobile", func(e *Entry, v string) { e.Mobiles = append(e.Mobiles, parseNumber(v)) }},
	{"Facsimile", func(e *Entry, v string) { e.Faxes = append(e.Faxes, parseNumber(v)) }},
	{"Department", func(e *Entry, v string) { e.Department = v }},
	{"Group", func(e *Entry, v string) { e.Group = v }},
	{"Section", func(e *Entry, v string) { e.Section = v }},
	{"POBox", func(e *Entry, v string) { e.POBox = strings.TrimSpace(strings.ReplaceAll(v, "(internal mail)", "")) }},
	{"Bld. Floor-Room", func(e *Entry, v string) { e.Location = v }},
	{"Organization", func(e *Entry, v string) { e.Organizations = append(e.Organizations, v) }},
	{"Computer Center ID", func(e *Entry, v string) { e.ComputerCenterID = v }},
}

func parseEntry(lines []string) Entry {
	var e Entry
	inAccounts := false

lines:
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, x := range extractors {
			if strings.HasPrefix(line, x.prefix) {
				x.fn(&e, fieldValue(line))
				continue lines
			}
		}
		if strings.HasPrefix(line, "Login") {
			inAccounts = true
			continue
		}
		if inAccounts {
			if l, ok := parseLogin(line); ok {
				e.Logins = append(e.Logins, l)
			}
		}
	}
	return e
}

func fieldValue(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(v)
}

func parseNumber(v string) Number {
	ext, internal, _ := strings.Cut(v, "(")
	internal = strings.ReplaceAll(internal, "internal:", "")
	return Number{
		External: strings.TrimSpace(ext),
		Internal: strings.Trim(internal, " ()"),
	}
}

func parseLogin(line string) (Login, bool) {
	f := strings.Fields(line)
	if len(f) < 9 {
		return Login{}, false
	}
	l := Login{
		ID:     f[0],
		Group:  f[1],
		Status: f[2],
		UID:    f[3],
		GID:    f[4],
		Shell:  f[7],
		Home:   f[8],
	}
	stamp := f[5] + " " + f[6]
	if stamp != neverLoggedIn {
		if t, err := time.Parse(lastLoginLayout, stamp); err == nil {
			l.LastLogin = &t
		}
	}
	return l, true
}

// Directory runs the lookup tool.
type Directory struct {
	Runner  proc.Runner
	Command string
}

// NewDirectory returns a Directory invoking command through runner.
func NewDirectory(runner proc.Runner, command string) *Directory {
	return &Directory{Runner: runner, Command: command}
}

// Query returns every record matching query (login, name, office...).
func (d *Directory) Query(ctx context.Context, query string) ([]Entry, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("phonebook: empty query")
	}
	res, err := d.Runner.Run(ctx, proc.Command{Name: d.Command, Args: []string{"-all", query}})
	if err != nil {
		return nil, fmt.Errorf("phonebook: %w", err)
	}
	if msg := strings.TrimSpace(res.Stderr); msg != "" {
		return nil, fmt.Errorf("phonebook: %s", msg)
	}
	return Parse(res.Stdout), nil
}

// Lookup resolves a login to its unique record.
func (d *Directory) Lookup(ctx context.Context, login string) (Entry, error) {
	entries, err := d.Query(ctx, login)
	if err != nil {
		return Entry{}, err
	}
	return Find(entries, login)
}
