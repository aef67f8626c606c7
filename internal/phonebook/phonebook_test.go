package phonebook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfpatrick/bipy-gui-manager/internal/proc"
	"github.com/jfpatrick/bipy-gui-manager/internal/proc/proctest"
)

const sampleReport = `#------------------------------------------------------------------------------
Surname:            Betz
Firstname:          Michael
Display Name:       Michael Betz
E-mail:             Michael.Betz@cern.ch
Other E-mail:       mbetz.Service@cern.ch
Telephone:          +41227678143                              (internal:  78143)
Mobile:             -                                         (internal:      -)
Facsimile:          -                                         (internal:      -)
Department:         BE
Group:              BI
POBox:              Z05000                                    (internal mail)
Bld. Floor-Room:    864 1-C12
Organization:       KIT
Organization:       KIT
Organization:        Karlsruhe Institute of  Technology (DE)
Computer Center ID: 700527

Computer account(s):
Login    Grp St Uid   Gid  Last login    Shell    Home directory

mbetz    si  PA 55850 1077 23/06/13 13:20 /bin/bash /afs/cern.ch/user/m/mbetz
mbetzs   sv  sD 37339 1019 --/--/-- --:-- /bin/bash /afs/cern.ch/user/m/mbetzs
#-------------------------------------------------------------------------------
Surname:            Betz
Firstname:          Christine
Display Name:       Christine Betz
E-mail:             Christine.Betz@cern.ch
Telephone:          -                                         (internal:      -)
Mobile:             -                                         (internal:      -)
Facsimile:          -                                         (internal:      -)
Department:         BE
Group:              CO
POBox:              -                                         (internal mail)
Bld. Floor-Room:    -
Organization:       -
Computer Center ID: 713793

Computer account(s):
Login    Grp St Uid   Gid  Last login    Shell    Home directory

cbetz    si  PA 59022 1077 25/04/13 10:14 /bin/bash /afs/cern.ch/user/c/cbetz
mbetz    si  PA 59023 1077 25/04/13 10:14 /bin/bash /afs/cern.ch/user/c/mbetz
#-------------------------------------------------------------------------------
Surname:            Betz
Firstname:          Jochen
Display Name:       Jochen Betz
E-mail:             jochen.betz@cern.ch
Other E-mail:       fesa3.courses.svn@cern.ch
Telephone:          +41227662412                              (internal:  62412)
Mobile:             -                                         (internal:      -)
Facsimile:          -                                         (internal:      -)
Department:         BE
Group:              CO
POBox:              Z03400                                    (internal mail)
Bld. Floor-Room:    864 2-A12
Organization:       CERN
Computer Center ID: 737141

Computer account(s):
Login    Grp St Uid   Gid  Last login    Shell    Home directory

jbetz    si  PA 41372 1077 28/06/13 15:23 /bin/bash /afs/cern.ch/user/j/jbetz
f3course si  sA 49178 1077 21/05/13 11:53 /bin/bash /afs/cern.ch/user/f/f3course
#-------------------------------------------------------------------------------
#Account St(atus): P(rimary), S(econdary), s(ervice), U(nknown)
#                  A(ctive),  D(isabled),  P(assword expired),  L(ocked out)`

func TestParse_Records(t *testing.T) {
	entries := Parse(sampleReport)
	require.Len(t, entries, 3)

	m := entries[0]
	assert.Equal(t, "Betz", m.Surname)
	assert.Equal(t, "Michael", m.FirstName)
	assert.Equal(t, "Michael Betz", m.DisplayName)
	assert.Equal(t, []string{"Michael.Betz@cern.ch", "mbetz.Service@cern.ch"}, m.Emails)
	assert.Equal(t, "Michael.Betz@cern.ch", m.PrimaryEmail())
	assert.Equal(t, []Number{{External: "+41227678143", Internal: "78143"}}, m.Phones)
	assert.Equal(t, []Number{{External: "-", Internal: "-"}}, m.Mobiles)
	assert.Equal(t, "BE", m.Department)
	assert.Equal(t, "BI", m.Group)
	assert.Equal(t, "Z05000", m.POBox)
	assert.Equal(t, "864 1-C12", m.Location)
	assert.Equal(t, []string{"KIT", "KIT", "Karlsruhe Institute of  Technology (DE)"}, m.Organizations)
	assert.Equal(t, "700527", m.ComputerCenterID)
}

func TestParse_Logins(t *testing.T) {
	entries := Parse(sampleReport)
	require.Len(t, entries, 3)

	logins := entries[0].Logins
	require.Len(t, logins, 2)

	assert.Equal(t, "mbetz", logins[0].ID)
	assert.Equal(t, "si", logins[0].Group)
	assert.Equal(t, "PA", logins[0].Status)
	assert.Equal(t, "55850", logins[0].UID)
	assert.Equal(t, "1077", logins[0].GID)
	assert.Equal(t, "/bin/bash", logins[0].Shell)
	assert.Equal(t, "/afs/cern.ch/user/m/mbetz", logins[0].Home)
	require.NotNil(t, logins[0].LastLogin)
	assert.Equal(t, time.Date(2013, time.June, 23, 13, 20, 0, 0, time.UTC), *logins[0].LastLogin)

	assert.Equal(t, "mbetzs", logins[1].ID)
	assert.Nil(t, logins[1].LastLogin)
}

func TestParse_IgnoresTrailingComments(t *testing.T) {
	entries := Parse(sampleReport)
	for _, e := range entries {
		assert.NotEmpty(t, e.Surname)
	}
	assert.Equal(t, "Jochen", entries[2].FirstName)
	assert.Len(t, entries[2].Logins, 2)
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("no delimiters here\nSurname: X\n"))
}

func TestParse_SkipsBlocksWithoutSurname(t *testing.T) {
	report := "#---\nHeader: stuff\n#---\nSurname: Doe\nFirstname: Jane\n#---\n"
	entries := Parse(report)
	require.Len(t, entries, 1)
	assert.Equal(t, "Doe", entries[0].Surname)
}

func TestFind_ExactlyOne(t *testing.T) {
	entries := Parse(sampleReport)

	e, err := Find(entries, "jbetz")
	require.NoError(t, err)
	assert.Equal(t, "Jochen Betz", e.DisplayName)

	e, err = Find(entries, "f3course")
	require.NoError(t, err)
	assert.Equal(t, "jochen.betz@cern.ch", e.PrimaryEmail())
}

func TestFind_Absent(t *testing.T) {
	_, err := Find(Parse(sampleReport), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind_Ambiguous(t *testing.T) {
	// "mbetz" is listed under two records in the sample.
	_, err := Find(Parse(sampleReport), "mbetz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectory_Lookup(t *testing.T) {
	runner := &proctest.Runner{Handle: func(cmd proc.Command) (proc.Result, error) {
		return proctest.Output(sampleReport)
	}}
	d := NewDirectory(runner, "phonebook")

	e, err := d.Lookup(context.Background(), "cbetz")
	require.NoError(t, err)
	assert.Equal(t, "Christine Betz", e.DisplayName)
	require.Len(t, runner.Calls, 1)
	assert.Equal(t, "phonebook -all cbetz", runner.Calls[0].String())
}

func TestDirectory_StderrMeansNoEntries(t *testing.T) {
	runner := &proctest.Runner{Handle: func(cmd proc.Command) (proc.Result, error) {
		return proc.Result{Stdout: sampleReport, Stderr: "ldap unreachable"}, nil
	}}
	d := NewDirectory(runner, "phonebook")

	entries, err := d.Query(context.Background(), "cbetz")
	assert.Error(t, err)
	assert.Empty(t, entries)
}

func TestDirectory_CommandFailure(t *testing.T) {
	runner := &proctest.Runner{Handle: func(cmd proc.Command) (proc.Result, error) {
		return proctest.Fail(cmd, 127, "command not found")
	}}
	d := NewDirectory(runner, "phonebook")

	_, err := d.Lookup(context.Background(), "cbetz")
	var exitErr *proc.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestDirectory_EmptyQuery(t *testing.T) {
	runner := &proctest.Runner{}
	_, err := NewDirectory(runner, "phonebook").Query(context.Background(), "  ")
	assert.Error(t, err)
	assert.Empty(t, runner.Calls)
}
