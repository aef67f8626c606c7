package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfpatrick/bipy-gui-manager/internal/output"
	"github.com/jfpatrick/bipy-gui-manager/internal/phonebook"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <query>",
	Short: "Search the CERN phonebook",
	Long: `Search the CERN phonebook and print the matching records.

The query is passed to the phonebook command as is: a login, a surname
or any other term it understands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := newDirectory(newRunner()).Query(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return lookupPrint(entries)
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func lookupPrint(entries []phonebook.Entry) error {
	if len(entries) == 0 {
		ui.Info("No phonebook entries found.")
		return nil
	}

	table := ui.Table([]string{"NAME", "EMAIL", "GROUP", "LOGINS"})
	for _, e := range entries {
		logins := make([]string, len(e.Logins))
		for i, l := range e.Logins {
			logins[i] = l.ID
		}
		group := strings.Trim(e.Department+"-"+e.Group, "-")
		_ = table.Append([]string{output.Cyan(e.DisplayName), e.PrimaryEmail(), group, strings.Join(logins, ", ")})
	}
	return table.Render()
}
