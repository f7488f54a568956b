package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <site name>",
	Short: "Searches the portal for course sites, closest names first.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context(), cfg, "")
		if err != nil {
			return err
		}
		defer s.Close()

		results, err := s.Navigator.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"#", "Site", "Holders", "Access", "Url"})
		for i, result := range results {
			access := "no"
			if result.CanAccess {
				access = "yes"
			}
			t.AppendRow(table.Row{
				i + 1,
				result.Title,
				strings.Join(result.Holders, ", "),
				access,
				result.Url,
			})
		}
		t.Render()
		return nil
	},
}
