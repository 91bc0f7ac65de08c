package commands

import (
	"fmt"
	"sort"
	"strings"

	"f95api/lib/platforms/f95zone/platform"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(platformCmd)
}

func sortedNames(dict map[int]string) string {
	names := make([]string, 0, len(dict))
	for _, name := range dict {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

var platformCmd = &cobra.Command{
	Use:   "platform [name]",
	Short: "Prints the tags and prefixes known by the platform, or the ones resembling a name.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient()
		data, err := client.LoadPlatformData(cmd.Context())
		if err != nil {
			fatal("failed to load platform data", err)
		}

		if len(args) == 1 {
			suggestions := platform.Suggest(args[0], data.Tags, data.Engines, data.Statuses, data.Others)
			if len(suggestions) == 0 {
				fmt.Println("no match")
				return
			}
			fmt.Println(strings.Join(suggestions, "\n"))
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"Kind", "Count", "Names"})
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Names", WidthMax: 80}})
		t.AppendRows([]table.Row{
			{"Engines", len(data.Engines), sortedNames(data.Engines)},
			{"Statuses", len(data.Statuses), sortedNames(data.Statuses)},
			{"Others", len(data.Others), sortedNames(data.Others)},
			{"Tags", len(data.Tags), sortedNames(data.Tags)},
		})
		t.Render()
	},
}
