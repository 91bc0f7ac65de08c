package commands

import (
	"strings"
	"time"

	"f95api/lib/platforms/f95zone/query"
	"f95api/lib/platforms/f95zone/scrape"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type searchFlags struct {
	category         string
	keywords         string
	creator          string
	includedTags     []string
	excludedTags     []string
	includedPrefixes []string
	excludedPrefixes []string
	order            string
	page             int
	limit            int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.category, "category", string(query.CategoryGames), "One of games, comics, animations or assets.")
	flags.StringVar(&f.keywords, "keywords", "", "Words the title must contain.")
	flags.StringVar(&f.creator, "creator", "", "The developer of the handiwork.")
	flags.StringSliceVar(&f.includedTags, "tag", nil, "Tags the handiwork must have.")
	flags.StringSliceVar(&f.excludedTags, "exclude-tag", nil, "Tags the handiwork must not have.")
	flags.StringSliceVar(&f.includedPrefixes, "prefix", nil, "Prefixes (engine, status...) the handiwork must have.")
	flags.StringSliceVar(&f.excludedPrefixes, "exclude-prefix", nil, "Prefixes the handiwork must not have.")
	flags.StringVar(&f.order, "order", string(query.OrderDate), "The order of the results.")
	flags.IntVar(&f.page, "page", query.MinPage, "The first page to read.")
	flags.IntVar(&f.limit, "limit", 30, "The maximum amount of results.")
}

var (
	latest    searchFlags
	latestDay int

	search        searchFlags
	searchNewer   int
	searchOlder   int
	searchReplies int
)

func init() {
	latest.register(latestCmd)
	latestCmd.Flags().IntVar(&latestDay, "days", 0, "Only threads updated in the last n days (1, 3, 7, 14, 30, 90, 180 or 365).")
	rootCmd.AddCommand(latestCmd)

	search.register(searchCmd)
	searchCmd.Flags().IntVar(&searchNewer, "newer-than", 0, "Only threads updated in the last n days.")
	searchCmd.Flags().IntVar(&searchOlder, "older-than", 0, "Only threads not updated in the last n days.")
	searchCmd.Flags().IntVar(&searchReplies, "replies", 0, "The minimum amount of replies.")
	rootCmd.AddCommand(searchCmd)
}

func printHandiworks(handiworks []scrape.Handiwork) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Version", "Developer", "Engine", "Status", "Updated"})
	for _, hw := range handiworks {
		t.AppendRow(table.Row{
			hw.ID,
			hw.Name,
			hw.Version,
			hw.Developer,
			hw.Engine,
			hw.Status,
			formatDate(hw.LastThreadUpdate),
		})
	}
	t.Render()
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Lists the latest updated handiworks.",
	Run: func(cmd *cobra.Command, args []string) {
		q := query.NewLatestSearchQuery()
		q.Category = query.Category(latest.category)
		q.Keywords = latest.keywords
		q.Creator = latest.creator
		q.IncludedTags = latest.includedTags
		q.ExcludedTags = latest.excludedTags
		q.IncludedPrefixes = latest.includedPrefixes
		q.ExcludedPrefixes = latest.excludedPrefixes
		q.Order = query.Order(latest.order)
		q.Page = latest.page
		q.Date = latestDay

		client := loggedClient(cmd.Context())
		handiworks, err := client.GetLatestUpdates(cmd.Context(), q, latest.limit)
		if err != nil {
			fatal("failed to get latest updates", err)
		}
		printHandiworks(handiworks)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Searches handiworks, using the thread search when the latest updates cannot serve the filters.",
	Run: func(cmd *cobra.Command, args []string) {
		now := time.Now()

		q := query.NewHandiworkSearchQuery()
		q.Category = query.Category(search.category)
		q.Keywords = strings.TrimSpace(search.keywords)
		q.Creator = search.creator
		q.IncludedTags = search.includedTags
		q.ExcludedTags = search.excludedTags
		q.IncludedPrefixes = search.includedPrefixes
		q.ExcludedPrefixes = search.excludedPrefixes
		q.Order = query.Order(search.order)
		q.Page = search.page
		q.MinimumReplies = searchReplies
		if searchNewer > 0 {
			q.NewerThan = now.AddDate(0, 0, -searchNewer)
		}
		if searchOlder > 0 {
			q.OlderThan = now.AddDate(0, 0, -searchOlder)
		}

		client := loggedClient(cmd.Context())
		handiworks, err := client.SearchHandiwork(cmd.Context(), q, search.limit)
		if err != nil {
			fatal("failed to search", err)
		}
		printHandiworks(handiworks)
	},
}
