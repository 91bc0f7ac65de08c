package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var threadPosts int

func init() {
	rootCmd.AddCommand(handiworkCmd)
	threadCmd.Flags().IntVar(&threadPosts, "posts", 20, "The amount of posts to print.")
	rootCmd.AddCommand(threadCmd)
}

var handiworkCmd = &cobra.Command{
	Use:   "handiwork <url>",
	Short: "Prints the details of the handiwork of a thread.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := loggedClient(cmd.Context())
		hw, err := client.GetHandiworkFromURL(cmd.Context(), args[0])
		if err != nil {
			fatal("failed to get handiwork", err)
		}

		t := newTable()
		t.AppendRows([]table.Row{
			{"ID", hw.ID},
			{"Url", hw.Url},
			{"Name", hw.Name},
			{"Version", hw.Version},
			{"Developer", hw.Developer},
			{"Engine", hw.Engine},
			{"Status", hw.Status},
			{"Censored", hw.Censored},
			{"Tags", strings.Join(hw.Tags, ", ")},
			{"Genre", strings.Join(hw.Genre, ", ")},
			{"OS", strings.Join(hw.OS, ", ")},
			{"Languages", strings.Join(hw.Languages, ", ")},
			{"Rating", fmt.Sprintf("%.1f (%d votes)", hw.Rating.Average, hw.Rating.Count)},
			{"Released", formatDate(hw.LastRelease)},
			{"Updated", formatDate(hw.LastThreadUpdate)},
			{"Cover", hw.Cover},
		})
		t.Render()

		if hw.Overview != "" {
			fmt.Println()
			fmt.Println(hw.Overview)
		}
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread <url>",
	Short: "Prints a thread and its first posts.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := loggedClient(cmd.Context())
		thread, err := client.GetThread(cmd.Context(), args[0])
		if err != nil {
			fatal("failed to get thread", err)
		}
		posts, err := client.GetPosts(cmd.Context(), thread, threadPosts)
		if err != nil {
			fatal("failed to get posts", err)
		}

		fmt.Printf("%s (%s, %d pages)\n", thread.Title, thread.OwnerName, thread.Pages)

		t := newTable()
		t.AppendHeader(table.Row{"#", "Author", "Published", "Text"})
		for _, post := range posts {
			summary := strings.ReplaceAll(post.Body.PlainText(), "\n", " ")
			t.AppendRow(table.Row{
				post.Number,
				post.OwnerName,
				formatDate(post.Published),
				text.Trim(summary, 80),
			})
		}
		t.Render()
	},
}
