package commands

import (
	"fmt"
	"strconv"

	"f95api/lib/platforms/f95zone/scrape"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(userCmd)
}

func printUser(user scrape.PlatformUser) {
	t := newTable()
	t.AppendRows([]table.Row{
		{"ID", user.ID},
		{"Name", user.Name},
		{"Title", user.Title},
		{"Messages", user.Messages},
		{"Reaction score", user.ReactionScore},
		{"Points", user.Points},
		{"Joined", formatDate(user.Joined)},
		{"Last seen", formatDate(user.LastSeen)},
		{"Private", user.Private},
	})
	t.Render()
}

func unread(flag bool) string {
	if flag {
		return "*"
	}
	return ""
}

var userCmd = &cobra.Command{
	Use:   "user [id]",
	Short: "Prints a member of the forum, or the logged in user with its lists when no id is given.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := loggedClient(cmd.Context())

		if len(args) == 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fatal("invalid user id", err)
			}
			user, err := client.GetUser(cmd.Context(), id)
			if err != nil {
				fatal("failed to get user", err)
			}
			printUser(user)
			return
		}

		profile, err := client.GetUserData(cmd.Context())
		if err != nil {
			fatal("failed to get user data", err)
		}
		printUser(profile.User)

		fmt.Println("\nWatched threads")
		t := newTable()
		t.AppendHeader(table.Row{"", "Title", "Forum"})
		for _, watched := range profile.WatchedThreads {
			t.AppendRow(table.Row{unread(watched.Unread), watched.Title, watched.Forum})
		}
		t.Render()

		fmt.Println("\nBookmarks")
		t = newTable()
		t.AppendHeader(table.Row{"Title", "Author", "Created"})
		for _, bookmark := range profile.Bookmarks {
			t.AppendRow(table.Row{bookmark.Title, bookmark.OwnerName, formatDate(bookmark.Created)})
		}
		t.Render()

		fmt.Println("\nAlerts")
		t = newTable()
		t.AppendHeader(table.Row{"", "Alert", "Time"})
		for _, alert := range profile.Alerts {
			t.AppendRow(table.Row{unread(alert.Unread), alert.Text, formatDate(alert.Time)})
		}
		t.Render()

		fmt.Println("\nConversations")
		t = newTable()
		t.AppendHeader(table.Row{"", "Title", "Last reply"})
		for _, conversation := range profile.Conversations {
			t.AppendRow(table.Row{unread(conversation.Unread), conversation.Title, formatDate(conversation.LastReply)})
		}
		t.Render()
	},
}
