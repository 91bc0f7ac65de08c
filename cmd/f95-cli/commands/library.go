package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"f95api/internal/library"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(untrackCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(checkCmd)
}

var trackCmd = &cobra.Command{
	Use:   "track <url>",
	Short: "Adds the handiwork of a thread to the library.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := loggedClient(cmd.Context())
		hw, err := client.GetHandiworkFromURL(cmd.Context(), args[0])
		if err != nil {
			fatal("failed to get handiwork", err)
		}

		lib := openLibrary()
		defer lib.Close()
		err = lib.Track(cmd.Context(), hw)
		if err != nil {
			fatal("failed to track handiwork", err)
		}
		fmt.Printf("tracking %s %s\n", hw.Name, hw.Version)
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <thread id>",
	Short: "Removes a handiwork from the library.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			fatal("invalid thread id", err)
		}
		lib := openLibrary()
		defer lib.Close()
		err = lib.Untrack(cmd.Context(), id)
		if err != nil {
			fatal("failed to untrack handiwork", err)
		}
	},
}

func printLibrary(entries []library.Entry) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Name", "Version", "Updated", "Checked", "Update"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.ThreadID,
			entry.Name,
			entry.Version,
			formatDate(entry.LastUpdate),
			formatDate(entry.CheckedAt),
			unread(entry.HasUpdate),
		})
	}
	t.Render()
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Lists the tracked handiworks.",
	Run: func(cmd *cobra.Command, args []string) {
		lib := openLibrary()
		defer lib.Close()
		entries, err := lib.List(cmd.Context())
		if err != nil {
			fatal("failed to list library", err)
		}
		printLibrary(entries)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Checks every tracked handiwork for updates.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		lib := openLibrary()
		defer lib.Close()
		entries, err := lib.List(ctx)
		if err != nil {
			fatal("failed to list library", err)
		}

		client := loggedClient(ctx)
		for i, entry := range entries {
			updated, err := client.CheckIfHandiworkHasUpdate(ctx, entry.Handiwork())
			if err != nil {
				if ctx.Err() != nil {
					fatal("check interrupted", ctx.Err())
				}
				slog.Warn("failed to check handiwork", "thread", entry.ThreadID, "err", err)
				continue
			}
			err = lib.MarkChecked(ctx, entry.ThreadID, updated)
			if err != nil && !errors.Is(err, library.ErrNotTracked) {
				fatal("failed to save check", err)
			}
			entries[i].HasUpdate = updated
		}
		printLibrary(entries)
	},
}
