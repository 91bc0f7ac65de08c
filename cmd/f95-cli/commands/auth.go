package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in with the credentials of the config and persists the session.",
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient()
		result := login(cmd.Context(), client)
		fmt.Println(result.Code)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Removes the persisted session.",
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient()
		err := client.Logout()
		if err != nil {
			fatal("failed to logout", err)
		}
	},
}
