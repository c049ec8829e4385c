package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var subscriberName string

var addCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Add or reactivate a subscriber",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().AddSubscriber(args[0], subscriberName)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <email>",
	Short: "Remove a subscriber",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RemoveSubscriber(args[0])
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <email>",
	Short: "Mark a subscriber active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SetSubscriberActive(args[0], true)
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <email>",
	Short: "Mark a subscriber inactive without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SetSubscriberActive(args[0], false)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		subs, err := getApp().ListSubscribers()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, sub := range subs {
			state := "active"
			if !sub.Active {
				state = "inactive"
			}
			if sub.Name != "" {
				fmt.Fprintf(out, "%s\t%s\t%s\n", sub.Email, sub.Name, state)
			} else {
				fmt.Fprintf(out, "%s\t-\t%s\n", sub.Email, state)
			}
		}
		fmt.Fprintf(out, "%d total\n", len(subs))
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&subscriberName, "name", "", "Display name for the subscriber")
}
