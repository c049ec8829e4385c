package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finbrief/internal/service"
)

var (
	generateTest       bool
	generateSaveOnly   bool
	generateRecipients []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one newsletter issue and deliver it",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := getApp().Generate(cmd.Context(), service.RunOptions{
			TestMode:   generateTest,
			SaveOnly:   generateSaveOnly,
			Recipients: generateRecipients,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, path := range res.Paths {
			fmt.Fprintf(out, "wrote %s\n", path)
		}
		if !generateSaveOnly {
			fmt.Fprintf(out, "delivered to %d of %d recipients\n", res.Delivered, res.Recipients)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&generateTest, "test", false, "Send only to the addresses given via --recipients")
	generateCmd.Flags().BoolVar(&generateSaveOnly, "save-only", false, "Write files without sending email")
	generateCmd.Flags().StringSliceVar(&generateRecipients, "recipients", nil, "Override the subscriber list with explicit addresses")
}
