package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the folio CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("folio version %s\n", version)
		fmt.Println("A daily mark-to-market portfolio tracker")
		fmt.Println("https://github.com/rustyeddy/folio")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
