package cmd

import (
	"github.com/pimctl/pimctl/internal/message"
	"github.com/pimctl/pimctl/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pimctl",
	Long:  `All software has versions. This is pimctl's`,
	Run: func(cmd *cobra.Command, args []string) {
		message.Info("%s", version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
