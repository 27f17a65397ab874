package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/nativeiq/nativeiq/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _   _       _   _           ___ ___\n" +
		" | \\ | | __ _| |_(_)_   _____|_ _/ _ \\\n" +
		" |  \\| |/ _` | __| \\ \\ / / _ \\| | | | |\n" +
		" | |\\  | (_| | |_| |\\ V /  __/| | |_| |\n" +
		" |_| \\_|\\__,_|\\__|_| \\_/ \\___|___\\__\\_\\\n"
)

var rootCmd = &cobra.Command{
	Use:   "nativeiq",
	Short: "Native IQ - Proactive Personal Assistant",
	Long:  color.CyanString(logo) + "\nA proactive assistant that watches your conversations, proposes actions, and only acts with your approval.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(doctorCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
