package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nativeiq/nativeiq/internal/config"
	"github.com/nativeiq/nativeiq/internal/timeline"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ Native IQ Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 Native IQ Status")
		fmt.Printf("Version: %s\n", version)

		if configPath, err := config.ConfigPath(); err == nil {
			if _, err := os.Stat(configPath); err == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (using defaults)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("Config:  ? Unable to load:", err)
			return
		}

		if cfg.Providers.OpenAI.APIKey != "" {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found (set OPENAI_API_KEY)")
		}

		channelStatus := func(name string, enabled bool) {
			if enabled {
				fmt.Printf("%s: ✓ Enabled\n", name)
			} else {
				fmt.Printf("%s: ✗ Disabled\n", name)
			}
		}
		channelStatus("Telegram", cfg.Channels.Telegram.Enabled)
		channelStatus("Slack", cfg.Channels.Slack.Enabled)
		channelStatus("Scheduler", cfg.Scheduler.Enabled)
		channelStatus("Kafka events", cfg.Events.Enabled)

		if svc, err := timeline.NewTimelineService(cfg.Paths.TimelineDB); err == nil {
			if pending, err := svc.PendingApprovals(); err == nil {
				fmt.Printf("Pending approvals: %d\n", len(pending))
			}
			svc.Close()
		}

		fmt.Println("Status:  Ready")
	},
}
