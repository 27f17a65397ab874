package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nativeiq/nativeiq/internal/config"
	"github.com/nativeiq/nativeiq/internal/scheduler"
	"github.com/nativeiq/nativeiq/internal/timeline"
)

type checkStatus string

const (
	checkPass checkStatus = "pass"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

type doctorCheck struct {
	Name    string
	Status  checkStatus
	Message string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration and runtime prerequisites",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🩺 Native IQ Doctor")
		checks := runChecks()
		failed := false
		for _, c := range checks {
			switch c.Status {
			case checkPass:
				fmt.Printf("%s %-16s %s\n", color.GreenString("✓"), c.Name, c.Message)
			case checkWarn:
				fmt.Printf("%s %-16s %s\n", color.YellowString("!"), c.Name, c.Message)
			case checkFail:
				fmt.Printf("%s %-16s %s\n", color.RedString("✗"), c.Name, c.Message)
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
	},
}

// runChecks inspects config, storage paths, and channel credentials.
// Warnings are degraded-but-usable states; failures block the gateway.
func runChecks() []doctorCheck {
	var checks []doctorCheck
	add := func(name string, status checkStatus, format string, args ...any) {
		checks = append(checks, doctorCheck{Name: name, Status: status, Message: fmt.Sprintf(format, args...)})
	}

	cfgPath, err := config.ConfigPath()
	if err != nil {
		add("config_path", checkFail, "cannot resolve config path: %v", err)
		return checks
	}
	if _, err := os.Stat(cfgPath); err == nil {
		add("config_file", checkPass, "found at %s", cfgPath)
	} else if os.IsNotExist(err) {
		add("config_file", checkWarn, "not found at %s (defaults apply)", cfgPath)
	} else {
		add("config_file", checkFail, "cannot access config file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		add("config_load", checkFail, "config load failed: %v", err)
		return checks
	}
	add("config_load", checkPass, "configuration parsed")

	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		add("data_dir", checkFail, "cannot create %s: %v", cfg.Paths.DataDir, err)
	} else {
		add("data_dir", checkPass, "%s is writable", cfg.Paths.DataDir)
	}

	if err := config.EnsureDir(filepath.Dir(cfg.Paths.TimelineDB)); err != nil {
		add("timeline_db", checkFail, "cannot create db directory: %v", err)
	} else if svc, err := timeline.NewTimelineService(cfg.Paths.TimelineDB); err != nil {
		add("timeline_db", checkFail, "cannot open %s: %v", cfg.Paths.TimelineDB, err)
	} else {
		svc.Close()
		add("timeline_db", checkPass, "sqlite timeline at %s", cfg.Paths.TimelineDB)
	}

	if cfg.Providers.OpenAI.APIKey != "" {
		add("llm_provider", checkPass, "API key configured")
	} else {
		add("llm_provider", checkWarn, "no API key; keyword heuristics only (set OPENAI_API_KEY)")
	}

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		add("telegram", checkFail, "enabled but TELEGRAM_TOKEN is empty")
	} else if cfg.Channels.Telegram.Enabled {
		add("telegram", checkPass, "enabled")
	} else {
		add("telegram", checkWarn, "disabled")
	}
	if cfg.Channels.Slack.Enabled && (cfg.Channels.Slack.BotToken == "" || cfg.Channels.Slack.AppToken == "") {
		add("slack", checkFail, "enabled but bot or app token is empty")
	} else if cfg.Channels.Slack.Enabled {
		add("slack", checkPass, "enabled")
	} else {
		add("slack", checkWarn, "disabled")
	}

	if cfg.Scheduler.ActiveWindow != "" {
		if _, err := scheduler.ParseWindow(cfg.Scheduler.ActiveWindow); err != nil {
			add("scheduler", checkFail, "bad active window %q: %v", cfg.Scheduler.ActiveWindow, err)
		} else {
			add("scheduler", checkPass, "active window %q", cfg.Scheduler.ActiveWindow)
		}
	} else if cfg.Scheduler.Enabled {
		add("scheduler", checkPass, "enabled, always active")
	} else {
		add("scheduler", checkWarn, "disabled")
	}

	if cfg.Events.Enabled && cfg.Events.Brokers == "" {
		add("kafka_events", checkFail, "enabled but KAFKA_BROKERS is empty")
	} else if cfg.Events.Enabled {
		add("kafka_events", checkPass, "brokers %v topic %q", cfg.Events.BrokerList(), cfg.Events.Topic)
	} else {
		add("kafka_events", checkWarn, "disabled (no audit trail)")
	}

	return checks
}
