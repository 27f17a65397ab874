package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nativeiq/nativeiq/internal/agent"
	"github.com/nativeiq/nativeiq/internal/approval"
	"github.com/nativeiq/nativeiq/internal/bus"
	"github.com/nativeiq/nativeiq/internal/config"
	"github.com/nativeiq/nativeiq/internal/session"
)

var (
	agentMessage string
	agentUserID  string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Send one message through the assistant in the terminal",
	Run:   runAgent,
}

func init() {
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Message to send")
	agentCmd.Flags().StringVarP(&agentUserID, "user", "u", "cli:default", "User ID for session state")
}

func runAgent(cmd *cobra.Command, args []string) {
	if agentMessage == "" {
		fmt.Println("Error: --message is required")
		os.Exit(1)
	}

	printHeader("🤖 Native IQ Agent")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	model := buildModel(cfg)
	registry, _ := buildRegistry()
	sessions := session.NewManager(cfg.Paths.SessionDir)
	approvals := approval.NewManager(registry, sessions, nil, cfg.Approval.TTL, cfg.Approval.ChainKeywords)

	loop := agent.NewLoop(agent.LoopOptions{
		Bus:       bus.NewMessageBus(),
		Model:     model,
		Registry:  registry,
		Sessions:  sessions,
		Approvals: approvals,
	})

	fmt.Printf("🤖 Native IQ (%s)\n", cfg.Model.Name)

	response := loop.Handle(context.Background(), &bus.InboundMessage{
		Channel: "cli",
		UserID:  agentUserID,
		ChatID:  agentUserID,
		Content: agentMessage,
	})
	if response == "" {
		response = "(nothing to do)"
	}
	fmt.Println("\n" + response)
}
