package main

import (
	"time"

	"github.com/spf13/cobra"

	"omega/pkg/log"
)

const (
	defaultServer  = "http://127.0.0.1:8094"
	defaultTimeout = 10 * time.Second
)

var (
	serverURL string
	timeout   time.Duration
	debug     bool

	refresh  bool
	dmTarget string
	priority string
	urgent   bool
	severity string
	note     string
	runTest  bool

	rootCmd = &cobra.Command{
		Use:   "omegactl",
		Short: "Command line client for the omega dashboard daemon",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debug {
				log.SetDebugMode()
			}
		},
		SilenceUsage: true,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		RunE:  runGet("/version"),
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Show backend health",
		RunE:  runGet("/dash/system/health"),
	}

	hostCmd = &cobra.Command{
		Use:   "host",
		Short: "Show uptime, load, memory and storage of the daemon host",
		RunE:  runGet("/dash/host"),
	}

	snapshotCmd = &cobra.Command{
		Use:   "snapshot",
		Short: "Show the latest polled dashboard state",
		RunE:  runSnapshot,
	}

	nodesCmd = &cobra.Command{
		Use:   "nodes",
		Short: "List ally nodes",
		RunE:  runGet("/dash/ally/nodes"),
	}

	pingCmd = &cobra.Command{
		Use:   "ping [node-id]",
		Short: "Ping an ally node",
		Args:  cobra.ExactArgs(1),
		RunE:  runNodeAction("ping"),
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Show the global chat, or a DM thread with --to",
		RunE:  runChat,
	}

	sendCmd = &cobra.Command{
		Use:   "send [text]",
		Short: "Send a chat message; offline sends are queued by the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSend,
	}

	broadcastCmd = &cobra.Command{
		Use:   "broadcast [title] [message]",
		Short: "Broadcast an emergency alert to all nodes",
		Args:  cobra.ExactArgs(2),
		RunE:  runBroadcast,
	}

	queueCmd = &cobra.Command{
		Use:   "queue",
		Short: "Show queued outbound messages",
		RunE:  runGet("/dash/queue"),
	}

	retryCmd = &cobra.Command{
		Use:   "retry",
		Short: "Retry delivery of queued messages now",
		RunE:  runPost("/dash/queue/retry"),
	}

	discardCmd = &cobra.Command{
		Use:   "discard [id]",
		Short: "Drop a queued message without delivering it",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiscard,
	}

	statusCmd = &cobra.Command{
		Use:   "status [good|okay|need_help]",
		Short: "Show or set your ally status",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatus,
	}

	unlockCmd = &cobra.Command{
		Use:   "unlock [pin]",
		Short: "Unlock admin actions with the PIN",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnlock,
	}

	selftestCmd = &cobra.Command{
		Use:   "selftest",
		Short: "Show the last self-test report, or run one with --run",
		RunE:  runSelfTest,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServer, "Daemon base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	snapshotCmd.Flags().BoolVar(&refresh, "refresh", false, "Poll every resource before printing")
	chatCmd.Flags().StringVar(&dmTarget, "to", "", "Node id of a DM thread")
	sendCmd.Flags().StringVar(&dmTarget, "to", "", "Send as a DM to this node id")
	sendCmd.Flags().StringVar(&priority, "priority", "", "Global chat priority: normal, urgent or emergency")
	sendCmd.Flags().BoolVar(&urgent, "urgent", false, "Mark a DM urgent")
	broadcastCmd.Flags().StringVar(&severity, "severity", "", "Alert severity, defaults to warning")
	statusCmd.Flags().StringVar(&note, "note", "", "Note attached to need_help")
	selftestCmd.Flags().BoolVar(&runTest, "run", false, "Run a new self-test (admin)")

	queueCmd.AddCommand(retryCmd, discardCmd)
	rootCmd.AddCommand(versionCmd, healthCmd, hostCmd, snapshotCmd, nodesCmd, pingCmd,
		chatCmd, sendCmd, broadcastCmd, queueCmd, statusCmd, unlockCmd, selftestCmd)
}
