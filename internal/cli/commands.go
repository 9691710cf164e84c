package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexAdvisor/config"
	"github.com/dyike/CortexAdvisor/internal/controller"
	"github.com/dyike/CortexAdvisor/internal/display"
	"github.com/dyike/CortexAdvisor/models"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "advisor",
		Short: "CortexAdvisor - conversational stock advice",
		Long: `CortexAdvisor is a terminal front-end for a stock advice service.
Ask about a stock in plain language, then run a backtest of it from the analysis panel.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			chat := NewChat(env.ctrl, NewSurveyPrompter(), cmd.OutOrStdout())
			return chat.Run(contextOf(cmd))
		},
	}

	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newEvaluateCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&opts.backendURL, "backend-url", "", "Advisor service base URL")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	return rootCmd
}

// newAskCmd sends one message and prints the reply.
func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text...>",
		Short: "Ask about a stock once and print the answer",
		Long: `Ask about a stock once and print the conversation.
Example: advisor ask "How's TSLA doing?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			adv := env.ctrl.Advice()
			start := lastSeq(adv.Messages())

			text := strings.Join(args, " ")
			if !env.ctrl.Submit(contextOf(cmd), text) {
				return fmt.Errorf("nothing to ask")
			}
			if adv.State().IsPending() {
				fmt.Fprintln(out, display.Typing())
			}
			env.ctrl.Wait()

			fmt.Fprintln(out, display.Transcript(adv.MessagesSince(start)))
			if adv.State() == models.StateFailed {
				return fmt.Errorf("advice request failed")
			}
			return nil
		},
	}
}

// newEvaluateCmd runs one backtest.
func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "evaluate <SYMBOL>",
		Short: "Run a backtest for a stock symbol",
		Long: `Run a strategy backtest for a stock symbol and show the summary, trades and equity curve.
Example: advisor evaluate AAPL --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newAppEnv(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.Close()

			out := cmd.OutOrStdout()
			if !env.ctrl.Analyze(contextOf(cmd), args[0]) {
				return fmt.Errorf("invalid symbol %q", args[0])
			}
			if !asJSON {
				fmt.Fprintf(out, "⏳ Running backtest for %s...\n", strings.ToUpper(strings.TrimSpace(args[0])))
			}
			env.ctrl.Wait()

			ev := env.ctrl.Evaluation()
			if ev.State() == models.StateFailed {
				return fmt.Errorf("evaluation failed: %s", ev.Error())
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ev.Result())
			}
			fmt.Fprintln(out, display.Panel(panelView(env.ctrl)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "CortexAdvisor v%s\n", Version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := opts.effectiveConfig()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := opts.effectiveConfig()
			if err != nil {
				display.DisplayError(cmd.ErrOrStderr(), err, "config")
				return err
			}
			display.DisplaySuccess(cmd.OutOrStdout(), "Configuration is valid: "+mgr.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return configCmd
}

func panelView(ctrl *controller.AppController) display.PanelView {
	ev := ctrl.Evaluation()
	return display.PanelView{
		Symbol: ev.Symbol(),
		State:  ev.State(),
		Result: ev.Result(),
		Error:  ev.Error(),
	}
}

func lastSeq(msgs []models.Message) int64 {
	if len(msgs) == 0 {
		return 0
	}
	return msgs[len(msgs)-1].Seq
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
