package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dyike/CortexAdvisor/internal/controller"
	"github.com/dyike/CortexAdvisor/internal/display"
)

// Chat is the interactive conversation loop.
type Chat struct {
	ctrl    *controller.AppController
	in      Prompter
	out     io.Writer
	lastSeq int64
}

func NewChat(ctrl *controller.AppController, in Prompter, out io.Writer) *Chat {
	return &Chat{ctrl: ctrl, in: in, out: out}
}

// Run reads input until /exit or end of input.
func (c *Chat) Run(ctx context.Context) error {
	DisplayWelcomeBanner(c.out)
	c.printNewMessages()

	for {
		line, err := c.in.ReadLine("You")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out, "👋 Bye!")
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := c.handleCommand(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				fmt.Fprintln(c.out, "👋 Bye!")
				return nil
			}
			continue
		}
		c.ask(ctx, line)
	}
}

func (c *Chat) ask(ctx context.Context, text string) {
	adv := c.ctrl.Advice()
	if !c.ctrl.Submit(ctx, text) {
		display.DisplayWarning(c.out, "Still waiting for the previous answer.")
		return
	}
	if adv.State().IsPending() {
		fmt.Fprintln(c.out, display.Typing())
	}
	adv.Wait()
	c.printNewMessages()

	if sym, ok := c.ctrl.SelectedSymbol(); ok {
		display.DisplayInfo(c.out, fmt.Sprintf("Selected %s. Type /analyze to backtest it.", sym))
	}
}

func (c *Chat) printNewMessages() {
	msgs := c.ctrl.Advice().MessagesSince(c.lastSeq)
	if len(msgs) == 0 {
		return
	}
	c.lastSeq = msgs[len(msgs)-1].Seq
	fmt.Fprintln(c.out, display.Transcript(msgs))
}

// handleCommand runs a slash command and reports whether to quit.
func (c *Chat) handleCommand(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/exit", "/quit", "/q":
		return true, nil

	case "/help", "/h", "/?":
		DisplayHelp(c.out)

	case "/analyze", "/a":
		override := ""
		if len(args) > 0 {
			sym, ok := normalizeSymbol(args[0])
			if !ok {
				display.DisplayWarning(c.out, fmt.Sprintf("%q is not a ticker symbol.", args[0]))
				return false, nil
			}
			override = sym
		}
		c.analyze(ctx, override)

	case "/panel", "/p":
		if c.ctrl.TogglePanel() {
			fmt.Fprintln(c.out, display.Panel(panelView(c.ctrl)))
		} else {
			display.DisplayInfo(c.out, "Analysis panel hidden.")
		}

	case "/close":
		c.ctrl.ClosePanel()
		display.DisplayInfo(c.out, "Analysis panel hidden.")

	case "/symbol", "/s":
		var sym string
		if len(args) > 0 {
			var ok bool
			if sym, ok = normalizeSymbol(args[0]); !ok {
				display.DisplayWarning(c.out, fmt.Sprintf("%q is not a ticker symbol.", args[0]))
				return false, nil
			}
		} else {
			var err error
			sym, err = c.in.ReadSymbol("Symbol")
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
		}
		c.ctrl.OnSymbolRecognized(sym)
		display.DisplaySuccess(c.out, "Selected "+sym)

	case "/status":
		c.printStatus()

	default:
		display.DisplayWarning(c.out, fmt.Sprintf("Unknown command %s. Type /help for commands.", command))
	}
	return false, nil
}

func (c *Chat) analyze(ctx context.Context, override string) {
	if override == "" && !c.ctrl.CanAnalyze() {
		display.DisplayWarning(c.out, "No symbol selected yet. Ask about a stock first or use /analyze SYMBOL.")
		return
	}
	if !c.ctrl.Analyze(ctx, override) {
		display.DisplayWarning(c.out, "A backtest is already running.")
		return
	}
	ev := c.ctrl.Evaluation()
	if ev.State().IsPending() {
		fmt.Fprintln(c.out, display.Panel(panelView(c.ctrl)))
	}
	ev.Wait()
	fmt.Fprintln(c.out, display.Panel(panelView(c.ctrl)))
}

func (c *Chat) printStatus() {
	selected, ok := c.ctrl.SelectedSymbol()
	if !ok {
		selected = "none"
	}
	panel := "hidden"
	if c.ctrl.PanelOpen() {
		panel = "open"
	}
	fmt.Fprintf(c.out, "Selected symbol: %s\n", selected)
	fmt.Fprintf(c.out, "Advice:          %s\n", display.StateBadge(c.ctrl.Advice().State()))
	fmt.Fprintf(c.out, "Evaluation:      %s\n", display.StateBadge(c.ctrl.Evaluation().State()))
	fmt.Fprintf(c.out, "Panel:           %s\n", panel)
}
