package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/CortexAdvisor/internal/symbol"
)

// Prompter reads user input. Both methods return io.EOF when the user
// ends the session.
type Prompter interface {
	ReadLine(message string) (string, error)
	ReadSymbol(message string) (string, error)
}

type surveyPrompter struct{}

// NewSurveyPrompter prompts on the terminal.
func NewSurveyPrompter() Prompter {
	return surveyPrompter{}
}

func (surveyPrompter) ReadLine(message string) (string, error) {
	var line string
	prompt := &survey.Input{
		Message: message,
		Help:    "Ask about a stock, e.g. \"How's TSLA doing?\". Type /help for commands.",
	}
	if err := survey.AskOne(prompt, &line); err != nil {
		return "", promptError(err)
	}
	return line, nil
}

// ReadSymbol prompts for a ticker and only accepts one 2-5 letter word.
func (surveyPrompter) ReadSymbol(message string) (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: message,
		Help:    "A 2-5 letter ticker symbol such as AAPL",
	}
	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		str, _ := val.(string)
		if _, ok := normalizeSymbol(str); !ok {
			return fmt.Errorf("%q is not a 2-5 letter ticker symbol", strings.TrimSpace(str))
		}
		return nil
	}))
	if err != nil {
		return "", promptError(err)
	}
	sym, _ := normalizeSymbol(ticker)
	return sym, nil
}

func promptError(err error) error {
	if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
		return io.EOF
	}
	return err
}

// normalizeSymbol upper-cases s and checks that it is a single ticker token.
func normalizeSymbol(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	tokens := symbol.Tokens(s)
	if len(tokens) != 1 || tokens[0] != s {
		return "", false
	}
	return s, true
}
