package cli

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexAdvisor/internal/advisor"
	"github.com/dyike/CortexAdvisor/internal/controller"
	"github.com/dyike/CortexAdvisor/internal/session"
	"github.com/dyike/CortexAdvisor/internal/symbol"
	"github.com/dyike/CortexAdvisor/models"
)

const evaluationBody = `{
	"summary": {"Initial Cash": 10000, "Final Value": 10400, "Return (%)": 4},
	"trades": [{"date":"2024-01-05","action":"BUY","price":50,"shares":200,"cash":0}],
	"equity": [
		{"date":"2024-01-05T00:00:00Z","equity":10000,"close":50},
		{"date":"2024-01-08T00:00:00Z","equity":10400,"close":52}
	]
}`

type scriptPrompter struct {
	lines   []string
	symbols []string
}

func (p *scriptPrompter) ReadLine(string) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptPrompter) ReadSymbol(string) (string, error) {
	if len(p.symbols) == 0 {
		return "", io.EOF
	}
	sym := p.symbols[0]
	p.symbols = p.symbols[1:]
	return sym, nil
}

func testBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/advice":
			_, _ = io.WriteString(w, `{"message":"Recommendation: BUY"}`)
		case "/evaluate":
			_, _ = io.WriteString(w, evaluationBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestChat(t *testing.T, p Prompter) (*Chat, *controller.AppController, *bytes.Buffer) {
	t.Helper()
	srv := testBackend(t)
	client := advisor.NewClient(advisor.Options{BaseURL: srv.URL, Logger: zerolog.Nop()})
	ctrl := controller.New(
		session.NewAdviceSession(client, symbol.NewExtractor(), zerolog.Nop()),
		session.NewEvaluationSession(client, session.NewDateFormatter("", time.UTC), zerolog.Nop()),
		zerolog.Nop(),
	)
	t.Cleanup(ctrl.Close)

	var out bytes.Buffer
	return NewChat(ctrl, p, &out), ctrl, &out
}

func TestChatAskThenAnalyze(t *testing.T) {
	p := &scriptPrompter{lines: []string{"How's TSLA doing?", "/analyze", "/status", "/exit", "never read"}}
	chat, ctrl, out := newTestChat(t, p)

	if err := chat.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Recommendation: BUY", "Selected TSLA", "Analysis: TSLA", "Return (%)", "1/8/2024", "Selected symbol: TSLA", "Bye"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if len(p.lines) != 1 {
		t.Fatalf("chat kept reading after /exit")
	}
	if !ctrl.PanelOpen() {
		t.Fatal("panel not open after /analyze")
	}
	if ctrl.Evaluation().State() != models.StateSucceeded {
		t.Fatalf("evaluation state = %v", ctrl.Evaluation().State())
	}
}

func TestChatAnalyzeNeedsSymbol(t *testing.T) {
	p := &scriptPrompter{lines: []string{"/analyze", "/analyze 12"}}
	chat, ctrl, out := newTestChat(t, p)

	if err := chat.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "No symbol selected yet") {
		t.Fatalf("output = %s", out.String())
	}
	if !strings.Contains(out.String(), `"12" is not a ticker symbol`) {
		t.Fatalf("output = %s", out.String())
	}
	if ctrl.Evaluation().State() != models.StateIdle {
		t.Fatal("evaluation started without a symbol")
	}
}

func TestChatPanelAndSymbolCommands(t *testing.T) {
	p := &scriptPrompter{
		lines:   []string{"/symbol", "/panel", "/close", "/symbol msft", "/bogus"},
		symbols: []string{"NVDA"},
	}
	chat, ctrl, out := newTestChat(t, p)

	if err := chat.Run(t.Context()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sym, _ := ctrl.SelectedSymbol(); sym != "MSFT" {
		t.Fatalf("SelectedSymbol = %q", sym)
	}
	if ctrl.PanelOpen() {
		t.Fatal("panel left open after /close")
	}
	text := out.String()
	for _, want := range []string{"Selected NVDA", "Analysis: NVDA", "Analysis panel hidden", "Unknown command /bogus"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestNormalizeSymbol(t *testing.T) {
	for in, want := range map[string]string{" aapl ": "AAPL", "Tsla": "TSLA", "A": "", "TOOLONG": "", "AB CD": "", "BRK.B": ""} {
		got, ok := normalizeSymbol(in)
		if got != want || ok != (want != "") {
			t.Errorf("normalizeSymbol(%q) = %q, %v", in, got, ok)
		}
	}
}
