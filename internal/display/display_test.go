package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dyike/CortexAdvisor/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func num(s string) models.Value {
	return models.Number(dec(s))
}

func TestSparkline(t *testing.T) {
	cases := []struct {
		values []string
		width  int
		want   string
	}{
		{values: []string{"1", "2", "3", "4", "5", "6", "7", "8"}, width: 10, want: "▁▂▃▄▅▆▇█"},
		{values: []string{"5", "5", "5"}, width: 10, want: "▁▁▁"},
		{values: []string{"10", "0"}, width: 10, want: "█▁"},
		{values: nil, width: 10, want: ""},
	}
	for _, tc := range cases {
		values := make([]decimal.Decimal, len(tc.values))
		for i, v := range tc.values {
			values[i] = dec(v)
		}
		if got := Sparkline(values, tc.width); got != tc.want {
			t.Errorf("Sparkline(%v) = %q, want %q", tc.values, got, tc.want)
		}
	}

	long := make([]decimal.Decimal, 100)
	for i := range long {
		long[i] = decimal.NewFromInt(int64(i))
	}
	if got := []rune(Sparkline(long, 20)); len(got) != 20 {
		t.Fatalf("sampled width = %d, want 20", len(got))
	}
}

func TestFormatValue(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want string
	}{
		{dec("10250.456"), "10250.46"},
		{dec("3"), "3"},
		{"SMA crossover", "SMA crossover"},
		{true, "true"},
		{nil, "-"},
	} {
		if got := FormatValue(tc.in); got != tc.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPanelStates(t *testing.T) {
	result := &models.EvaluationResult{
		Summary: models.Summary{
			{Name: "Initial Cash", Value: dec("10000")},
			{Name: "Return (%)", Value: dec("2.5")},
		},
		Trades: []models.Trade{{Date: "2024-01-05", Action: "SELL", Price: num("50"), Shares: num("20"), Cash: num("1000"), PnL: num("-12.5")}},
		Equity: []models.EquityPoint{
			{Date: "1/5/2024", Equity: num("1000"), Close: num("50")},
			{Date: "1/8/2024", Equity: num("1010"), Close: num("51")},
		},
	}

	cases := []struct {
		name string
		view PanelView
		want []string
	}{
		{name: "idle", view: PanelView{Symbol: "tsla"}, want: []string{"Analysis: TSLA", "Press analyze"}},
		{name: "pending", view: PanelView{Symbol: "TSLA", State: models.StatePending}, want: []string{"Running backtest"}},
		{name: "failed", view: PanelView{Symbol: "TSLA", State: models.StateFailed, Error: "Evaluation failed."}, want: []string{"Evaluation failed."}},
		{
			name: "succeeded",
			view: PanelView{Symbol: "TSLA", State: models.StateSucceeded, Result: result},
			want: []string{"Initial Cash", "Return (%)", "2.5", "SELL", "-12.50", "1/5/2024", "1/8/2024", "1010.00"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Panel(tc.view)
			for _, w := range tc.want {
				if !strings.Contains(out, w) {
					t.Errorf("panel missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestPanelShowsNonNumericValuesAsSent(t *testing.T) {
	result, err := models.DecodeEvaluation([]byte(`{
		"summary": {},
		"trades": [{"date":"2024-01-05","action":"BUY","price":"n/a","shares":10,"cash":null}],
		"equity": [
			{"date":"1/5/2024","equity":1000,"close":"halted"},
			{"date":"1/8/2024","equity":1010,"close":51}
		]
	}`))
	if err != nil {
		t.Fatalf("DecodeEvaluation: %v", err)
	}

	out := Panel(PanelView{Symbol: "TSLA", State: models.StateSucceeded, Result: result})
	for _, w := range []string{"n/a", "BUY", "1010.00", "51.00"} {
		if !strings.Contains(out, w) {
			t.Errorf("panel missing %q:\n%s", w, out)
		}
	}
}

func TestTranscript(t *testing.T) {
	out := Transcript([]models.Message{
		{Seq: 1, Origin: models.OriginBot, Text: "Hi"},
		{Seq: 2, Origin: models.OriginUser, Text: "TSLA?"},
	})
	if !strings.Contains(out, "🤖 Hi") || !strings.Contains(out, "TSLA?") {
		t.Fatalf("transcript = %q", out)
	}
	if strings.Index(out, "Hi") > strings.Index(out, "TSLA?") {
		t.Fatal("transcript out of order")
	}
}

func TestNotices(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, errors.New("boom"), "evaluate")
	DisplayInfo(&buf, "config at /tmp")
	if !strings.Contains(buf.String(), "Error in evaluate: boom") || !strings.Contains(buf.String(), "config at /tmp") {
		t.Fatalf("output = %q", buf.String())
	}
}
