package symbol

import "testing"

func TestExtract(t *testing.T) {
	known := NewSet([]string{"AAPL", "TSLA", "MSFT"})

	cases := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "known symbol", text: "How's TSLA doing?", want: "TSLA", wantOK: true},
		{name: "known symbol wins over earlier token", text: "tell me about xyz and aapl", want: "AAPL", wantOK: true},
		{name: "first known symbol in order", text: "msft or aapl", want: "MSFT", wantOK: true},
		{name: "fallback to first token", text: "tell me about XQZ", want: "TELL", wantOK: true},
		{name: "capitals do not outrank earlier words", text: "what is SHOP doing", want: "WHAT", wantOK: true},
		{name: "fallback keeps order", text: "XQZ or QQQ please", want: "XQZ", wantOK: true},
		{name: "lower case fallback", text: "how is xqz", want: "HOW", wantOK: true},
		{name: "mixed case is not capitalised", text: "ask Xqz now", want: "ASK", wantOK: true},
		{name: "lower case folded", text: "aapl", want: "AAPL", wantOK: true},
		{name: "too long words skipped", text: "a fantastic question", want: "", wantOK: false},
		{name: "single letters skipped", text: "a b c", want: "", wantOK: false},
		{name: "empty", text: "", want: "", wantOK: false},
		{name: "digits only", text: "12345 678", want: "", wantOK: false},
		{name: "letters glued to digits", text: "abc1", want: "", wantOK: false},
		{name: "punctuation boundaries", text: "(NVDA), ok", want: "NVDA", wantOK: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Extract(tc.text, known)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("Extract(%q) = (%q, %v), want (%q, %v)", tc.text, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestExtractPrefersFirstTokenWithoutKnownSet(t *testing.T) {
	got, ok := Extract("is ibm up", nil)
	if !ok || got != "IS" {
		t.Fatalf("Extract() = (%q, %v), want (IS, true)", got, ok)
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("Is tsla or goog better?")
	want := []string{"IS", "TSLA", "OR", "GOOG"}
	if len(got) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokens()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractorDefaultsAndSwap(t *testing.T) {
	e := NewExtractor()
	if e.Known() == 0 {
		t.Fatal("expected built-in known symbols")
	}
	if got, _ := e.Extract("what about the nke stock"); got != "NKE" {
		t.Fatalf("Extract() = %q, want NKE", got)
	}

	e.SetKnown([]string{" shop "})
	if got, _ := e.Extract("what about shop"); got != "SHOP" {
		t.Fatalf("Extract() after swap = %q, want SHOP", got)
	}
	if got, _ := e.Extract("what about nke"); got != "WHAT" {
		t.Fatalf("Extract() after swap = %q, want WHAT", got)
	}
}
