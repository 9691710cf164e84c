package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidEvaluation is returned when an evaluation payload does not carry
// a summary object plus trades and equity arrays.
var ErrInvalidEvaluation = errors.New("invalid evaluation payload")

// Metric is one named value of a backtest summary. Value holds a
// decimal.Decimal for numbers, a string, a bool, nil, or the generic JSON
// decoding of nested values.
type Metric struct {
	Name  string
	Value any
}

// Summary keeps the metrics in the order the server sent them.
type Summary []Metric

// Get returns the value of the named metric.
func (s Summary) Get(name string) (any, bool) {
	for _, m := range s {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Decimal returns the named metric when it is numeric.
func (s Summary) Decimal(name string) (decimal.Decimal, bool) {
	v, ok := s.Get(name)
	if !ok {
		return decimal.Zero, false
	}
	d, ok := v.(decimal.Decimal)
	return d, ok
}

// Names lists metric names in server order.
func (s Summary) Names() []string {
	names := make([]string, 0, len(s))
	for _, m := range s {
		names = append(names, m.Name)
	}
	return names
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: summary: %v", ErrInvalidEvaluation, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: summary is not an object", ErrInvalidEvaluation)
	}

	out := Summary{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: summary key: %v", ErrInvalidEvaluation, err)
		}
		key, _ := keyTok.(string)

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: summary %q: %v", ErrInvalidEvaluation, key, err)
		}
		value, err := normalizeMetric(raw)
		if err != nil {
			return fmt.Errorf("%w: summary %q: %v", ErrInvalidEvaluation, key, err)
		}
		out = append(out, Metric{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: summary: %v", ErrInvalidEvaluation, err)
	}

	*s = out
	return nil
}

func (s Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if d, ok := m.Value.(decimal.Decimal); ok {
			buf.WriteString(d.String())
			continue
		}
		val, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func normalizeMetric(raw any) (any, error) {
	if n, ok := raw.(json.Number); ok {
		return decimal.NewFromString(n.String())
	}
	return raw, nil
}

// Trade is one entry of the backtest trade log. Fields the log does not
// name are kept verbatim in Extra.
type Trade struct {
	Date   string
	Action string
	Price  Value
	Shares Value
	Cash   Value
	PnL    Value
	Extra  map[string]json.RawMessage
}

func (t *Trade) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("trade: %w", err)
	}
	if fields == nil {
		return errors.New("trade is null")
	}

	trade := Trade{}
	for key, raw := range fields {
		var err error
		switch key {
		case "date":
			trade.Date = rawText(raw)
		case "action":
			trade.Action = rawText(raw)
		case "price":
			err = trade.Price.UnmarshalJSON(raw)
		case "shares":
			err = trade.Shares.UnmarshalJSON(raw)
		case "cash":
			err = trade.Cash.UnmarshalJSON(raw)
		case "pnl":
			err = trade.PnL.UnmarshalJSON(raw)
		default:
			trade.Extra = setExtra(trade.Extra, key, raw)
		}
		if err != nil {
			return fmt.Errorf("trade %s: %w", key, err)
		}
	}

	*t = trade
	return nil
}

func (t Trade) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(name string, value any) error {
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		out, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(out)
		return nil
	}

	if t.Date != "" {
		if err := field("date", t.Date); err != nil {
			return nil, err
		}
	}
	if t.Action != "" {
		if err := field("action", t.Action); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		name  string
		value Value
	}{{"price", t.Price}, {"shares", t.Shares}, {"cash", t.Cash}, {"pnl", t.PnL}} {
		if f.value.IsZero() {
			continue
		}
		if err := field(f.name, f.value); err != nil {
			return nil, err
		}
	}
	for _, k := range sortedKeys(t.Extra) {
		if err := field(k, t.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EquityPoint is one sample of the equity curve. Fields other than date,
// equity and close are kept verbatim in Extra.
type EquityPoint struct {
	Date   string
	Equity Value
	Close  Value
	Extra  map[string]json.RawMessage

	rawDate json.RawMessage
}

// RawDate returns the date exactly as the server sent it.
func (p EquityPoint) RawDate() json.RawMessage {
	return p.rawDate
}

// WithDate returns a copy of the point carrying a new display date.
func (p EquityPoint) WithDate(date string) EquityPoint {
	p.Date = date
	p.Extra = copyExtra(p.Extra)
	return p
}

func (p *EquityPoint) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("equity point: %w", err)
	}
	if fields == nil {
		return errors.New("equity point is null")
	}

	point := EquityPoint{}
	for key, raw := range fields {
		switch key {
		case "date":
			point.rawDate = raw
			point.Date = rawText(raw)
			if point.Date == "" {
				point.Date = string(bytes.TrimSpace(raw))
			}
		case "equity":
			if err := point.Equity.UnmarshalJSON(raw); err != nil {
				return fmt.Errorf("equity point equity: %w", err)
			}
		case "close":
			if err := point.Close.UnmarshalJSON(raw); err != nil {
				return fmt.Errorf("equity point close: %w", err)
			}
		default:
			point.Extra = setExtra(point.Extra, key, raw)
		}
	}

	*p = point
	return nil
}

func (p EquityPoint) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	date, err := json.Marshal(p.Date)
	if err != nil {
		return nil, err
	}
	equity, _ := p.Equity.MarshalJSON()
	closeValue, _ := p.Close.MarshalJSON()

	buf.WriteString(`{"date":`)
	buf.Write(date)
	buf.WriteString(`,"equity":`)
	buf.Write(equity)
	buf.WriteString(`,"close":`)
	buf.Write(closeValue)
	for _, k := range sortedKeys(p.Extra) {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(p.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func setExtra(extra map[string]json.RawMessage, key string, raw json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		extra = make(map[string]json.RawMessage)
	}
	extra[key] = raw
	return extra
}

func copyExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func sortedKeys(extra map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EvaluationResult is a validated backtest payload.
type EvaluationResult struct {
	Symbol  string        `json:"symbol,omitempty"`
	Summary Summary       `json:"summary"`
	Trades  []Trade       `json:"trades"`
	Equity  []EquityPoint `json:"equity"`
}

// Clone returns a copy that shares no slices with the receiver.
func (r *EvaluationResult) Clone() *EvaluationResult {
	if r == nil {
		return nil
	}
	out := &EvaluationResult{
		Symbol:  r.Symbol,
		Summary: append(Summary(nil), r.Summary...),
		Trades:  make([]Trade, len(r.Trades)),
		Equity:  make([]EquityPoint, len(r.Equity)),
	}
	for i, t := range r.Trades {
		t.Extra = copyExtra(t.Extra)
		out.Trades[i] = t
	}
	for i, p := range r.Equity {
		out.Equity[i] = p.WithDate(p.Date)
	}
	return out
}

// DecodeEvaluation validates the shape of an evaluation body and decodes it.
// A body without a summary object and both trades and equity arrays is
// rejected as a whole; no partially populated result is ever returned.
func DecodeEvaluation(body []byte) (*EvaluationResult, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvaluation, err)
	}

	for field, kind := range map[string]byte{"summary": '{', "trades": '[', "equity": '['} {
		raw, ok := envelope[field]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidEvaluation, field)
		}
		if !jsonKind(raw, kind) {
			return nil, fmt.Errorf("%w: %s has the wrong type", ErrInvalidEvaluation, field)
		}
	}

	var result EvaluationResult
	if err := json.Unmarshal(envelope["summary"], &result.Summary); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(envelope["trades"], &result.Trades); err != nil {
		return nil, fmt.Errorf("%w: trades: %v", ErrInvalidEvaluation, err)
	}
	if err := json.Unmarshal(envelope["equity"], &result.Equity); err != nil {
		return nil, fmt.Errorf("%w: equity: %v", ErrInvalidEvaluation, err)
	}
	if result.Trades == nil {
		result.Trades = []Trade{}
	}
	if result.Equity == nil {
		result.Equity = []EquityPoint{}
	}
	return &result, nil
}

func jsonKind(raw json.RawMessage, kind byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == kind
}

// IsProfitMetric reports whether a metric describes a gain or loss, which
// renderers colour by sign.
func IsProfitMetric(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "profit") || strings.Contains(lower, "return")
}
