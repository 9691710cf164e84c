package consts

// KnownSymbols are preferred during extraction when several candidates appear.
// They never restrict what can be asked about.
var KnownSymbols = []string{
	"AAPL", "TSLA", "MSFT", "GOOG", "AMZN",
	"NVDA", "NFLX", "NKE", "META", "IBM",
}

const (
	MinSymbolLen = 2
	MaxSymbolLen = 5
)
