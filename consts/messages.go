package consts

// Bot replies shown in the conversation log.
const (
	Msg_Greeting      = "👋 Hey there! Ask me about any stock like AAPL or TSLA. I'm ready when you are!"
	Msg_NoSymbol      = "❌ Hmm... I couldn't detect a stock symbol. Try something like 'Tell me about AAPL'."
	Msg_NoAdvice      = "⚠️ No advice available right now."
	Msg_ServerError   = "🚫 Server error: %s"
	Msg_UnexpectedErr = "Unexpected error."
)

// Evaluation panel errors.
const (
	Msg_InvalidResponse = "Invalid response from server."
	Msg_SomethingWrong  = "Something went wrong"
)
