package consts

const (
	State_Idle      = "idle"
	State_Pending   = "pending"
	State_Succeeded = "succeeded"
	State_Failed    = "failed"
)

const (
	Origin_User = "user"
	Origin_Bot  = "bot"
)
