package gateway

// responseMessages maps the gateway's numeric response codes to readable
// outcomes. "00" is the only success code.
var responseMessages = map[string]string{
	"00": "transaction successful",
	"07": "amount deducted, transaction suspected of fraud",
	"09": "card or account not registered for online banking",
	"10": "authentication failed more than 3 times",
	"11": "payment deadline expired",
	"12": "card or account is locked",
	"13": "wrong one-time password",
	"24": "transaction cancelled by customer",
	"51": "insufficient account balance",
	"65": "daily transaction limit exceeded",
	"75": "issuing bank under maintenance",
	"79": "wrong payment password entered too many times",
	"91": "original transaction not found",
	"93": "refund amount invalid",
	"94": "duplicate request",
	"95": "transaction did not succeed at the gateway",
	"97": "invalid signature",
	"99": "other error",
}

// ResponseMessage returns the documented meaning of a gateway response code.
func ResponseMessage(code string) string {
	if msg, ok := responseMessages[code]; ok {
		return msg
	}
	return "unknown response code " + code
}
