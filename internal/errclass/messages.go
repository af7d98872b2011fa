package errclass

// Per-code user messages. Codes come from the provider (card_declined),
// from Firebase-style auth codes forwarded by the backend, or from the
// http_<status> codes Classify synthesizes.
var codeMessages = map[string]string{
	"card_declined":        "Your card was declined. Please try a different payment method.",
	"expired_card":         "Your card has expired. Please use a different card.",
	"insufficient_funds":   "Your card has insufficient funds.",
	"incorrect_cvc":        "The card's security code is incorrect.",
	"processing_error":     "The payment could not be processed. Please try again.",
	"auth/wrong-password":  "Incorrect email or password.",
	"auth/user-not-found":  "No account found with that email.",
	"token_expired":        "Your session has expired. Please sign in again.",
	"config_invalid":       "Payments are temporarily unavailable. Please try again later.",
	"malformed_response":   "We received an unexpected response. Please try again.",
	"http_401":             "Please sign in to continue.",
	"http_403":             "You don't have permission to do that.",
	"http_404":             "We couldn't find what you were looking for.",
	"http_500":             "Something went wrong on our end. Please try again.",
	"http_502":             "Something went wrong on our end. Please try again.",
	"http_503":             "The service is temporarily unavailable. Please try again shortly.",
	"http_504":             "The request timed out. Please try again.",
	"insufficient_credits": "You don't have enough credits for this action.",
}

// Category defaults guarantee the mapping is total even with no code.
var categoryMessages = map[Category]string{
	CategoryNetwork:        "We couldn't reach the server. Check your connection and try again.",
	CategoryAuthentication: "Please sign in to continue.",
	CategoryAuthorization:  "You don't have permission to do that.",
	CategoryValidation:     "Something about your request wasn't right. Please check and try again.",
	CategoryServer:         "Something went wrong on our end. Please try again.",
	CategoryUnknown:        "An unexpected error occurred. Please try again.",
}

// UserMessage returns a stable, human-readable message for a category and
// optional code. Every category has a default.
func UserMessage(category Category, code string) string {
	if code != "" {
		if msg, ok := codeMessages[code]; ok {
			return msg
		}
	}
	if msg, ok := categoryMessages[category]; ok {
		return msg
	}
	return categoryMessages[CategoryUnknown]
}
