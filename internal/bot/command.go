package bot

import "strings"

// CommandKind enumerates the callback commands the bot dispatches on. Inbound
// callback data is parsed into this enum once; nothing downstream matches on
// raw strings.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandInitPay
	CommandConfirmPay
	CommandCheckPayment
	CommandCancelPay
)

const (
	callbackInitPay      = "init_pay"
	callbackConfirmPay   = "confirm_pay"
	callbackCheckPayment = "check_payment"
	callbackCancelPay    = "cancel_pay"
)

// Command is one parsed callback trigger.
type Command struct {
	Kind      CommandKind
	PaymentID string
}

// ParseCallback decodes "<verb>:<payment_id>" callback data.
func ParseCallback(data string) Command {
	verb, paymentID, ok := strings.Cut(strings.TrimSpace(data), ":")
	if !ok || strings.TrimSpace(paymentID) == "" {
		return Command{Kind: CommandUnknown}
	}
	paymentID = strings.TrimSpace(paymentID)

	switch verb {
	case callbackInitPay:
		return Command{Kind: CommandInitPay, PaymentID: paymentID}
	case callbackConfirmPay:
		return Command{Kind: CommandConfirmPay, PaymentID: paymentID}
	case callbackCheckPayment:
		return Command{Kind: CommandCheckPayment, PaymentID: paymentID}
	case callbackCancelPay:
		return Command{Kind: CommandCancelPay, PaymentID: paymentID}
	default:
		return Command{Kind: CommandUnknown}
	}
}

func callbackData(verb string, paymentID string) string {
	return verb + ":" + paymentID
}
