package bot

import "testing"

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Command
	}{{
		name: "init pay",
		data: "init_pay:1985727901234",
		want: Command{Kind: CommandInitPay, PaymentID: "1985727901234"},
	}, {
		name: "confirm pay",
		data: "confirm_pay:1985727901234",
		want: Command{Kind: CommandConfirmPay, PaymentID: "1985727901234"},
	}, {
		name: "check payment",
		data: "check_payment:1985727901234",
		want: Command{Kind: CommandCheckPayment, PaymentID: "1985727901234"},
	}, {
		name: "cancel pay",
		data: "cancel_pay:1985727901234",
		want: Command{Kind: CommandCancelPay, PaymentID: "1985727901234"},
	}, {
		name: "surrounding whitespace",
		data: "  check_payment:1985727901234  ",
		want: Command{Kind: CommandCheckPayment, PaymentID: "1985727901234"},
	}, {
		name: "unknown verb",
		data: "refund_pay:1985727901234",
		want: Command{Kind: CommandUnknown},
	}, {
		name: "missing payment id",
		data: "check_payment:",
		want: Command{Kind: CommandUnknown},
	}, {
		name: "no separator",
		data: "check_payment",
		want: Command{Kind: CommandUnknown},
	}, {
		name: "empty",
		data: "",
		want: Command{Kind: CommandUnknown},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCallback(tt.data)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	data := callbackData(callbackConfirmPay, "1985727901234")
	cmd := ParseCallback(data)
	if cmd.Kind != CommandConfirmPay || cmd.PaymentID != "1985727901234" {
		t.Fatalf("round trip failed: %+v", cmd)
	}
}
