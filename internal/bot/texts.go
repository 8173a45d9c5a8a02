package bot

const (
	textWelcome = `🎉 *Welcome to our private channel!*

Subscribe for one month to unlock the restricted content.

💎 *What you get:*
✔️ Exclusive posts
✔️ Members-only discussions
✔️ Personal notifications

Subscription price: *%s %s*`

	textConfirm = `🔒 *Payment confirmation*

You are subscribing to the channel:
▫️ Amount: *%s %s*
▫️ Period: *1 month*
▫️ Auto-renewal: *No*

Confirm to continue:`

	textProcessing = `🔄 *Processing your payment...*

Please wait a few seconds.`

	textPayLink = `🔗 *Open the payment page*

Follow the link below and complete the payment.

After a successful payment you will receive channel access automatically.`

	textCompleted = `🎉 *Payment completed!*

Thank you for subscribing. Here is your personal access link:

%s

📌 *Important:* do not share this link with anyone.`

	textCanceled = `🗑 *Payment canceled*

You can subscribe again any time with /start.

Have a nice day! ☀️`

	textPaymentError    = "⚠️ Payment error"
	textProviderTrouble = `⚠️ *Payment processing error*

Please try again later or contact support.`

	alertChecking     = "🔍 Checking the payment..."
	alertNotPaid      = "⏳ The payment is not completed yet"
	alertAlreadyDone  = "✅ Already paid, access is yours"
	alertCheckFailed  = "⚠️ Payment check failed"
	alertCancelFailed = "⚠️ The payment can no longer be canceled"

	buttonPay     = "💳 Pay for subscription"
	buttonHelp    = "❓ Help"
	buttonConfirm = "✅ Confirm payment"
	buttonCancel  = "❌ Cancel"
	buttonOpenPay = "🌐 Go to payment"
	buttonCheck   = "🔄 Check payment"
	buttonJoin    = "🚀 Join the channel"
	buttonSupport = "💬 Support"
)
