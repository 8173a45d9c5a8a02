package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/channelpass/channelpass/internal/config"
	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	paymentservice "github.com/channelpass/channelpass/internal/payment/service"
	"github.com/channelpass/channelpass/internal/telegram"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Client     *telegram.Client
	PaymentSvc *paymentservice.Service
	Log        *zap.Logger
	Cfg        config.Config
}

// Bot runs the long-poll loop and dispatches each update in its own
// goroutine; per-payment consistency comes from the store's CAS, not from
// update ordering.
type Bot struct {
	client      *telegram.Client
	paymentSvc  *paymentservice.Service
	log         *zap.Logger
	amount      string
	currency    string
	supportURL  string
	pollTimeout time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func New(p Params) *Bot {
	return &Bot{
		client:      p.Client,
		paymentSvc:  p.PaymentSvc,
		log:         p.Log.Named("bot"),
		amount:      p.Cfg.SubscriptionAmount,
		currency:    p.Cfg.SubscriptionCurrency,
		supportURL:  p.Cfg.SupportURL,
		pollTimeout: p.Cfg.BotPollTimeout,
	}
}

func (b *Bot) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.poll(ctx)
}

func (b *Bot) Stop() {
	if b.cancel == nil {
		return
	}
	b.cancel()
	<-b.done
}

func (b *Bot) poll(ctx context.Context) {
	defer close(b.done)

	var offset int64
	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Warn("get updates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.Message != nil && update.Message.Text == "/start":
		b.handleStart(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}

	payment, err := b.paymentSvc.StartPurchase(ctx, msg.From.ID)
	if err != nil {
		b.log.Error("start purchase failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: buttonPay, CallbackData: callbackData(callbackInitPay, payment.ID.String())}},
		},
	}
	if b.supportURL != "" {
		markup.InlineKeyboard = append(markup.InlineKeyboard,
			[]telegram.InlineKeyboardButton{{Text: buttonHelp, URL: b.supportURL}})
	}

	text := fmt.Sprintf(textWelcome, b.amount, b.currency)
	if err := b.client.SendMessage(ctx, msg.Chat.ID, text, markup); err != nil {
		b.log.Warn("welcome message failed", zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *telegram.CallbackQuery) {
	cmd := ParseCallback(query.Data)

	switch cmd.Kind {
	case CommandInitPay:
		b.handleInitPay(ctx, query, cmd.PaymentID)
	case CommandConfirmPay:
		b.handleConfirmPay(ctx, query, cmd.PaymentID)
	case CommandCheckPayment:
		b.handleCheckPayment(ctx, query, cmd.PaymentID)
	case CommandCancelPay:
		b.handleCancelPay(ctx, query, cmd.PaymentID)
	default:
		b.answer(ctx, query.ID, "", false)
	}
}

func (b *Bot) handleInitPay(ctx context.Context, query *telegram.CallbackQuery, paymentID string) {
	if _, err := b.paymentSvc.GetOwned(ctx, query.From.ID, paymentID); err != nil {
		b.answer(ctx, query.ID, textPaymentError, false)
		return
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: buttonConfirm, CallbackData: callbackData(callbackConfirmPay, paymentID)}},
			{{Text: buttonCancel, CallbackData: callbackData(callbackCancelPay, paymentID)}},
		},
	}
	b.edit(ctx, query, fmt.Sprintf(textConfirm, b.amount, b.currency), markup)
	b.answer(ctx, query.ID, "", false)
}

func (b *Bot) handleConfirmPay(ctx context.Context, query *telegram.CallbackQuery, paymentID string) {
	b.edit(ctx, query, textProcessing, nil)

	result, err := b.paymentSvc.ConfirmPurchase(ctx, query.From.ID, paymentID)
	if err != nil {
		if isValidationErr(err) {
			b.answer(ctx, query.ID, textPaymentError, false)
			return
		}
		b.log.Error("confirm purchase failed", zap.String("payment_id", paymentID), zap.Error(err))
		b.edit(ctx, query, textProviderTrouble, nil)
		b.answer(ctx, query.ID, "", false)
		return
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: buttonOpenPay, URL: result.ConfirmationURL}},
			{{Text: buttonCheck, CallbackData: callbackData(callbackCheckPayment, paymentID)}},
		},
	}
	b.edit(ctx, query, textPayLink, markup)
	b.answer(ctx, query.ID, "", false)
}

func (b *Bot) handleCheckPayment(ctx context.Context, query *telegram.CallbackQuery, paymentID string) {
	b.answer(ctx, query.ID, alertChecking, false)

	result, err := b.paymentSvc.CheckPayment(ctx, query.From.ID, paymentID)
	if err != nil {
		if isValidationErr(err) {
			b.answer(ctx, query.ID, textPaymentError, true)
			return
		}
		b.log.Error("check payment failed", zap.String("payment_id", paymentID), zap.Error(err))
		b.answer(ctx, query.ID, alertCheckFailed, true)
		return
	}

	switch result.Outcome {
	case paymentservice.OutcomeCompleted:
		b.sendCompleted(ctx, query, result.InviteLink)
	case paymentservice.OutcomeAlreadyCompleted:
		b.answer(ctx, query.ID, alertAlreadyDone, true)
	case paymentservice.OutcomeCanceled:
		b.edit(ctx, query, textCanceled, nil)
	default:
		b.answer(ctx, query.ID, alertNotPaid, true)
	}
}

func (b *Bot) handleCancelPay(ctx context.Context, query *telegram.CallbackQuery, paymentID string) {
	if err := b.paymentSvc.CancelPurchase(ctx, query.From.ID, paymentID); err != nil {
		if isValidationErr(err) {
			b.answer(ctx, query.ID, textPaymentError, false)
			return
		}
		if errors.Is(err, paymentdomain.ErrStateConflict) {
			b.answer(ctx, query.ID, alertCancelFailed, true)
			return
		}
		b.log.Error("cancel purchase failed", zap.String("payment_id", paymentID), zap.Error(err))
		b.answer(ctx, query.ID, alertCheckFailed, true)
		return
	}

	b.edit(ctx, query, textCanceled, nil)
	b.answer(ctx, query.ID, "", false)
}

func (b *Bot) sendCompleted(ctx context.Context, query *telegram.CallbackQuery, inviteLink string) {
	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{{Text: buttonJoin, URL: inviteLink}},
		},
	}
	if b.supportURL != "" {
		markup.InlineKeyboard = append(markup.InlineKeyboard,
			[]telegram.InlineKeyboardButton{{Text: buttonSupport, URL: b.supportURL}})
	}
	b.edit(ctx, query, fmt.Sprintf(textCompleted, inviteLink), markup)
}

func (b *Bot) edit(ctx context.Context, query *telegram.CallbackQuery, text string, markup *telegram.InlineKeyboardMarkup) {
	if query.Message == nil {
		return
	}
	if err := b.client.EditMessageText(ctx, query.Message.Chat.ID, query.Message.MessageID, text, markup); err != nil {
		b.log.Warn("edit message failed", zap.Error(err))
	}
}

func (b *Bot) answer(ctx context.Context, callbackID string, text string, alert bool) {
	if err := b.client.AnswerCallbackQuery(ctx, callbackID, text, alert); err != nil {
		b.log.Warn("answer callback failed", zap.Error(err))
	}
}

func isValidationErr(err error) bool {
	return errors.Is(err, paymentdomain.ErrNotFound) || errors.Is(err, paymentdomain.ErrUserMismatch)
}
