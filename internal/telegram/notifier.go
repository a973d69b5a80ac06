package telegram

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"bitkub_trading/internal/strategy"
	"bitkub_trading/internal/trader"
)

// Notifier pushes trade events to a Telegram chat and answers /status. A nil
// Notifier is valid and does nothing, so callers never have to branch on
// whether notifications are configured.
type Notifier struct {
	bot    *tele.Bot
	chat   tele.ChatID
	status func() string
	log    zerolog.Logger
}

func NewNotifier(token string, chatID int64, status func() string, log zerolog.Logger) (*Notifier, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	n := &Notifier{
		bot:    b,
		chat:   tele.ChatID(chatID),
		status: status,
		log:    log.With().Str("component", "telegram").Logger(),
	}
	b.Handle("/status", func(c tele.Context) error {
		return c.Send(n.status())
	})
	return n, nil
}

// Start runs the long poller. Blocks; run in a goroutine.
func (n *Notifier) Start() {
	if n == nil {
		return
	}
	n.log.Info().Msg("telegram notifier started")
	n.bot.Start()
}

func (n *Notifier) Stop() {
	if n == nil {
		return
	}
	n.bot.Stop()
}

func (n *Notifier) send(msg string) {
	if n == nil {
		return
	}
	if _, err := n.bot.Send(n.chat, msg); err != nil {
		n.log.Warn().Err(err).Msg("telegram send failed")
	}
}

func (n *Notifier) SignalDetected(sig strategy.Signal, state strategy.State) {
	n.send(fmt.Sprintf("📶 %s %s signal (derived state %s)", sig.Origin, sig.Direction, state))
}

func (n *Notifier) TradeExecuted(intent trader.OrderIntent, pos trader.Position) {
	if intent.Direction == strategy.Buy {
		n.send(fmt.Sprintf("✅ BUY filled: spent %.2f THB, managed holding now %.8f", intent.QuoteAmount, pos.Holding))
		return
	}
	n.send(fmt.Sprintf("✅ SELL filled: liquidated %.8f, position flat", intent.CoinAmount))
}

func (n *Notifier) TradeSuppressed(sig strategy.Signal, reason string) {
	n.send(fmt.Sprintf("⏸ %s %s suppressed: %s", sig.Origin, sig.Direction, reason))
}

func (n *Notifier) TradeFailed(sig strategy.Signal, err error) {
	n.send(fmt.Sprintf("⚠️ %s %s order failed: %v", sig.Origin, sig.Direction, err))
}
