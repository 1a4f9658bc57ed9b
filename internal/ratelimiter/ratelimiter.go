package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
	queueSize       = 1000
)

// Sender is the part of *tgbotapi.BotAPI the limiter depends on.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type request struct {
	ctx      context.Context
	message  tgbotapi.Chattable
	response chan response
}

type response struct {
	message tgbotapi.Message
	err     error
}

// RateLimiter sends messages from a single queue so that consecutive
// messages to one chat are spaced by at least the chat's rate.
type RateLimiter struct {
	api         Sender
	queue       chan request
	lastSent    map[int64]time.Time
	mu          sync.Mutex
	privateRate time.Duration
	groupRate   time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	log         *slog.Logger
}

func New(api Sender, log *slog.Logger) *RateLimiter {
	return newRateLimiter(api, privateChatRate, groupChatRate, log)
}

func newRateLimiter(api Sender, privateRate, groupRate time.Duration, log *slog.Logger) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		api:         api,
		queue:       make(chan request, queueSize),
		lastSent:    make(map[int64]time.Time),
		privateRate: privateRate,
		groupRate:   groupRate,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		log:         log,
	}

	go rl.processQueue()

	return rl
}

// Send blocks until the message is sent, ctx is done or the limiter is stopped.
func (rl *RateLimiter) Send(
	ctx context.Context,
	message tgbotapi.Chattable,
) (tgbotapi.Message, error) {
	req := request{
		ctx:      ctx,
		message:  message,
		response: make(chan response, 1),
	}

	select {
	case rl.queue <- req:
	case <-ctx.Done():
		return tgbotapi.Message{}, ctx.Err()
	case <-rl.ctx.Done():
		return tgbotapi.Message{}, rl.ctx.Err()
	}

	select {
	case resp := <-req.response:
		return resp.message, resp.err
	case <-ctx.Done():
		return tgbotapi.Message{}, ctx.Err()
	case <-rl.done:
		return tgbotapi.Message{}, rl.ctx.Err()
	}
}

// Request bypasses the queue; it is used for chat actions and other calls
// that do not produce chat messages.
func (rl *RateLimiter) Request(
	c tgbotapi.Chattable,
) (*tgbotapi.APIResponse, error) {
	return rl.api.Request(c)
}

func (rl *RateLimiter) Stop() {
	rl.cancel()
	<-rl.done
}

func (rl *RateLimiter) processQueue() {
	defer close(rl.done)

	for {
		select {
		case req := <-rl.queue:
			rl.handleRequest(req)
		case <-rl.ctx.Done():
			for {
				select {
				case req := <-rl.queue:
					req.response <- response{
						err: rl.ctx.Err(),
					}
				default:
					return
				}
			}
		}
	}
}

func (rl *RateLimiter) handleRequest(req request) {
	if err := req.ctx.Err(); err != nil {
		req.response <- response{err: err}
		return
	}

	chatID := getChatID(req.message)

	rl.mu.Lock()
	lastSent, exists := rl.lastSent[chatID]
	rl.mu.Unlock()

	if exists {
		delay := rl.getDelay(chatID, lastSent)

		if delay > 0 {
			rl.log.DebugContext(req.ctx, "Rate limiting message",
				"chatID", chatID,
				"delay", delay,
				"chattableType", fmt.Sprintf("%T", req.message),
				"queueLen", len(rl.queue))

			select {
			case <-time.After(delay):
			case <-req.ctx.Done():
				req.response <- response{err: req.ctx.Err()}
				return
			case <-rl.ctx.Done():
				req.response <- response{err: rl.ctx.Err()}
				return
			}
		}
	}

	message, err := rl.api.Send(req.message)

	rl.mu.Lock()
	rl.lastSent[chatID] = time.Now()
	rl.mu.Unlock()

	req.response <- response{
		message: message,
		err:     err,
	}
}

func getChatID(message tgbotapi.Chattable) int64 {
	switch m := message.(type) {
	case tgbotapi.MessageConfig:
		return m.ChatID
	case tgbotapi.EditMessageTextConfig:
		return m.ChatID
	case tgbotapi.DeleteMessageConfig:
		return m.ChatID
	case tgbotapi.ChatActionConfig:
		return m.ChatID
	default:
		return 0
	}
}

func (rl *RateLimiter) getDelay(chatID int64, lastSent time.Time) time.Duration {
	return max(rl.getRate(chatID)-time.Since(lastSent), 0)
}

// Group and channel chat ids are negative.
func (rl *RateLimiter) getRate(chatID int64) time.Duration {
	if chatID < 0 {
		return rl.groupRate
	}
	return rl.privateRate
}
