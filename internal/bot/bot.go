// Package bot implements the Telegram front end: task commands backed by the
// issue tracker, gated by the authorization relay.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"ghbridge/internal/domain/models"
)

// Sender is the part of *tgbotapi.BotAPI the bot needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Authorizer is the relay as seen by the bot.
type Authorizer interface {
	CreateState(ctx context.Context, telegramID int64) (string, error)
	IsAuthorized(ctx context.Context, telegramID int64) (bool, string, error)
}

// Tracker manages issues of the configured repository.
type Tracker interface {
	CreateIssue(ctx context.Context, title string) (models.Issue, error)
	OpenIssues(ctx context.Context) ([]models.Issue, error)
	CloseIssue(ctx context.Context, number int) error
}

// Sessions remembers multi-step commands.
type Sessions interface {
	Begin(ctx context.Context, requesterID int64, pending models.PendingAction) error
	Pending(ctx context.Context, requesterID int64) (models.PendingAction, error)
	Finish(ctx context.Context, requesterID int64) error
}

const cancelData = "cancel"

// lanes is the number of update workers. Updates of one user always go to the
// same lane, so they are handled in the order Telegram delivered them.
const (
	lanes      = 8
	laneBuffer = 16
)

type Bot struct {
	log      *slog.Logger
	sender   Sender
	auth     Authorizer
	tracker  Tracker
	sessions Sessions
}

func New(log *slog.Logger, sender Sender, auth Authorizer, tracker Tracker, sessions Sessions) *Bot {
	return &Bot{
		log:      log,
		sender:   sender,
		auth:     auth,
		tracker:  tracker,
		sessions: sessions,
	}
}

// Run handles updates until ctx is done or updates is closed. Handler errors
// are reported to the user and never stop the loop.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	const op = "bot.Run"

	b.log.Info("bot started", slog.String("op", op))

	g := new(errgroup.Group)
	queues := make([]chan tgbotapi.Update, lanes)
	for i := range queues {
		queue := make(chan tgbotapi.Update, laneBuffer)
		queues[i] = queue
		g.Go(func() error {
			for update := range queue {
				b.HandleUpdate(ctx, update)
			}
			return nil
		})
	}
	defer func() {
		for _, queue := range queues {
			close(queue)
		}
		_ = g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case queues[lane(update)] <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func lane(update tgbotapi.Update) int {
	var id int64
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		id = update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		id = update.Message.From.ID
	}
	return int(uint64(id) % lanes)
}

// HandleUpdate dispatches one update.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.handleText(ctx, msg)
		return
	}

	switch msg.Command() {
	case "start":
		b.reply(msg, textStart)
	case "login":
		b.handleLogin(ctx, msg)
	case "add_task":
		b.withAuthorization(ctx, msg, b.handleAddTask)
	case "list_tasks":
		b.withAuthorization(ctx, msg, b.handleListTasks)
	case "close_task":
		b.withAuthorization(ctx, msg, b.handleCloseTask)
	default:
		b.handleText(ctx, msg)
	}
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) {
	authURL, err := b.auth.CreateState(ctx, msg.From.ID)
	if err != nil {
		b.fail(msg, "failed to create login link", err, textLoginFailed)
		return
	}
	b.reply(msg, fmt.Sprintf(textLoginLink, authURL))
}

func (b *Bot) withAuthorization(ctx context.Context, msg *tgbotapi.Message, next func(context.Context, *tgbotapi.Message)) {
	ok, _, err := b.auth.IsAuthorized(ctx, msg.From.ID)
	if err != nil {
		b.fail(msg, "failed to check authorization", err, textAuthCheckFailed)
		return
	}
	if !ok {
		b.reply(msg, textLoginFirst)
		return
	}
	next(ctx, msg)
}

func (b *Bot) handleAddTask(ctx context.Context, msg *tgbotapi.Message) {
	title := strings.TrimSpace(msg.CommandArguments())
	if title == "" {
		if err := b.sessions.Begin(ctx, msg.From.ID, models.PendingDescription); err != nil {
			b.fail(msg, "failed to start session", err, textGenericError)
			return
		}
		reply := tgbotapi.NewMessage(msg.Chat.ID, textAskDescription)
		reply.ReplyToMessageID = msg.MessageID
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(textCancelButton, cancelData)),
		)
		b.send(reply)
		return
	}
	b.createIssue(ctx, msg, title)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) {
	issues, err := b.tracker.OpenIssues(ctx)
	if err != nil {
		b.fail(msg, "failed to list issues", err, textListFailed)
		return
	}
	if len(issues) == 0 {
		b.reply(msg, textNoOpenTasks)
		return
	}
	b.reply(msg, textOpenTasks+formatIssues(issues))
}

func (b *Bot) handleCloseTask(ctx context.Context, msg *tgbotapi.Message) {
	issues, err := b.tracker.OpenIssues(ctx)
	if err != nil {
		b.fail(msg, "failed to list issues", err, textGenericError)
		return
	}
	if len(issues) == 0 {
		b.reply(msg, textNothingToClose)
		return
	}
	if err := b.sessions.Begin(ctx, msg.From.ID, models.PendingClose); err != nil {
		b.fail(msg, "failed to start session", err, textGenericError)
		return
	}
	b.reply(msg, textChooseTask+formatIssues(issues)+textEnterNumber)
}

// handleText continues a pending multi-step command, if any.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	pending, err := b.sessions.Pending(ctx, msg.From.ID)
	if err != nil {
		b.fail(msg, "failed to load session", err, textGenericError)
		return
	}

	switch pending {
	case models.PendingDescription:
		title := strings.TrimSpace(msg.Text)
		if title == "" {
			b.reply(msg, textEmptyDescription)
			return
		}
		if b.createIssue(ctx, msg, title) {
			b.finish(ctx, msg.From.ID)
		}
	case models.PendingClose:
		number, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(msg.Text), "#"))
		if err != nil {
			b.reply(msg, textNotANumber)
			return
		}
		if err := b.tracker.CloseIssue(ctx, number); err != nil {
			b.fail(msg, "failed to close issue", err, textGenericError)
			return
		}
		b.reply(msg, fmt.Sprintf(textTaskClosed, number))
		b.finish(ctx, msg.From.ID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	const op = "bot.handleCallback"

	if cb.From == nil {
		return
	}
	pending, err := b.sessions.Pending(ctx, cb.From.ID)
	if err != nil {
		b.answer(cb, fmt.Sprintf(textGenericError, err))
		return
	}
	if cb.Data != cancelData || pending != models.PendingDescription {
		b.answer(cb, "")
		return
	}
	if err := b.sessions.Finish(ctx, cb.From.ID); err != nil {
		b.log.Error("failed to finish session", slog.String("op", op), slog.String("error", err.Error()))
		b.answer(cb, fmt.Sprintf(textGenericError, err))
		return
	}
	b.answer(cb, textCancelled)
	b.send(tgbotapi.NewMessage(cb.From.ID, textNotCreated))
}

// createIssue reports the result to the user and returns true on success.
func (b *Bot) createIssue(ctx context.Context, msg *tgbotapi.Message, title string) bool {
	const op = "bot.createIssue"

	issue, err := b.tracker.CreateIssue(ctx, title)
	if err != nil {
		b.fail(msg, "failed to create issue", err, textCreateFailed)
		return false
	}
	b.log.Info("issue created",
		slog.String("op", op),
		slog.Int("number", issue.Number),
		slog.Int64("requester_id", msg.From.ID),
	)
	b.reply(msg, fmt.Sprintf(textTaskAdded, issue.Number, issue.Title))
	return true
}

func (b *Bot) finish(ctx context.Context, requesterID int64) {
	if err := b.sessions.Finish(ctx, requesterID); err != nil {
		b.log.Error("failed to finish session",
			slog.Int64("requester_id", requesterID),
			slog.String("error", err.Error()),
		)
	}
}

// fail logs err and tells the user; format takes the error as its only verb.
func (b *Bot) fail(msg *tgbotapi.Message, logMsg string, err error, format string) {
	b.log.Error(logMsg,
		slog.Int64("requester_id", msg.From.ID),
		slog.String("error", err.Error()),
	)
	b.reply(msg, fmt.Sprintf(format, err))
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyToMessageID = msg.MessageID
	b.send(reply)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.log.Error("failed to send message", slog.String("error", err.Error()))
	}
}

func (b *Bot) answer(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.sender.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Error("failed to answer callback", slog.String("error", err.Error()))
	}
}

func formatIssues(issues []models.Issue) string {
	var sb strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&sb, "#%d: %s\n", issue.Number, issue.Title)
	}
	return sb.String()
}
