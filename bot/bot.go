package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"lifeboard/date"
	"lifeboard/domain"
)

const webhookMaxSize = 64 << 10

const helpText = `Commands:
/list - all tasks
/day /week /month - tasks due in the period
/add <title> - add a task due today
/done <id> - move a task to the done column
/pnl - portfolio summary
/stock <symbol> - quote and nearest options chain`

// Store is the slice of the record store the bot needs.
type Store interface {
	Snapshot(ctx context.Context) (domain.Board, error)
	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
}

// Market provides quotes and options chains for /stock.
type Market interface {
	Chain(ctx context.Context, symbol, expiration string) (domain.OptionsChain, error)
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Bot mirrors the board and portfolio over a Telegram webhook. Only user
// IDs on the allow list are served; every update is acknowledged with 200
// regardless of outcome so Telegram never retries.
type Bot struct {
	store   Store
	market  Market
	sender  Sender
	allowed map[int64]struct{}
	logger  *log.Logger
}

func New(store Store, market Market, sender Sender, allowedUsers []int64, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.StandardLogger()
	}
	allowed := make(map[int64]struct{}, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = struct{}{}
	}
	return &Bot{store: store, market: market, sender: sender, allowed: allowed, logger: logger}
}

// Webhook returns the handler for Telegram update callbacks.
func (b *Bot) Webhook() echo.HandlerFunc {
	return func(c echo.Context) error {
		var upd Update
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, webhookMaxSize))
		if err := dec.Decode(&upd); err != nil {
			b.logger.WithError(err).Warn("webhook: undecodable update")
			return c.NoContent(http.StatusOK)
		}
		if upd.Message == nil || upd.Message.From == nil {
			return c.NoContent(http.StatusOK)
		}
		if _, ok := b.allowed[upd.Message.From.ID]; !ok {
			b.logger.WithFields(log.Fields{
				"user_id":  upd.Message.From.ID,
				"username": upd.Message.From.Username,
			}).Warn("webhook: user not on allow list")
			return c.NoContent(http.StatusOK)
		}

		ctx := c.Request().Context()
		reply := b.handle(ctx, upd.Message.Text)
		if reply != "" {
			if err := b.sender.Send(ctx, upd.Message.Chat.ID, reply); err != nil {
				b.logger.WithError(err).Error("webhook: reply delivery failed")
			}
		}
		return c.NoContent(http.StatusOK)
	}
}

func (b *Bot) handle(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]
	// Group chats suffix commands with the bot's username.
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), fields[0]))

	switch cmd {
	case "/start", "/help":
		return helpText
	case "/list":
		return b.taskList(ctx, date.All)
	case "/day":
		return b.taskList(ctx, date.Day)
	case "/week":
		return b.taskList(ctx, date.Week)
	case "/month":
		return b.taskList(ctx, date.Month)
	case "/add":
		return b.addTask(ctx, arg)
	case "/done":
		return b.finishTask(ctx, arg)
	case "/pnl":
		return b.portfolio(ctx)
	case "/stock":
		return b.stock(ctx, arg)
	default:
		return "Unknown command. Send /help for the list."
	}
}

func (b *Bot) taskList(ctx context.Context, g date.Granularity) string {
	board, err := b.store.Snapshot(ctx)
	if err != nil {
		b.logger.WithError(err).Error("bot: board fetch failed")
		return "Could not load the board, try again later."
	}
	tasks := date.FilterByPeriod(board.Tasks, func(t domain.Task) date.Date { return t.DueDate }, g, date.Today())
	if len(tasks) == 0 {
		return "No tasks for " + date.Label(date.Today(), g) + "."
	}

	var sb strings.Builder
	sb.WriteString(date.Label(date.Today(), g))
	grouped := make(map[string]bool, len(tasks))
	for _, col := range board.Columns {
		var lines []string
		for _, t := range tasks {
			if t.Status == col.ID {
				grouped[t.ID] = true
				lines = append(lines, taskLine(t))
			}
		}
		if len(lines) == 0 {
			continue
		}
		sb.WriteString("\n\n" + col.Title + ":\n" + strings.Join(lines, "\n"))
	}
	var rest []string
	for _, t := range tasks {
		if !grouped[t.ID] {
			rest = append(rest, taskLine(t))
		}
	}
	if len(rest) > 0 {
		sb.WriteString("\n\nOther:\n" + strings.Join(rest, "\n"))
	}
	return sb.String()
}

func taskLine(t domain.Task) string {
	return fmt.Sprintf("- %s (%s)", t.Title, shortID(t.ID))
}

// shortID is the reply-friendly task handle: the tail of the UUID, long
// enough to be unique on a one-person board.
func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

func (b *Bot) addTask(ctx context.Context, title string) string {
	if strings.TrimSpace(title) == "" {
		return "Usage: /add <task title>"
	}
	task, err := b.store.CreateTask(ctx, domain.Task{
		Title:    strings.TrimSpace(title),
		Category: domain.CategoryPersonal,
		DueDate:  date.Today(),
	})
	if err != nil {
		if domain.IsValidation(err) {
			return err.Error()
		}
		b.logger.WithError(err).Error("bot: task creation failed")
		return "Could not add the task, try again later."
	}
	return fmt.Sprintf("Added %q due %s (%s).", task.Title, task.DueDate, shortID(task.ID))
}

func (b *Bot) finishTask(ctx context.Context, ref string) string {
	if ref == "" {
		return "Usage: /done <task id>"
	}
	board, err := b.store.Snapshot(ctx)
	if err != nil {
		b.logger.WithError(err).Error("bot: board fetch failed")
		return "Could not load the board, try again later."
	}

	var match *domain.Task
	matches := 0
	for i := range board.Tasks {
		if board.Tasks[i].ID == ref {
			match = &board.Tasks[i]
			matches = 1
			break
		}
		if strings.HasSuffix(board.Tasks[i].ID, ref) {
			match = &board.Tasks[i]
			matches++
		}
	}
	if matches == 0 {
		return "No task matches " + ref + "."
	}
	if matches > 1 {
		return "Several tasks match " + ref + ", use a longer id."
	}

	status := doneColumnID(board.Columns)
	if _, err := b.store.UpdateTask(ctx, match.ID, domain.TaskPatch{Status: &status}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "No task matches " + ref + "."
		}
		b.logger.WithError(err).Error("bot: task update failed")
		return "Could not update the task, try again later."
	}
	return "Done: " + match.Title
}

// doneColumnID prefers the conventional DONE column and falls back to the
// rightmost one.
func doneColumnID(cols []domain.Column) string {
	for _, c := range cols {
		if c.ID == "DONE" {
			return c.ID
		}
	}
	if len(cols) > 0 {
		return cols[len(cols)-1].ID
	}
	return "DONE"
}

func (b *Bot) portfolio(ctx context.Context) string {
	board, err := b.store.Snapshot(ctx)
	if err != nil {
		b.logger.WithError(err).Error("bot: board fetch failed")
		return "Could not load the portfolio, try again later."
	}
	s := domain.Summarize(board.Assets, board.Settings)
	return fmt.Sprintf(
		"Portfolio value: %s\nCost basis: %s\nUnrealized: %s (%s%%)\nGoal progress: %s%%",
		s.Value.StringFixed(2), s.Cost.StringFixed(2),
		s.Gain.StringFixed(2), s.GainPercent.StringFixed(2),
		s.GoalProgress.StringFixed(2),
	)
}

func (b *Bot) stock(ctx context.Context, symbol string) string {
	if symbol == "" {
		return "Usage: /stock <symbol>"
	}
	chain, err := b.market.Chain(ctx, symbol, "")
	if err != nil {
		if domain.IsValidation(err) || errors.Is(err, domain.ErrExternalFetchFailed) {
			return "No market data for " + domain.NormalizeSymbol(symbol) + "."
		}
		b.logger.WithError(err).Error("bot: chain fetch failed")
		return "Could not fetch market data, try again later."
	}
	return fmt.Sprintf(
		"%s: %.2f\nExpiration %s: %d calls / %d puts",
		chain.Symbol, chain.CurrentPrice, chain.ExpirationDate, len(chain.Calls), len(chain.Puts),
	)
}
