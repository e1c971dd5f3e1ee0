// Package console runs the interactive terminal conversation.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/energybot/internal/chat"
	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// ErrInvalidDateFormat is returned by AskStartDate when the answer is not
// a YYYY-MM-DD date. The default start date is returned alongside it.
var ErrInvalidDateFormat = errors.New("console: invalid date format")

const (
	datePrompt  = "Please enter the current date (YYYY-MM-DD): "
	userPrompt  = "You: "
	replyPrefix = "Bot: "
)

// Option customizes a Console.
type Option func(*Console)

// WithPlot toggles the forecast sparkline after predict replies.
func WithPlot(enabled bool) Option {
	return func(c *Console) { c.plot = enabled }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Console) { c.log = l }
}

// Console is the line-oriented chat front end.
type Console struct {
	scanner *bufio.Scanner
	out     io.Writer
	plot    bool
	log     zerolog.Logger
}

// New creates a console on stdin/stdout.
func New(opts ...Option) *Console {
	return NewWithIO(os.Stdin, os.Stdout, opts...)
}

// NewWithIO creates a console with explicit reader/writer (useful for testing).
func NewWithIO(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		scanner: bufio.NewScanner(in),
		out:     out,
		plot:    true,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AskStartDate prompts for the session's start date. On an invalid answer
// it prints a notice and returns utils.DefaultEpoch with ErrInvalidDateFormat;
// callers continue with the returned date either way.
func (c *Console) AskStartDate() (time.Time, error) {
	fmt.Fprint(c.out, datePrompt)
	if !c.scanner.Scan() {
		fmt.Fprintln(c.out)
		return utils.DefaultEpoch, nil
	}
	answer := strings.TrimSpace(c.scanner.Text())
	t, err := utils.ParseDate(answer)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid date format. Using default start date '%s'.\n", utils.FormatDate(utils.DefaultEpoch))
		return utils.DefaultEpoch, fmt.Errorf("%w: %q", ErrInvalidDateFormat, answer)
	}
	return t, nil
}

// Run converses until an exit word, end of input, or ctx cancellation
// (interrupt). Every path prints the farewell and returns nil unless
// reading the input fails.
func (c *Console) Run(ctx context.Context, d *chat.Dispatcher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.printBanner(d.Commodities())
	sess := d.NewSession()

	lines := make(chan string)
	readErr := make(chan error, 1)
	// After an interrupt the reader may stay blocked on input until the
	// process exits.
	go func() {
		defer close(lines)
		for c.scanner.Scan() {
			select {
			case lines <- c.scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- c.scanner.Err()
	}()

	for {
		fmt.Fprint(c.out, userPrompt)
		select {
		case <-ctx.Done():
			fmt.Fprintf(c.out, "\n%s\n", sess.Close())
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintf(c.out, "\n%s\n", sess.Close())
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if c.respond(ctx, sess, line) {
				return nil
			}
		}
	}
}

// respond answers one line and reports whether the session ended.
func (c *Console) respond(ctx context.Context, sess *chat.Session, line string) bool {
	reply, err := sess.Handle(ctx, line)
	if err != nil {
		c.log.Debug().Err(err).Msg("handle after termination")
		return true
	}
	if reply.Terminated {
		fmt.Fprintln(c.out, reply.Text)
		return true
	}
	fmt.Fprintf(c.out, "%s%s\n", replyPrefix, reply.Text)
	if c.plot && reply.Forecast != nil {
		fmt.Fprint(c.out, PlotForecast(*reply.Forecast))
	}
	return false
}

func (c *Console) printBanner(commodities []models.Commodity) {
	names := make([]string, len(commodities))
	for i, cm := range commodities {
		names[i] = cm.String()
	}
	fmt.Fprintln(c.out, "Welcome to the Energy Chatbot!")
	fmt.Fprintf(c.out, "You can ask about current prices, predictions, or historical data for %s.\n", joinAnd(names))
	fmt.Fprintln(c.out, "Type 'help' for more information.")
}

// joinAnd renders "A", "A and B", or "A, B, and C".
func joinAnd(names []string) string {
	switch len(names) {
	case 0:
		return "no commodities"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}
