// Package chat routes interpreted utterances to price, forecast, history and
// advisory handlers and renders the reply text.
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/seenimoa/energybot/internal/advisory"
	"github.com/seenimoa/energybot/internal/analysis/technical"
	"github.com/seenimoa/energybot/internal/backtest"
	"github.com/seenimoa/energybot/internal/metrics"
	"github.com/seenimoa/energybot/internal/nlu"
	"github.com/seenimoa/energybot/pkg/models"
)

// Defaults for the forecast horizon and history window, in weeks.
const (
	DefaultHorizon       = 10
	DefaultHistoryWindow = 10
)

// PriceStore is the read-only view of price history the dispatcher needs.
type PriceStore interface {
	Commodities() []models.Commodity
	Series(c models.Commodity) (models.Series, error)
	Latest(c models.Commodity) (models.TimePoint, error)
	Tail(c models.Commodity, n int) (models.Series, error)
}

// Forecaster projects a series forward.
type Forecaster interface {
	Forecast(ctx context.Context, s models.Series, horizon int) (models.Forecast, error)
}

// Reply is the outcome of one utterance.
type Reply struct {
	Text       string           `json:"response"`
	Intent     nlu.Intent       `json:"intent"`
	Commodity  models.Commodity `json:"commodity,omitempty"`
	Forecast   *models.Forecast `json:"forecast,omitempty"`
	Terminated bool             `json:"terminated,omitempty"`
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHorizon sets the number of weeks forecast for predict and advice queries.
func WithHorizon(weeks int) Option {
	return func(d *Dispatcher) {
		if weeks > 0 {
			d.horizon = weeks
		}
	}
}

// WithHistoryWindow sets how many past weeks history queries return.
func WithHistoryWindow(weeks int) Option {
	return func(d *Dispatcher) {
		if weeks > 0 {
			d.window = weeks
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher maps (intent, entity) pairs to handlers. It holds no
// per-conversation state; use NewSession for a conversation.
type Dispatcher struct {
	store   PriceStore
	interp  *nlu.Interpreter
	fc      Forecaster
	horizon int
	window  int
	log     zerolog.Logger
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

// NewDispatcher builds a dispatcher over st. The interpreter's entity set is
// taken from the store's commodities.
func NewDispatcher(st PriceStore, fc Forecaster, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:   st,
		interp:  nlu.NewInterpreter(st),
		fc:      fc,
		horizon: DefaultHorizon,
		window:  DefaultHistoryWindow,
		log:     zerolog.Nop(),
		tracer:  otel.Tracer("github.com/seenimoa/energybot/internal/chat"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Interpreter exposes the utterance interpreter.
func (d *Dispatcher) Interpreter() *nlu.Interpreter { return d.interp }

// Commodities lists the commodities the dispatcher can answer about.
func (d *Dispatcher) Commodities() []models.Commodity { return d.store.Commodities() }

// Resolve maps a free-form commodity name to its canonical form.
func (d *Dispatcher) Resolve(name string) (models.Commodity, bool) {
	return d.interp.Entities().Resolve(name)
}

// Latest returns the most recent observation for c.
func (d *Dispatcher) Latest(c models.Commodity) (models.TimePoint, error) {
	return d.store.Latest(c)
}

// History returns the last n weeks of c.
func (d *Dispatcher) History(c models.Commodity, n int) (models.Series, error) {
	return d.store.Tail(c, n)
}

// Horizon is the number of weeks forecast per query.
func (d *Dispatcher) Horizon() int { return d.horizon }

// Forecast projects c over the configured horizon and evaluates the advice.
// Unlike Dispatch it returns errors to the caller.
func (d *Dispatcher) Forecast(ctx context.Context, c models.Commodity) (models.Forecast, models.Verdict, error) {
	f, err := d.forecast(ctx, c)
	if err != nil {
		d.metrics.RecordFailure(failureKind(err))
		return models.Forecast{}, "", err
	}
	return f, advisory.Evaluate(f), nil
}

// Indicators summarises moving averages, RSI and bands over the full
// history of c.
func (d *Dispatcher) Indicators(c models.Commodity) (technical.Summary, error) {
	s, err := d.store.Series(c)
	if err != nil {
		return technical.Summary{}, err
	}
	return technical.Summarize(s)
}

// Backtest replays the full history of c with the dispatcher's forecaster.
// A zero cfg.Horizon uses the dispatcher's horizon.
func (d *Dispatcher) Backtest(ctx context.Context, c models.Commodity, cfg backtest.Config) (*backtest.Result, error) {
	s, err := d.store.Series(c)
	if err != nil {
		return nil, err
	}
	if cfg.Horizon < 1 {
		cfg.Horizon = d.horizon
	}
	return backtest.NewEngine(d.fc, cfg).Run(ctx, s)
}

// Dispatch interprets text and runs the matching handler. Exit handling is
// the session's job and never reaches this method.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) Reply {
	res := d.interp.Interpret(text)
	ctx, span := d.tracer.Start(ctx, "chat.Dispatch", trace.WithAttributes(
		attribute.String("intent", string(res.Intent)),
		attribute.String("entity", string(res.Entity)),
	))
	defer span.End()

	d.log.Debug().
		Strs("tokens", res.Tokens).
		Str("intent", string(res.Intent)).
		Str("entity", string(res.Entity)).
		Msg("interpreted utterance")
	d.metrics.RecordIntent(string(res.Intent))

	reply := Reply{Intent: res.Intent, Commodity: res.Entity}
	switch res.Intent {
	case nlu.IntentGreeting:
		reply.Commodity = ""
		reply.Text = msgGreeting
	case nlu.IntentCurrentPrice:
		reply.Text = d.currentPrice(res)
	case nlu.IntentPredict:
		reply.Text, reply.Forecast = d.predict(ctx, res)
	case nlu.IntentHedgeOrSpeculate:
		reply.Text = d.advise(ctx, res)
	case nlu.IntentHistory:
		reply.Text = d.history(res)
	case nlu.IntentHelp:
		reply.Text = "Here is what you can ask me:\n" + HelpTable()
	default:
		reply.Text = msgCapability
	}
	return reply
}

func (d *Dispatcher) currentPrice(res nlu.Result) string {
	if !res.HasEntity() {
		return msgNoData
	}
	p, err := d.store.Latest(res.Entity)
	if err != nil {
		return d.fail(res.Entity, err)
	}
	return formatCurrent(res.Entity, p)
}

func (d *Dispatcher) predict(ctx context.Context, res nlu.Result) (string, *models.Forecast) {
	if !res.HasEntity() {
		return msgNoData, nil
	}
	f, err := d.forecast(ctx, res.Entity)
	if err != nil {
		return d.fail(res.Entity, err), nil
	}
	return formatForecast(f, advisory.Evaluate(f)), &f
}

func (d *Dispatcher) advise(ctx context.Context, res nlu.Result) string {
	if !res.HasEntity() {
		return msgNoData
	}
	f, err := d.forecast(ctx, res.Entity)
	if err != nil {
		return d.fail(res.Entity, err)
	}
	return advisory.Evaluate(f).Advice()
}

func (d *Dispatcher) history(res nlu.Result) string {
	if !res.HasEntity() {
		return msgNoData
	}
	s, err := d.store.Tail(res.Entity, d.window)
	if err != nil {
		return d.fail(res.Entity, err)
	}
	return formatHistory(s)
}

func (d *Dispatcher) forecast(ctx context.Context, c models.Commodity) (models.Forecast, error) {
	s, err := d.store.Series(c)
	if err != nil {
		return models.Forecast{}, err
	}
	start := time.Now()
	f, err := d.fc.Forecast(ctx, s, d.horizon)
	if err != nil {
		return models.Forecast{}, err
	}
	d.metrics.ObserveForecast(string(c), time.Since(start).Seconds())
	return f, nil
}

// fail turns err into an apology; the conversation always continues.
func (d *Dispatcher) fail(c models.Commodity, err error) string {
	kind := failureKind(err)
	d.metrics.RecordFailure(kind)
	d.log.Debug().Err(err).Str("commodity", string(c)).Str("kind", kind).Msg("query failed")
	return apology(c, err)
}
