package store

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// Generator produces synthetic weekly price series with uniformly drawn values.
type Generator struct {
	Weeks    int
	MinPrice float64
	MaxPrice float64
	Start    time.Time
	Seed     uint64
}

// DefaultGenerator returns a generator with 52 weeks of prices in [50, 100]
// starting from the first Sunday on or after 2024-01-01.
func DefaultGenerator() Generator {
	return Generator{
		Weeks:    52,
		MinPrice: 50,
		MaxPrice: 100,
		Start:    utils.DefaultEpoch,
		Seed:     uint64(time.Now().UnixNano()),
	}
}

func (g Generator) validate() error {
	if g.Weeks < 0 {
		return fmt.Errorf("generator: weeks must be >= 0, got %d", g.Weeks)
	}
	if g.MinPrice < 0 || g.MaxPrice < g.MinPrice {
		return fmt.Errorf("generator: invalid price range [%g, %g]", g.MinPrice, g.MaxPrice)
	}
	return nil
}

// Generate returns one synthetic series for c. stream selects an independent
// random stream so different commodities never share draws.
func (g Generator) Generate(c models.Commodity, stream uint64) (models.Series, error) {
	if err := g.validate(); err != nil {
		return models.Series{}, err
	}
	start := g.Start
	if start.IsZero() {
		start = utils.DefaultEpoch
	}
	first := utils.AlignToWeek(start)

	r := rand.New(rand.NewPCG(g.Seed, stream))
	span := g.MaxPrice - g.MinPrice
	pts := make([]models.TimePoint, g.Weeks)
	for i := range pts {
		pts[i] = models.TimePoint{
			Time:  first.AddDate(0, 0, 7*i),
			Value: g.MinPrice + r.Float64()*span,
		}
	}
	return models.Series{Commodity: c, Points: pts}, nil
}

// Build generates a series for every commodity concurrently and returns the
// aligned store.
func (g Generator) Build(ctx context.Context, commodities []models.Commodity) (*Store, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	out := make([]models.Series, len(commodities))
	eg, ctx := errgroup.WithContext(ctx)
	for i, c := range commodities {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := g.Generate(c, uint64(i))
			if err != nil {
				return fmt.Errorf("generate %s: %w", c, err)
			}
			out[i] = s
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return New(out...)
}
