package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/seenimoa/energybot/internal/forecast"
	"github.com/seenimoa/energybot/internal/store"
	"github.com/seenimoa/energybot/pkg/models"
)

// ErrSessionTerminated is returned by Session.Handle after an exit utterance.
var ErrSessionTerminated = errors.New("chat: session terminated")

// failureKind classifies an error for metrics labels.
func failureKind(err error) string {
	switch {
	case errors.Is(err, store.ErrUnknownCommodity):
		return "unknown_commodity"
	case errors.Is(err, store.ErrEmptySeries):
		return "empty_series"
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, forecast.ErrModelFit):
		return "model_fit"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

// apology converts a data or modeling failure into the reply text.
func apology(c models.Commodity, err error) string {
	switch {
	case errors.Is(err, store.ErrUnknownCommodity), errors.Is(err, store.ErrEmptySeries):
		return fmt.Sprintf("Sorry, I don't have data for %s.", c)
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return fmt.Sprintf("Sorry, there isn't enough price history for %s to make a forecast yet.", c)
	case errors.Is(err, forecast.ErrModelFit):
		return fmt.Sprintf("Sorry, I couldn't fit a price model for %s right now. Please try again later.", c)
	default:
		return fmt.Sprintf("Sorry, something went wrong while looking up %s. Please try again.", c)
	}
}
