package chat

import (
	"fmt"
	"strings"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

const (
	msgGreeting   = "Hello! How can I assist you with energy prices today?"
	msgNoData     = "Sorry, I don't have data for that commodity."
	msgCapability = "I can provide energy price predictions! Try asking about current prices, predictions, or historical data."
	msgFarewell   = "Goodbye!"
)

// helpRows is the fixed (query, description) table shown for the help intent.
var helpRows = [][]string{
	{"Query", "Description"},
	{"What is the current price of <commodity>?", "Get the current price of a commodity."},
	{"What are the predictions for <commodity>?", "Get the price predictions for a commodity."},
	{"Should I hedge or speculate on <commodity>?", "Get advice on whether to hedge or speculate based on price predictions."},
	{"Show history for <commodity>", "Get the historical prices for a commodity."},
	{"Help", "Display this help message."},
	{"Exit or Quit", "Exit the chatbot."},
}

// HelpTable renders the capability table.
func HelpTable() string {
	return utils.GridTable(helpRows)
}

// Farewell is the message emitted when a session ends.
func Farewell() string { return msgFarewell }

func formatPoints(pts []models.TimePoint) string {
	lines := make([]string, len(pts))
	for i, p := range pts {
		lines[i] = fmt.Sprintf("%s: %s", utils.FormatDate(p.Time), utils.FormatUSD(p.Value))
	}
	return strings.Join(lines, "\n")
}

func formatCurrent(c models.Commodity, p models.TimePoint) string {
	return fmt.Sprintf("The current price of %s is %s.", c, utils.FormatUSD(p.Value))
}

func formatForecast(f models.Forecast, v models.Verdict) string {
	return fmt.Sprintf("Predicted prices for %s:\n%s\n%s", f.Commodity, formatPoints(f.Points), v.Advice())
}

func formatHistory(s models.Series) string {
	if s.Len() == 0 {
		return fmt.Sprintf("Sorry, there is no price history for %s yet.", s.Commodity)
	}
	return fmt.Sprintf("Historical prices for %s:\n%s", s.Commodity, formatPoints(s.Points))
}
