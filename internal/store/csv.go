package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/seenimoa/energybot/pkg/models"
	"github.com/seenimoa/energybot/pkg/utils"
)

// LoadCSV reads a wide price table:
//
//	week,Diesel,Petroleum,LNG
//	2024-01-07,71.20,88.02,63.10
//
// An empty cell means the commodity has no observation that week; such weeks
// drop out of the shared axis.
func LoadCSV(r io.Reader) (*Store, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("csv header needs a week column and at least one commodity")
	}

	series := make([]models.Series, len(header)-1)
	for i, name := range header[1:] {
		series[i].Commodity = models.Commodity(strings.TrimSpace(name))
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		week, err := utils.ParseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		for i, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("csv line %d, %s: %w", line, series[i].Commodity, err)
			}
			if v < 0 {
				return nil, fmt.Errorf("csv line %d, %s: negative price %g", line, series[i].Commodity, v)
			}
			series[i].Points = append(series[i].Points, models.TimePoint{Time: week, Value: v})
		}
	}

	return New(series...)
}

// LoadCSVFile opens path and loads it with LoadCSV.
func LoadCSVFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}
