package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInputMissing indicates the transaction history file does not exist.
var ErrInputMissing = errors.New("market history file not found")

// ErrNoPriceColumn indicates no header matched the price column heuristics.
var ErrNoPriceColumn = errors.New("no price column found")

// requiredColumns must all be present in the cleaned header.
var requiredColumns = []string{"Game Name", "Acted On", "Type", "Market Name"}

// Transaction is one cleaned market-history row.
type Transaction struct {
	Game       string
	ActedOn    time.Time
	Type       string
	MarketName string
	PriceCents float64
}

// LoadStats records how many rows survived each cleaning stage.
type LoadStats struct {
	Read        int
	GameMatched int
	Usable      int
}

// LoadOptions control history loading.
type LoadOptions struct {
	// Game filters rows to one game. Empty keeps everything.
	Game string
	// Year anchors day-month dates that carry no year.
	Year int
}

// LoadHistory reads and cleans a Steam market-history CSV export.
func LoadHistory(path string, opts LoadOptions) ([]Transaction, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, LoadStats{}, fmt.Errorf("%w: %q", ErrInputMissing, path)
		}
		return nil, LoadStats{}, fmt.Errorf("open history %q: %w", path, err)
	}
	defer f.Close()
	return decodeHistory(f, opts)
}

func decodeHistory(r io.Reader, opts LoadOptions) ([]Transaction, LoadStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("read history header: %w", err)
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = cleanColumn(col)
	}

	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}

	priceCol := -1
	for i, col := range columns {
		if strings.Contains(col, "Price") && strings.Contains(col, "Cents") {
			priceCol = i
			break
		}
	}
	if priceCol < 0 {
		return nil, LoadStats{}, fmt.Errorf("%w; available columns: %s", ErrNoPriceColumn, strings.Join(columns, ", "))
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, LoadStats{}, fmt.Errorf("missing required columns %s; available columns: %s",
			strings.Join(missing, ", "), strings.Join(columns, ", "))
	}

	year := opts.Year
	if year == 0 {
		year = time.Now().Year()
	}

	var (
		stats LoadStats
		txs   []Transaction
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read history row: %w", err)
		}
		stats.Read++

		field := func(i int) string {
			if i < 0 || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		game := field(index["Game Name"])
		if opts.Game != "" && game != opts.Game {
			continue
		}
		stats.GameMatched++

		txType := NormalizeType(field(index["Type"]))
		market := field(index["Market Name"])
		price, priceOK := parsePrice(field(priceCol))
		actedOn, dateOK := parseActedOn(field(index["Acted On"]), year)
		if txType == "" || market == "" || !priceOK || !dateOK {
			continue
		}
		stats.Usable++

		txs = append(txs, Transaction{
			Game:       game,
			ActedOn:    actedOn,
			Type:       txType,
			MarketName: market,
			PriceCents: price,
		})
	}

	return txs, stats, nil
}

// cleanColumn strips whitespace and stray quote characters that Steam's
// export wraps around some header names.
func cleanColumn(col string) string {
	col = strings.TrimSpace(col)
	col = strings.Trim(col, `"`)
	col = strings.Trim(col, `'`)
	return col
}

// Normalized transaction types.
const (
	TypePurchase = "purchase"
	TypeSale     = "sale"
)

// NormalizeType folds the export's transaction-type vocabulary into
// purchase/sale. Unrecognized values pass through lowercased so they still
// appear in per-item breakdowns.
func NormalizeType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return ""
	case "purchase", "buy", "bought":
		return TypePurchase
	case "sale", "sell", "sold":
		return TypeSale
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

// parsePrice handles the export's comma decimal separator.
func parsePrice(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// actedOnLayouts cover the "2 Jan" day-month form the export uses. The
// export omits the year; callers anchor rows to a reference year.
var actedOnLayouts = []string{"2 Jan", "2 January", "2 Jan 2006"}

func parseActedOn(raw string, year int) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range actedOnLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t, true
	}
	return time.Time{}, false
}
