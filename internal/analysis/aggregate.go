package analysis

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// ErrNoTransactions indicates that no purchase or sale rows survived cleaning.
var ErrNoTransactions = errors.New("no purchase or sale transactions found")

// Summary is the headline aggregation written to summary.json. Field order
// matches the published dataset format.
type Summary struct {
	TotalSpent         float64            `json:"total_spent"`
	TotalEarned        float64            `json:"total_earned"`
	NetFlow            float64            `json:"net_flow"`
	PurchaseCount      int                `json:"purchase_count"`
	SaleCount          int                `json:"sale_count"`
	MostPurchasedItem  string             `json:"most_purchased_item"`
	HighestTransaction HighestTransaction `json:"highest_transaction"`
	ItemDetails        []ItemDetail       `json:"item_details"`
}

// HighestTransaction describes the single largest row by price.
type HighestTransaction struct {
	MarketName string  `json:"market_name"`
	PriceEUR   float64 `json:"price_eur"`
	Type       string  `json:"type"`
}

// ItemDetail aggregates all rows for one market item.
type ItemDetail struct {
	MarketName       string         `json:"Market Name"`
	TransactionCount int            `json:"transaction_count"`
	TotalEUR         float64        `json:"total_eur"`
	TypeBreakdown    map[string]int `json:"type_breakdown"`
}

// BarRow is one category row of the spent-vs-earned chart dataset.
type BarRow struct {
	Category string  `json:"Category"`
	Spent    float64 `json:"spent"`
	Earned   float64 `json:"earned"`
}

// LineRow is one (day, item) point of the volume-over-time dataset.
type LineRow struct {
	Date       string  `json:"Date"`
	MarketName string  `json:"Market Name"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
}

// PieRow is one slice of the transaction-type distribution dataset.
type PieRow struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Report bundles every dataset the dashboard consumes.
type Report struct {
	Summary Summary
	Bar     []BarRow
	Line    []LineRow
	Pie     []PieRow
}

// Aggregate computes all dashboard datasets from cleaned transactions.
func Aggregate(txs []Transaction) (Report, error) {
	hasTradable := false
	for _, tx := range txs {
		if tx.Type == TypePurchase || tx.Type == TypeSale {
			hasTradable = true
			break
		}
	}
	if !hasTradable {
		return Report{}, ErrNoTransactions
	}

	var report Report
	report.Summary = summarize(txs)
	report.Bar = barRows(txs)
	report.Line = lineRows(txs)
	report.Pie = []PieRow{
		{Name: "Purchases", Value: report.Summary.PurchaseCount},
		{Name: "Sales", Value: report.Summary.SaleCount},
	}
	return report, nil
}

func summarize(txs []Transaction) Summary {
	var s Summary
	var spentCents, earnedCents float64

	purchaseCounts := make(map[string]int)
	var purchaseOrder []string

	highest := -1
	for i, tx := range txs {
		switch tx.Type {
		case TypePurchase:
			spentCents += tx.PriceCents
			s.PurchaseCount++
			if _, seen := purchaseCounts[tx.MarketName]; !seen {
				purchaseOrder = append(purchaseOrder, tx.MarketName)
			}
			purchaseCounts[tx.MarketName]++
		case TypeSale:
			earnedCents += tx.PriceCents
			s.SaleCount++
		}
		if highest < 0 || tx.PriceCents > txs[highest].PriceCents {
			highest = i
		}
	}

	s.TotalSpent = round2(spentCents / 100)
	s.TotalEarned = round2(earnedCents / 100)
	s.NetFlow = round2(s.TotalEarned - s.TotalSpent)

	s.MostPurchasedItem = "None"
	best := 0
	for _, name := range purchaseOrder {
		if purchaseCounts[name] > best {
			best = purchaseCounts[name]
			s.MostPurchasedItem = name
		}
	}

	if highest >= 0 {
		s.HighestTransaction = HighestTransaction{
			MarketName: txs[highest].MarketName,
			PriceEUR:   round2(txs[highest].PriceCents / 100),
			Type:       txs[highest].Type,
		}
	} else {
		s.HighestTransaction = HighestTransaction{MarketName: "None"}
	}

	s.ItemDetails = itemDetails(txs)
	return s
}

func itemDetails(txs []Transaction) []ItemDetail {
	byItem := make(map[string]*ItemDetail)
	for _, tx := range txs {
		detail, ok := byItem[tx.MarketName]
		if !ok {
			detail = &ItemDetail{
				MarketName:    tx.MarketName,
				TypeBreakdown: make(map[string]int),
			}
			byItem[tx.MarketName] = detail
		}
		detail.TransactionCount++
		detail.TotalEUR += tx.PriceCents
		detail.TypeBreakdown[tx.Type]++
	}

	names := make([]string, 0, len(byItem))
	for name := range byItem {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ItemDetail, 0, len(names))
	for _, name := range names {
		detail := byItem[name]
		detail.TotalEUR = round2(detail.TotalEUR / 100)
		out = append(out, *detail)
	}
	return out
}

// Item categories used by the spent-vs-earned chart.
const (
	CategoryCapsules = "Capsules"
	CategoryCases    = "Cases"
	CategoryCharms   = "Charms"
	CategoryStickers = "Stickers"
	CategoryWeapons  = "Weapons"
)

// Categorize buckets a market item name by its dominant keyword.
func Categorize(marketName string) string {
	switch {
	case marketName == "":
		return "Unknown"
	case strings.Contains(marketName, "Capsule"):
		return CategoryCapsules
	case strings.Contains(marketName, "Case"):
		return CategoryCases
	case strings.Contains(marketName, "Charm"):
		return CategoryCharms
	case strings.Contains(marketName, "Sticker"):
		return CategoryStickers
	default:
		return CategoryWeapons
	}
}

func barRows(txs []Transaction) []BarRow {
	type totals struct{ spent, earned float64 }
	byCategory := make(map[string]*totals)
	for _, tx := range txs {
		category := Categorize(tx.MarketName)
		t, ok := byCategory[category]
		if !ok {
			t = &totals{}
			byCategory[category] = t
		}
		switch tx.Type {
		case TypePurchase:
			t.spent += tx.PriceCents
		case TypeSale:
			t.earned += tx.PriceCents
		}
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	out := make([]BarRow, 0, len(categories))
	for _, category := range categories {
		t := byCategory[category]
		out = append(out, BarRow{
			Category: category,
			Spent:    round2(t.spent / 100),
			Earned:   round2(t.earned / 100),
		})
	}
	return out
}

func lineRows(txs []Transaction) []LineRow {
	type key struct {
		date string
		name string
	}
	type point struct {
		cents float64
		count int
	}
	byKey := make(map[key]*point)
	for _, tx := range txs {
		k := key{date: tx.ActedOn.Format("2006-01-02"), name: tx.MarketName}
		p, ok := byKey[k]
		if !ok {
			p = &point{}
			byKey[k] = p
		}
		p.cents += tx.PriceCents
		p.count++
	}

	keys := make([]key, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].name < keys[j].name
	})

	out := make([]LineRow, 0, len(keys))
	for _, k := range keys {
		p := byKey[k]
		out = append(out, LineRow{
			Date:       k.date,
			MarketName: k.name,
			Value:      round2(p.cents / 100),
			Count:      p.count,
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
