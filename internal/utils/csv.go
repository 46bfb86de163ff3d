package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"cryptoRotationBot/internal/domain"
)

func WriteCandlesToCSV(points []*domain.PricePoint, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"open_time", "close_time", "asset", "interval", "open", "high", "low", "close", "volume"})

	for _, p := range points {
		writer.Write([]string{
			p.OpenTime.Format(time.RFC3339),
			p.CloseTime.Format(time.RFC3339),
			p.Asset,
			p.Interval,
			strconv.FormatFloat(p.Open, 'f', -1, 64),
			strconv.FormatFloat(p.High, 'f', -1, 64),
			strconv.FormatFloat(p.Low, 'f', -1, 64),
			strconv.FormatFloat(p.Close, 'f', -1, 64),
			strconv.FormatFloat(p.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

func WriteTradesToCSV(trades []*domain.TradeRecord, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"id", "executed_at", "type", "from_asset", "to_asset",
		"amount_sold", "amount_bought", "price_sold", "price_bought",
		"expected_return", "fee", "fee_currency", "simulated"})

	for _, t := range trades {
		writer.Write([]string{
			t.ID,
			t.Timestamp.Format(time.RFC3339),
			string(t.Type),
			t.FromAsset,
			t.ToAsset,
			strconv.FormatFloat(t.AmountSold, 'f', -1, 64),
			strconv.FormatFloat(t.AmountBought, 'f', -1, 64),
			strconv.FormatFloat(t.PriceSold, 'f', -1, 64),
			strconv.FormatFloat(t.PriceBought, 'f', -1, 64),
			strconv.FormatFloat(t.ExpectedReturn, 'f', -1, 64),
			strconv.FormatFloat(t.Fee, 'f', -1, 64),
			t.FeeCurrency,
			strconv.FormatBool(t.Simulated),
		})
	}
	return writer.Error()
}
