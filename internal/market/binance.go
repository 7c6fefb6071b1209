package market

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
)

// Binance implements Client against the public Binance spot API.
// No API key is required for klines or ticker prices.
type Binance struct {
	client *binance.Client
}

func NewBinance() *Binance {
	return &Binance{client: binance.NewClient("", "")}
}

func (b *Binance) Candles(ctx context.Context, asset string, limit int) ([]Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(pair(asset)).
		Interval(CandleInterval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch klines for %s", pair(asset))
	}

	candles := make([]Candle, 0, len(klines))
	for _, k := range klines {
		c, err := parseKline(k)
		if err != nil {
			return nil, errors.Wrapf(err, "malformed kline for %s", pair(asset))
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (b *Binance) Price(ctx context.Context, asset string) (float64, error) {
	prices, err := b.client.NewListPricesService().Symbol(pair(asset)).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "could not fetch price for %s", pair(asset))
	}
	if len(prices) == 0 {
		return 0, errors.Errorf("no price returned for %s", pair(asset))
	}

	value, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed price for %s", pair(asset))
	}
	return value, nil
}

func pair(asset string) string {
	return asset + QuoteAsset
}

func parseKline(k *binance.Kline) (Candle, error) {
	var c Candle
	var err error

	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, err
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, err
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, err
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, err
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, err
	}

	c.OpenTime = time.UnixMilli(k.OpenTime)
	c.CloseTime = time.UnixMilli(k.CloseTime)
	return c, nil
}
