package types

import (
	"math"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestBuyTrade() {
	trade := Trade{
		Timestamp: 100,
		FromAsset: "ORBS",
		ToAsset:   "A",
		PriceTo:   optional.Some(10.0),
		Units:     100,
		Notional:  1000,
	}

	suite.True(trade.IsBuy())
	suite.False(trade.IsSell())
	suite.Equal(10.0, trade.Price())
	suite.Equal("A", trade.Product())
}

func (suite *TradeTestSuite) TestSellTrade() {
	trade := Trade{
		Timestamp: 200,
		FromAsset: "A",
		ToAsset:   "ORBS",
		PriceFrom: optional.Some(11.0),
		Units:     100,
		Notional:  1100,
	}

	suite.False(trade.IsBuy())
	suite.True(trade.IsSell())
	suite.Equal(11.0, trade.Price())
	suite.Equal("A", trade.Product())
}

func (suite *TradeTestSuite) TestTradeWithoutPrice() {
	suite.Equal(0.0, Trade{}.Price())
}

func (suite *TradeTestSuite) TestPriceSnapshot() {
	snapshot := PriceSnapshot{"A": 10, "B": math.NaN(), "C": math.Inf(1)}

	price, ok := snapshot.Price("A")
	suite.True(ok)
	suite.Equal(10.0, price)

	_, ok = snapshot.Price("B")
	suite.False(ok)
	suite.True(snapshot.Has("B"))

	_, ok = snapshot.Price("C")
	suite.False(ok)

	_, ok = snapshot.Price("D")
	suite.False(ok)
	suite.False(snapshot.Has("D"))
}

func (suite *TradeTestSuite) TestResultRows() {
	steps := []StepResult{
		{Timestamp: 1, Signal: ParseSignal("a", "ORBS"), Holding: "ORBS", Value: 1000},
		{Timestamp: 2, Signal: HoldSignal(), Holding: "A", Value: 1100},
	}

	rows := ToResultRows(steps)
	suite.Len(rows, 2)
	suite.Equal(ResultRow{Timestamp: 1, Signal: "A", Holding: "ORBS", NewPortfolioValue: 1000}, rows[0])
	suite.Equal("", rows[1].Signal)

	series := PriceSeries{Products: []string{"A"}, Rows: []PriceRow{{Timestamp: 1}, {Timestamp: 2}}}
	suite.Equal(2, series.Len())
	suite.Equal(int64(2), series.Last().Timestamp)
}
