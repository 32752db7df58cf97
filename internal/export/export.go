package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"SignalDesk/internal/model"
)

// Row is one bar with the derived series computed for it. Time is in unix
// milliseconds. Indicator columns are null while the indicator is warming up or
// when the strategy does not produce it.
type Row struct {
	Time   int64   `parquet:"time"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`

	PlusDI     *float64 `parquet:"plus_di,optional"`
	MinusDI    *float64 `parquet:"minus_di,optional"`
	ADX        *float64 `parquet:"adx,optional"`
	K          *float64 `parquet:"stoch_k,optional"`
	D          *float64 `parquet:"stoch_d,optional"`
	RSI        *float64 `parquet:"rsi,optional"`
	ATR        *float64 `parquet:"atr,optional"`
	Upper      *float64 `parquet:"upper_band,optional"`
	Lower      *float64 `parquet:"lower_band,optional"`
	Supertrend *float64 `parquet:"supertrend,optional"`
	Direction  *float64 `parquet:"direction,optional"`
	MACD       *float64 `parquet:"macd,optional"`
	MACDSignal *float64 `parquet:"macd_signal,optional"`
	CCI        *float64 `parquet:"cci,optional"`
	WilliamsR  *float64 `parquet:"williams_r,optional"`
	BullPower  *float64 `parquet:"bull_power,optional"`
	BearPower  *float64 `parquet:"bear_power,optional"`
}

// frame column name -> row field
var columns = map[string]func(*Row) **float64{
	"+DI":         func(r *Row) **float64 { return &r.PlusDI },
	"-DI":         func(r *Row) **float64 { return &r.MinusDI },
	"ADX":         func(r *Row) **float64 { return &r.ADX },
	"%K":          func(r *Row) **float64 { return &r.K },
	"%D":          func(r *Row) **float64 { return &r.D },
	"rsi":         func(r *Row) **float64 { return &r.RSI },
	"atr_value":   func(r *Row) **float64 { return &r.ATR },
	"upperband":   func(r *Row) **float64 { return &r.Upper },
	"lowerband":   func(r *Row) **float64 { return &r.Lower },
	"supertrend":  func(r *Row) **float64 { return &r.Supertrend },
	"direction":   func(r *Row) **float64 { return &r.Direction },
	"macd":        func(r *Row) **float64 { return &r.MACD },
	"macd_signal": func(r *Row) **float64 { return &r.MACDSignal },
	"cci":         func(r *Row) **float64 { return &r.CCI },
	"williams_r":  func(r *Row) **float64 { return &r.WilliamsR },
	"bull_power":  func(r *Row) **float64 { return &r.BullPower },
	"bear_power":  func(r *Row) **float64 { return &r.BearPower },
}

// Rows joins bars with frame columns. Columns shorter than the bar series are
// treated as missing for the bars they do not cover.
func Rows(bars model.BarSeries, frame map[string][]float64) []Row {
	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{
			Time:   b.Time.UnixMilli(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	for name, field := range columns {
		col, ok := frame[name]
		if !ok {
			continue
		}
		for i := range rows {
			if i >= len(col) || math.IsNaN(col[i]) {
				continue
			}
			v := col[i]
			*field(&rows[i]) = &v
		}
	}
	return rows
}

// Exporter writes symbol frames under Dir.
type Exporter struct {
	Dir string
}

func New(dir string) *Exporter {
	return &Exporter{Dir: dir}
}

// Path returns <dir>/<group>/<symbol>_<run>.parquet.
func (e *Exporter) Path(groupID, symbol, runID string) string {
	return filepath.Join(e.Dir, safeName(groupID), safeName(symbol)+"_"+safeName(runID)+".parquet")
}

// WriteSymbol exports one successful symbol result. Failed results and results
// without bars are skipped.
func (e *Exporter) WriteSymbol(groupID, runID string, res *model.SymbolAnalysisResult) (string, error) {
	if !res.Success || len(res.Bars) == 0 {
		return "", nil
	}
	path := e.Path(groupID, res.Key, runID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	if err := parquet.WriteFile(path, Rows(res.Bars, res.Frame)); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// WriteGroup exports every successful symbol of a run and returns the written paths.
func (e *Exporter) WriteGroup(res *model.GroupAnalysisResult) ([]string, error) {
	var paths []string
	for _, s := range res.Results {
		p, err := e.WriteSymbol(res.GroupID, res.RunID, s)
		if err != nil {
			return paths, err
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '^', '=', ':', ' ', '#':
			return '_'
		}
		return r
	}, s)
}
