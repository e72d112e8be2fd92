// Package position expresses a spot price relative to the power-law curves.
package position

// NearSupportRatio is the relative distance above support under which a price is flagged.
const NearSupportRatio = 0.10

// NearSupportColor overrides the bucket color when a price is near support.
const NearSupportColor = "#a855f7"

// Band is one labelled bucket of the position scale.
type Band struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Bands in threshold order. The last entry has no upper bound.
var (
	BandBuyingOpportunity   = Band{Label: "Buying opportunity", Color: "#1e3a8a"}
	BandUndervalued         = Band{Label: "Undervalued", Color: "#3b82f6"}
	BandSlightlyUndervalued = Band{Label: "Slightly undervalued", Color: "#22c55e"}
	BandFairValue           = Band{Label: "Fair value", Color: "#a3e635"}
	BandRising              = Band{Label: "Rising, caution", Color: "#f97316"}
	BandOverheated          = Band{Label: "Overheated warning", Color: "#ef4444"}
	BandPeak                = Band{Label: "Peak warning, consider selling", Color: "#991b1b"}
)

// Position returns the percentage offset of price from the median curve.
// Zero means the price sits on the median; negative means below it.
// A non-positive median yields 0.
//
// The support curve never shifts the offset. It only sets the near-support flag, so callers
// holding all three prices use Assess, which pairs Position with NearSupport.
func Position(price, median float64) float64 {
	if median <= 0 {
		return 0
	}
	return (price - median) / median * 100
}

// NearSupport reports whether price is less than NearSupportRatio above the support curve.
// Prices below support are near support too.
func NearSupport(price, support float64) bool {
	if support <= 0 {
		return false
	}
	return (price-support)/support < NearSupportRatio
}

// BandFor maps a position value to its bucket; the first matching threshold wins.
func BandFor(pos float64) Band {
	switch {
	case pos < -50:
		return BandBuyingOpportunity
	case pos < -30:
		return BandUndervalued
	case pos < -10:
		return BandSlightlyUndervalued
	case pos <= 10:
		return BandFairValue
	case pos <= 30:
		return BandRising
	case pos <= 70:
		return BandOverheated
	default:
		return BandPeak
	}
}

// Label returns the bucket label of a position value.
func Label(pos float64) string { return BandFor(pos).Label }

// Color returns the bucket color of a position value.
func Color(pos float64) string { return BandFor(pos).Color }

// Assessment is the full relative-position readout for one price.
type Assessment struct {
	PriceUSD    float64 `json:"priceUsd"`
	MedianUSD   float64 `json:"medianUsd"`
	SupportUSD  float64 `json:"supportUsd"`
	Position    float64 `json:"position"`
	Label       string  `json:"label"`
	Color       string  `json:"color"`
	NearSupport bool    `json:"nearSupport"`
}

// Assess combines Position, NearSupport and the band mapping.
func Assess(price, median, support float64) Assessment {
	pos := Position(price, median)
	band := BandFor(pos)
	near := NearSupport(price, support)
	color := band.Color
	if near {
		color = NearSupportColor
	}
	return Assessment{
		PriceUSD:    price,
		MedianUSD:   median,
		SupportUSD:  support,
		Position:    pos,
		Label:       band.Label,
		Color:       color,
		NearSupport: near,
	}
}
