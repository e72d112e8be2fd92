// Package fit measures how well the power-law median explains a historical price series.
package fit

import (
	"math"

	"github.com/samber/lo"

	"github.com/fineflow77/btclti/internal/domain"
)

// minPrice keeps log10 finite for zero or negative closes.
const minPrice = 1e-7

type point struct {
	x, y float64
}

type moments struct {
	xy, xx, yy float64
}

// RSquared returns the squared Pearson correlation of log10(days since genesis) against
// log10(price). The second result is false for an empty series. A degenerate series with
// no variance in either coordinate yields 0.
func RSquared(series []domain.PricePoint) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}

	points := lo.Map(series, func(p domain.PricePoint, _ int) point {
		return point{
			x: math.Log10(float64(max(1, domain.DaysSinceGenesis(p.Date)))),
			y: math.Log10(math.Max(minPrice, p.PriceUSD)),
		}
	})
	n := float64(len(points))
	meanX := lo.SumBy(points, func(p point) float64 { return p.x }) / n
	meanY := lo.SumBy(points, func(p point) float64 { return p.y }) / n

	m := lo.Reduce(points, func(acc moments, p point, _ int) moments {
		dx, dy := p.x-meanX, p.y-meanY
		acc.xy += dx * dy
		acc.xx += dx * dx
		acc.yy += dy * dy
		return acc
	}, moments{})

	den := m.xx * m.yy
	if den == 0 {
		return 0, true
	}
	r2 := m.xy * m.xy / den
	return math.Min(1, math.Max(0, r2)), true
}
