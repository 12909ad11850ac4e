package shipping

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	volumetricDivisor = decimal.NewFromInt(5000)
	minChargeableKg   = decimal.RequireFromString("0.1")
)

// BuildPackage 把多行商品聚合成一个包裹
// 实重 Σ(重量×数量)，体积重 Σ(长×宽×高×数量)/5000，计费重量取两者较大值且不低于 0.1kg。
// 长宽取各行最大值，高度按总体积反推并向上取整，保证包裹能装下全部商品。
func BuildPackage(lines []Line, defaults Dimensions) (Package, error) {
	if len(lines) == 0 {
		return Package{}, ErrEmptyShipment
	}

	actual := decimal.Zero
	volume := decimal.Zero
	maxLength := decimal.Zero
	maxWidth := decimal.Zero
	maxHeight := decimal.Zero
	sets := 0
	for idx, line := range lines {
		if line.Quantity < 1 {
			return Package{}, fmt.Errorf("%w: line %d quantity %d", ErrInvalidLine, idx+1, line.Quantity)
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		weight := positiveOr(line.WeightKg, defaults.WeightKg)
		length := positiveOr(line.LengthCm, defaults.LengthCm)
		width := positiveOr(line.WidthCm, defaults.WidthCm)
		height := positiveOr(line.HeightCm, defaults.HeightCm)

		actual = actual.Add(weight.Mul(qty))
		volume = volume.Add(length.Mul(width).Mul(height).Mul(qty))
		maxLength = decimal.Max(maxLength, length)
		maxWidth = decimal.Max(maxWidth, width)
		maxHeight = decimal.Max(maxHeight, height)
		sets += line.Quantity
	}

	pkg := Package{
		ActualWeightKg:     actual.Round(3),
		VolumetricWeightKg: volume.Div(volumetricDivisor).Round(3),
		LengthCm:           maxLength,
		WidthCm:            maxWidth,
		HeightCm:           maxHeight,
		Sets:               sets,
	}
	pkg.WeightKg = decimal.Max(pkg.ActualWeightKg, pkg.VolumetricWeightKg, minChargeableKg)

	footprint := maxLength.Mul(maxWidth)
	if footprint.GreaterThan(decimal.Zero) {
		pkg.HeightCm = decimal.Max(volume.Div(footprint).Ceil(), maxHeight)
	}
	return pkg, nil
}

func positiveOr(value decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if value.GreaterThan(decimal.Zero) {
		return value
	}
	return fallback
}
