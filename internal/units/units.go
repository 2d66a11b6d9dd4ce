// Package units normalises measurement labels and converts quantities between
// units of the same measurement family.
//
// Every recognised unit belongs to exactly one Family and carries a fixed
// multiplier to that family's base unit. US and metric volumes are bridged
// through the fl_oz/ml constant. Unknown labels are kept as their own
// singleton family so custom units never block a posting; conversions that
// cannot be performed return the quantity unchanged and callers that need
// strict results check ConvertChecked's flag or SameFamily first.
package units

import "strings"

type Family string

const (
	FamilyMass         Family = "mass"
	FamilyVolumeUS     Family = "volume_us"
	FamilyVolumeMetric Family = "volume_metric"
	FamilyCount        Family = "count"
	FamilyUnknown      Family = "unknown"
)

// Canonical unit keys.
const (
	Milligram = "mg"
	Gram      = "g"
	Kilogram  = "kg"
	Ounce     = "oz"
	Pound     = "lb"

	Teaspoon   = "tsp"
	Tablespoon = "tbsp"
	FluidOunce = "fl_oz"
	Cup        = "cup"
	Pint       = "pt"
	Quart      = "qt"
	Gallon     = "gal"

	Milliliter = "ml"
	Centiliter = "cl"
	Deciliter  = "dl"
	Liter      = "l"

	Each  = "each"
	Dozen = "dozen"
)

const (
	gramsPerOunce = 28.349523125
	// MillilitersPerFluidOunce is the exact US customary fluid ounce.
	MillilitersPerFluidOunce = 29.5735295625
)

type unitDef struct {
	family Family
	toBase float64
}

var definitions = map[string]unitDef{
	Milligram: {FamilyMass, 0.001 / gramsPerOunce},
	Gram:      {FamilyMass, 1 / gramsPerOunce},
	Kilogram:  {FamilyMass, 1000 / gramsPerOunce},
	Ounce:     {FamilyMass, 1},
	Pound:     {FamilyMass, 16},

	Teaspoon:   {FamilyVolumeUS, 1.0 / 6.0},
	Tablespoon: {FamilyVolumeUS, 0.5},
	FluidOunce: {FamilyVolumeUS, 1},
	Cup:        {FamilyVolumeUS, 8},
	Pint:       {FamilyVolumeUS, 16},
	Quart:      {FamilyVolumeUS, 32},
	Gallon:     {FamilyVolumeUS, 128},

	Milliliter: {FamilyVolumeMetric, 1},
	Centiliter: {FamilyVolumeMetric, 10},
	Deciliter:  {FamilyVolumeMetric, 100},
	Liter:      {FamilyVolumeMetric, 1000},

	Each:  {FamilyCount, 1},
	Dozen: {FamilyCount, 12},
}

var baseUnits = map[Family]string{
	FamilyMass:         Ounce,
	FamilyVolumeUS:     FluidOunce,
	FamilyVolumeMetric: Milliliter,
	FamilyCount:        Each,
}

var aliases = map[string]string{
	"milligram": Milligram, "milligrams": Milligram, "mgs": Milligram,
	"gram": Gram, "grams": Gram, "gr": Gram, "grs": Gram, "gm": Gram, "gms": Gram,
	"kilogram": Kilogram, "kilograms": Kilogram, "kgs": Kilogram, "kilo": Kilogram, "kilos": Kilogram,
	"ounce": Ounce, "ounces": Ounce, "ozs": Ounce, "wt oz": Ounce,
	"pound": Pound, "pounds": Pound, "lbs": Pound, "#": Pound,

	"teaspoon": Teaspoon, "teaspoons": Teaspoon, "tsps": Teaspoon,
	"tablespoon": Tablespoon, "tablespoons": Tablespoon, "tbsps": Tablespoon, "tbs": Tablespoon, "tbl": Tablespoon,
	"fluid ounce": FluidOunce, "fluid ounces": FluidOunce, "fl oz": FluidOunce, "floz": FluidOunce, "fl. oz": FluidOunce, "fl-oz": FluidOunce,
	"cups": Cup, "c": Cup,
	"pint": Pint, "pints": Pint, "pts": Pint,
	"quart": Quart, "quarts": Quart, "qts": Quart,
	"gallon": Gallon, "gallons": Gallon, "gals": Gallon,

	"milliliter": Milliliter, "milliliters": Milliliter, "millilitre": Milliliter, "millilitres": Milliliter, "mls": Milliliter,
	"centiliter": Centiliter, "centiliters": Centiliter, "centilitre": Centiliter, "centilitres": Centiliter,
	"deciliter": Deciliter, "deciliters": Deciliter, "decilitre": Deciliter, "decilitres": Deciliter,
	"liter": Liter, "liters": Liter, "litre": Liter, "litres": Liter, "lt": Liter, "ltr": Liter, "ltrs": Liter,

	"ea": Each, "pc": Each, "pcs": Each, "piece": Each, "pieces": Each, "unit": Each, "units": Each,
	"ct": Each, "count": Each,
	"dozens": Dozen, "dz": Dozen, "doz": Dozen,
}

// Normalize maps an accepted alias to its canonical key. Unrecognised labels
// come back lower-cased and trimmed but otherwise unchanged.
func Normalize(label string) string {
	cleaned := strings.ToLower(strings.Join(strings.Fields(label), " "))
	cleaned = strings.TrimSuffix(cleaned, ".")
	if _, ok := definitions[cleaned]; ok {
		return cleaned
	}
	if canonical, ok := aliases[cleaned]; ok {
		return canonical
	}
	return cleaned
}

// Known reports whether label resolves to a unit with a fixed multiplier.
func Known(label string) bool {
	_, ok := definitions[Normalize(label)]
	return ok
}

func FamilyOf(label string) Family {
	if def, ok := definitions[Normalize(label)]; ok {
		return def.family
	}
	return FamilyUnknown
}

// SameFamily reports whether a and b can be converted by multiplier alone.
// Two identical unknown labels are a family of their own.
func SameFamily(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	fa, fb := FamilyOf(na), FamilyOf(nb)
	return fa != FamilyUnknown && fa == fb
}

// Compatible reports whether a conversion between a and b is meaningful:
// same family, or a US/metric volume pair.
func Compatible(a, b string) bool {
	if SameFamily(a, b) {
		return true
	}
	return isVolumeBridge(FamilyOf(a), FamilyOf(b))
}

// BaseUnitFor returns the base unit of label's family, or the normalised label
// itself when the unit is unknown.
func BaseUnitFor(label string) string {
	n := Normalize(label)
	if def, ok := definitions[n]; ok {
		return baseUnits[def.family]
	}
	return n
}

// Convert converts quantity from one unit to another. Incompatible or unknown
// units return quantity unchanged.
func Convert(quantity float64, from, to string) float64 {
	converted, _ := ConvertChecked(quantity, from, to)
	return converted
}

// ConvertChecked is Convert plus a flag telling whether the conversion was
// actually performed.
func ConvertChecked(quantity float64, from, to string) (float64, bool) {
	nf, nt := Normalize(from), Normalize(to)
	if nf == nt {
		return quantity, true
	}

	df, okFrom := definitions[nf]
	dt, okTo := definitions[nt]
	if !okFrom || !okTo {
		return quantity, false
	}

	if df.family == dt.family {
		return quantity * df.toBase / dt.toBase, true
	}

	switch {
	case df.family == FamilyVolumeUS && dt.family == FamilyVolumeMetric:
		ml := quantity * df.toBase * MillilitersPerFluidOunce
		return ml / dt.toBase, true
	case df.family == FamilyVolumeMetric && dt.family == FamilyVolumeUS:
		flOz := quantity * df.toBase / MillilitersPerFluidOunce
		return flOz / dt.toBase, true
	}
	return quantity, false
}

func isVolumeBridge(a, b Family) bool {
	return (a == FamilyVolumeUS && b == FamilyVolumeMetric) ||
		(a == FamilyVolumeMetric && b == FamilyVolumeUS)
}
