package constants

// Category is a canonical item category used as the recommendation key.
type Category string

const (
	WiperBlade Category = "wiper_blade"
	EngineOil  Category = "engine_oil"
	AirFilter  Category = "air_filter"
	OilFilter  Category = "oil_filter"
	BrakePad   Category = "brake_pad"
	Tire       Category = "tire"
	Battery    Category = "battery"
	Unknown    Category = "unknown"
)

var allCategories = []Category{
	WiperBlade,
	EngineOil,
	AirFilter,
	OilFilter,
	BrakePad,
	Tire,
	Battery,
}

// AsStringSlice returns the built-in categories in rule order.
func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}
