package constants

// Environment names read from APP_ENV.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Strategy names read from OCR_STRATEGY.
const (
	StrategyFallback = "fallback"
	StrategyHybrid   = "hybrid"
)

// DefaultVendorName is used when neither the caller nor the backend supplied one.
const DefaultVendorName = "Unknown Vendor"

// ConsumptionTaxPercent is the Japanese consumption tax rate.
const ConsumptionTaxPercent = 10
