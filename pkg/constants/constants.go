// Package constants provides shared constants for the property-costs application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for whole-rand comparisons; itemised
	// lines may differ from their subtotal by one rand after rounding.
	CurrencyTolerance = 1.0
)

// Loan input bounds
const (
	// DefaultInterestRatePercent is the prime-linked rate offered before the user edits it
	DefaultInterestRatePercent = 11.75

	// DefaultLoanTermYears is the term selected before the user edits it
	DefaultLoanTermYears = 20

	// MinInterestRatePercent is the lower bound for both rate inputs
	MinInterestRatePercent = 5.0

	// MaxSliderInterestRatePercent is the upper bound of the rate slider
	MaxSliderInterestRatePercent = 20.0

	// MaxTextInterestRatePercent is the upper bound of the free-text rate field
	MaxTextInterestRatePercent = 25.0

	// InterestRateStep is the slider step
	InterestRateStep = 0.25
)

// LoanTermsYears lists the selectable loan terms.
var LoanTermsYears = []int{10, 15, 20, 25, 30}

// Section names carried in the presentation state.
const (
	SectionProperty = "property"
	SectionBond     = "bond"
	SectionMonthly  = "monthly"
	SectionOnceOff  = "onceOff"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Snapshot store constants
const (
	// SnapshotKeyPrefix namespaces property identifiers in the snapshot store
	SnapshotKeyPrefix = "calculator_"

	// StandaloneKeyPrefix namespaces calculators not bound to a listed property
	StandaloneKeyPrefix = "calculator_standalone_"

	// StoreBackendMemory keeps snapshots in process memory
	StoreBackendMemory = "memory"

	// StoreBackendRedis keeps snapshots in Redis
	StoreBackendRedis = "redis"

	// StoreBackendSQLite keeps snapshots in a SQLite file
	StoreBackendSQLite = "sqlite"

	// DefaultStoreTimeoutMillis bounds a single snapshot write
	DefaultStoreTimeoutMillis = 2000
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024
)
