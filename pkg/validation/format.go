// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/property-costs/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatCSV, constants.OutputFormatJSON, format)
}

// ValidateStoreBackend checks if the snapshot store backend is supported.
func ValidateStoreBackend(backend string) error {
	switch backend {
	case constants.StoreBackendMemory, constants.StoreBackendRedis, constants.StoreBackendSQLite:
		return nil
	}
	return fmt.Errorf("expected store backend of %s, %s or %s, got %s",
		constants.StoreBackendMemory, constants.StoreBackendRedis, constants.StoreBackendSQLite, backend)
}
