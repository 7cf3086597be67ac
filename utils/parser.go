package utils

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/circular/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParseConfig parses and validates a client Config from JSON
func ParseConfig(data []byte) (*types.Config, error) {
	var config types.Config

	if err := json.Unmarshal(data, &config); err != nil {
		return nil, types.NewConfigError("failed to parse config", err)
	}

	config = config.WithDefaults()
	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateConfig checks a Config against its struct tags
func ValidateConfig(config *types.Config) error {
	if err := validate.Struct(config); err != nil {
		return types.NewConfigError(fmt.Sprintf("validation failed: %v", err), nil)
	}
	return nil
}

// ValidateTransaction checks the shape of a transaction using struct tags
func ValidateTransaction(tx *types.Transaction) error {
	if tx == nil {
		return types.NewInvalidTransactionError("transaction is nil")
	}
	if err := validate.Struct(tx); err != nil {
		return types.NewInvalidTransactionError(fmt.Sprintf("validation failed: %v", err))
	}
	return nil
}

// ParseGatewayResponse decodes a raw gateway body
func ParseGatewayResponse(data []byte) (*types.GatewayResponse, error) {
	var resp types.GatewayResponse

	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, types.NewFormatError("gateway returned a non-JSON body", err)
	}

	return &resp, nil
}

// NormalizeJSON formats JSON with consistent indentation
func NormalizeJSON(data interface{}) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}
