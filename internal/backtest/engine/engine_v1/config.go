package engine

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-rotation/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-rotation/pkg/errors"
)

const (
	DefaultInitialCapital = 1000.0
	DefaultCashSymbol     = "ORBS"
)

type BacktestEngineV1Config struct {
	Version           optional.Option[string]  `yaml:"version" json:"version" jsonschema:"title=Version,description=Engine version the config was written for"`
	InitialCapital    float64                  `yaml:"initial_capital" json:"initial_capital" validate:"gte=0" jsonschema:"title=Initial Capital,description=Starting cash of every run,minimum=0,default=1000"`
	TransactionCost   float64                  `yaml:"transaction_cost" json:"transaction_cost" validate:"gte=0,lt=1" jsonschema:"title=Transaction Cost,description=Fee as a fraction of the notional of each leg,minimum=0,exclusiveMaximum=1"`
	CashSymbol        string                   `yaml:"cash_symbol" json:"cash_symbol" validate:"required" jsonschema:"title=Cash Symbol,description=Symbol that stands for holding cash,default=ORBS"`
	Broker            commission_fee.Broker    `yaml:"broker" json:"broker" validate:"oneof=proportional zero_commission" jsonschema:"title=Broker,description=The broker to use for commission calculations"`
	RiskFreeRate      optional.Option[float64] `yaml:"risk_free_rate" json:"risk_free_rate" jsonschema:"title=Risk Free Rate,description=Annual risk-free rate for the Sharpe ratio"`
	PeriodsPerYear    optional.Option[int]     `yaml:"periods_per_year" json:"periods_per_year" jsonschema:"title=Periods Per Year,description=Annualization factor (252 when unset),minimum=1"`
	PriceColumnPrefix string                   `yaml:"price_column_prefix" json:"price_column_prefix" jsonschema:"title=Price Column Prefix,description=Prefix of product price columns,default=CLOSE_"`
	MaxParallel       int                      `yaml:"max_parallel" json:"max_parallel" validate:"gte=1" jsonschema:"title=Max Parallel,description=Signal files backtested concurrently,minimum=1,default=1"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config.
// Keys that are absent keep their default values.
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		Version           *string                `yaml:"version"`
		InitialCapital    *float64               `yaml:"initial_capital"`
		TransactionCost   *float64               `yaml:"transaction_cost"`
		CashSymbol        *string                `yaml:"cash_symbol"`
		Broker            *commission_fee.Broker `yaml:"broker"`
		RiskFreeRate      *float64               `yaml:"risk_free_rate"`
		PeriodsPerYear    *int                   `yaml:"periods_per_year"`
		PriceColumnPrefix *string                `yaml:"price_column_prefix"`
		MaxParallel       *int                   `yaml:"max_parallel"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	*c = DefaultConfig()

	if config.Version != nil {
		c.Version = optional.Some(*config.Version)
	}

	if config.InitialCapital != nil {
		c.InitialCapital = *config.InitialCapital
	}

	if config.TransactionCost != nil {
		c.TransactionCost = *config.TransactionCost
	}

	if config.CashSymbol != nil {
		c.CashSymbol = *config.CashSymbol
	}

	if config.Broker != nil {
		c.Broker = *config.Broker
	}

	if config.RiskFreeRate != nil {
		c.RiskFreeRate = optional.Some(*config.RiskFreeRate)
	}

	if config.PeriodsPerYear != nil {
		c.PeriodsPerYear = optional.Some(*config.PeriodsPerYear)
	}

	if config.PriceColumnPrefix != nil {
		c.PriceColumnPrefix = *config.PriceColumnPrefix
	}

	if config.MaxParallel != nil {
		c.MaxParallel = *config.MaxParallel
	}

	return nil
}

// Validate checks the config values.
func (c BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if strings.TrimSpace(c.CashSymbol) == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "cash symbol must not be blank")
	}

	if c.PeriodsPerYear.IsSome() && c.PeriodsPerYear.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "periods per year must be positive, got %d", c.PeriodsPerYear.Unwrap())
	}

	if c.RiskFreeRate.IsSome() && c.RiskFreeRate.Unwrap() <= -1 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "risk free rate must be greater than -1, got %f", c.RiskFreeRate.Unwrap())
	}

	return nil
}

// RiskFree returns the configured risk-free rate or 0.
func (c BacktestEngineV1Config) RiskFree() float64 {
	if c.RiskFreeRate.IsSome() {
		return c.RiskFreeRate.Unwrap()
	}

	return 0
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[string]":
				return &jsonschema.Schema{Type: "string"}
			case "optional.Option[float64]":
				return &jsonschema.Schema{Type: "number"}
			case "optional.Option[int]":
				return &jsonschema.Schema{Type: "integer"}
			}

			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for the rotation backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a config with the given capital and fee rate.
func TestConfig(initialCapital float64, transactionCost float64) BacktestEngineV1Config {
	config := DefaultConfig()
	config.InitialCapital = initialCapital
	config.TransactionCost = transactionCost

	return config
}

// DefaultConfig returns a BacktestEngineV1Config with default values
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Version:           optional.None[string](),
		InitialCapital:    DefaultInitialCapital,
		TransactionCost:   0,
		CashSymbol:        DefaultCashSymbol,
		Broker:            commission_fee.BrokerProportional,
		RiskFreeRate:      optional.None[float64](),
		PeriodsPerYear:    optional.None[int](),
		PriceColumnPrefix: datasource.DefaultPriceColumnPrefix,
		MaxParallel:       1,
	}
}
