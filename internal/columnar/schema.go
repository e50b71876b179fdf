// Package columnar defines the Arrow schemas and record-batch builders
// used to export the bitemporal position and rate-parameter tables
// named in spec §6 ("Storage shape. Persisted tables are append-only
// ... Positions and rate-parameter tables are bitemporal with
// valid_time ... and system_time ... columns.").
package columnar

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// PositionSchema is the Arrow schema for one row of the bitemporal
// ledger position table (one account/unit balance as of a point in
// valid time and system time).
type PositionSchema struct {
	Schema *arrow.Schema

	AttestationIDIdx int
	AccountIDIdx     int
	UnitIdx          int
	BalanceIdx       int
	ValidFromIdx     int
	ValidToIdx       int
	SystemFromIdx    int
	SystemToIdx      int
	TransactionIDIdx int
}

// NewPositionSchema builds the Arrow schema for the bitemporal position
// table. AttestationIDIdx is the content-addressed primary key (spec
// §6 "Content-addressed rows use the attestation id as primary key").
func NewPositionSchema() *PositionSchema {
	fields := []arrow.Field{
		{Name: "attestation_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "account_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "unit", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "balance", Type: arrow.BinaryTypes.String, Nullable: false}, // decimal text, never a float column
		{Name: "valid_from", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: false},
		{Name: "valid_to", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
		{Name: "system_from", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: false},
		{Name: "system_to", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
		{Name: "transaction_id", Type: arrow.BinaryTypes.String, Nullable: false},
	}
	schema := arrow.NewSchema(fields, nil)

	s := &PositionSchema{Schema: schema}
	for i, f := range fields {
		switch f.Name {
		case "attestation_id":
			s.AttestationIDIdx = i
		case "account_id":
			s.AccountIDIdx = i
		case "unit":
			s.UnitIdx = i
		case "balance":
			s.BalanceIdx = i
		case "valid_from":
			s.ValidFromIdx = i
		case "valid_to":
			s.ValidToIdx = i
		case "system_from":
			s.SystemFromIdx = i
		case "system_to":
			s.SystemToIdx = i
		case "transaction_id":
			s.TransactionIDIdx = i
		}
	}
	return s
}

// Metadata describes the position schema for catalog/discovery purposes.
func (s *PositionSchema) Metadata() map[string]string {
	return map[string]string{
		"schema_version": "1.0",
		"schema_type":    "ledger_position",
		"description":    "Bitemporal ledger account/unit balance export",
	}
}

// RateParameterSchema is the Arrow schema for one row of the bitemporal
// rate/credit/vol-surface parameter export table (yield curve tenors,
// hazard rates, SVI slice parameters — anything attested by the oracle).
type RateParameterSchema struct {
	Schema *arrow.Schema

	AttestationIDIdx int
	CurveOrSurfaceID int
	ParameterNameIdx int
	TenorYearsIdx    int
	ValueIdx         int
	ConfidenceIdx    int
	ValidFromIdx     int
	ValidToIdx       int
	SystemFromIdx    int
	SystemToIdx      int
}

// NewRateParameterSchema builds the Arrow schema for the bitemporal
// rate/credit/vol-surface parameter table.
func NewRateParameterSchema() *RateParameterSchema {
	fields := []arrow.Field{
		{Name: "attestation_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "curve_or_surface_id", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "parameter_name", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "tenor_years", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "value", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "confidence", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "valid_from", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: false},
		{Name: "valid_to", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
		{Name: "system_from", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: false},
		{Name: "system_to", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
	}
	schema := arrow.NewSchema(fields, nil)

	s := &RateParameterSchema{Schema: schema}
	for i, f := range fields {
		switch f.Name {
		case "attestation_id":
			s.AttestationIDIdx = i
		case "curve_or_surface_id":
			s.CurveOrSurfaceID = i
		case "parameter_name":
			s.ParameterNameIdx = i
		case "tenor_years":
			s.TenorYearsIdx = i
		case "value":
			s.ValueIdx = i
		case "confidence":
			s.ConfidenceIdx = i
		case "valid_from":
			s.ValidFromIdx = i
		case "valid_to":
			s.ValidToIdx = i
		case "system_from":
			s.SystemFromIdx = i
		case "system_to":
			s.SystemToIdx = i
		}
	}
	return s
}

// Metadata describes the rate-parameter schema for catalog/discovery.
func (s *RateParameterSchema) Metadata() map[string]string {
	return map[string]string{
		"schema_version": "1.0",
		"schema_type":    "oracle_rate_parameter",
		"description":    "Bitemporal yield/credit/vol-surface parameter export",
	}
}

// SchemaManager owns the Arrow allocator and the set of exported
// schemas, mirroring the teacher's single-allocator-per-process shape.
type SchemaManager struct {
	positionSchema *PositionSchema
	rateSchema     *RateParameterSchema
	allocator      memory.Allocator
}

// NewSchemaManager creates a schema manager over the given allocator.
func NewSchemaManager(allocator memory.Allocator) *SchemaManager {
	return &SchemaManager{
		positionSchema: NewPositionSchema(),
		rateSchema:     NewRateParameterSchema(),
		allocator:      allocator,
	}
}

// GetPositionSchema returns the bitemporal position schema.
func (m *SchemaManager) GetPositionSchema() *PositionSchema { return m.positionSchema }

// GetRateParameterSchema returns the bitemporal rate-parameter schema.
func (m *SchemaManager) GetRateParameterSchema() *RateParameterSchema { return m.rateSchema }

// GetAllocator returns the shared memory allocator.
func (m *SchemaManager) GetAllocator() memory.Allocator { return m.allocator }
