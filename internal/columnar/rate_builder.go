package columnar

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// RateParameterRow is one bitemporal rate/credit/vol-surface parameter
// export row (one tenor of a yield curve, one hazard rate, one SVI
// slice parameter, etc).
type RateParameterRow struct {
	AttestationID     string
	CurveOrSurfaceID  string
	ParameterName     string
	TenorYears        string // decimal text, empty when not tenor-indexed (e.g. an SVI "a" parameter)
	Value             string // decimal text
	Confidence        string
	ValidFrom         time.Time
	ValidTo           *time.Time
	SystemFrom        time.Time
	SystemTo          *time.Time
}

// RateParameterBatchBuilder accumulates RateParameterRow values into an
// Arrow record batch matching RateParameterSchema.
type RateParameterBatchBuilder struct {
	schema *RateParameterSchema
	b      *array.RecordBuilder
}

// NewRateParameterBatchBuilder creates a builder bound to schema.
func NewRateParameterBatchBuilder(schema *RateParameterSchema, alloc memory.Allocator) *RateParameterBatchBuilder {
	return &RateParameterBatchBuilder{
		schema: schema,
		b:      array.NewRecordBuilder(alloc, schema.Schema),
	}
}

// Append adds one row to the in-progress batch.
func (rb *RateParameterBatchBuilder) Append(row RateParameterRow) {
	rb.b.Field(rb.schema.AttestationIDIdx).(*array.StringBuilder).Append(row.AttestationID)
	rb.b.Field(rb.schema.CurveOrSurfaceID).(*array.StringBuilder).Append(row.CurveOrSurfaceID)
	rb.b.Field(rb.schema.ParameterNameIdx).(*array.StringBuilder).Append(row.ParameterName)

	tenorB := rb.b.Field(rb.schema.TenorYearsIdx).(*array.StringBuilder)
	if row.TenorYears == "" {
		tenorB.AppendNull()
	} else {
		tenorB.Append(row.TenorYears)
	}

	rb.b.Field(rb.schema.ValueIdx).(*array.StringBuilder).Append(row.Value)
	rb.b.Field(rb.schema.ConfidenceIdx).(*array.StringBuilder).Append(row.Confidence)

	rb.b.Field(rb.schema.ValidFromIdx).(*array.TimestampBuilder).Append(toArrowTimestamp(row.ValidFrom))

	validToB := rb.b.Field(rb.schema.ValidToIdx).(*array.TimestampBuilder)
	if row.ValidTo != nil {
		validToB.Append(toArrowTimestamp(*row.ValidTo))
	} else {
		validToB.AppendNull()
	}

	rb.b.Field(rb.schema.SystemFromIdx).(*array.TimestampBuilder).Append(toArrowTimestamp(row.SystemFrom))

	systemToB := rb.b.Field(rb.schema.SystemToIdx).(*array.TimestampBuilder)
	if row.SystemTo != nil {
		systemToB.Append(toArrowTimestamp(*row.SystemTo))
	} else {
		systemToB.AppendNull()
	}
}

// NewRecord finalizes the accumulated rows into an Arrow record batch.
func (rb *RateParameterBatchBuilder) NewRecord() arrow.Record {
	return rb.b.NewRecord()
}

// Release frees the builder's underlying buffers.
func (rb *RateParameterBatchBuilder) Release() { rb.b.Release() }
