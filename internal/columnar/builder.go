package columnar

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/attestor-io/core/pkg/decimal"
	"github.com/attestor-io/core/pkg/ledger"
)

// PositionRow is one bitemporal position export row, assembled from a
// ledger.Position plus the bitemporal/provenance columns that the
// in-memory Engine does not itself carry.
type PositionRow struct {
	AttestationID string
	Position      ledger.Position
	ValidFrom     time.Time
	ValidTo       *time.Time
	SystemFrom    time.Time
	SystemTo      *time.Time
	TransactionID string
}

// PositionBatchBuilder accumulates PositionRow values into an Arrow
// record batch matching PositionSchema.
type PositionBatchBuilder struct {
	schema *PositionSchema
	alloc  memory.Allocator
	b      *array.RecordBuilder
}

// NewPositionBatchBuilder creates a builder bound to schema.
func NewPositionBatchBuilder(schema *PositionSchema, alloc memory.Allocator) *PositionBatchBuilder {
	return &PositionBatchBuilder{
		schema: schema,
		alloc:  alloc,
		b:      array.NewRecordBuilder(alloc, schema.Schema),
	}
}

// Append adds one row to the in-progress batch.
func (pb *PositionBatchBuilder) Append(row PositionRow) {
	pb.b.Field(pb.schema.AttestationIDIdx).(*array.StringBuilder).Append(row.AttestationID)
	pb.b.Field(pb.schema.AccountIDIdx).(*array.StringBuilder).Append(row.Position.Account)
	pb.b.Field(pb.schema.UnitIdx).(*array.StringBuilder).Append(row.Position.Unit)
	pb.b.Field(pb.schema.BalanceIdx).(*array.StringBuilder).Append(decimal.Text(row.Position.Balance))

	validFromB := pb.b.Field(pb.schema.ValidFromIdx).(*array.TimestampBuilder)
	validFromB.Append(toArrowTimestamp(row.ValidFrom))

	validToB := pb.b.Field(pb.schema.ValidToIdx).(*array.TimestampBuilder)
	if row.ValidTo != nil {
		validToB.Append(toArrowTimestamp(*row.ValidTo))
	} else {
		validToB.AppendNull()
	}

	pb.b.Field(pb.schema.SystemFromIdx).(*array.TimestampBuilder).Append(toArrowTimestamp(row.SystemFrom))

	systemToB := pb.b.Field(pb.schema.SystemToIdx).(*array.TimestampBuilder)
	if row.SystemTo != nil {
		systemToB.Append(toArrowTimestamp(*row.SystemTo))
	} else {
		systemToB.AppendNull()
	}

	pb.b.Field(pb.schema.TransactionIDIdx).(*array.StringBuilder).Append(row.TransactionID)
}

// NewRecord finalizes the accumulated rows into an Arrow record batch.
// The builder is reset and ready to accumulate the next batch.
func (pb *PositionBatchBuilder) NewRecord() arrow.Record {
	return pb.b.NewRecord()
}

// Release frees the builder's underlying buffers.
func (pb *PositionBatchBuilder) Release() { pb.b.Release() }

func toArrowTimestamp(t time.Time) arrow.Timestamp {
	return arrow.Timestamp(t.UnixMicro())
}
