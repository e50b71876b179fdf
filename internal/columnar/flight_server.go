package columnar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/attestor-io/core/internal/logging"
)

// streamPositions and streamRateParameters are the two ticket names
// this Flight server answers DoGet for (spec §6 bitemporal position and
// rate-parameter export tables).
const (
	streamPositions      = "ledger-positions"
	streamRateParameters = "oracle-rate-parameters"
)

// ExportServer serves the bitemporal position and rate-parameter
// tables over Apache Arrow Flight, for bulk/analytical consumers that
// should not page through the gRPC query surface row by row.
type ExportServer struct {
	flight.BaseFlightServer

	logger        *logging.ComponentLogger
	allocator     memory.Allocator
	schemaManager *SchemaManager

	mu      sync.RWMutex
	streams map[string]*exportStream
}

type exportStream struct {
	id            string
	schema        *arrow.Schema
	batches       chan arrow.Record
	errs          chan error
	createdAt     time.Time
	entriesServed uint64
}

// NewExportServer creates a new Flight export server.
func NewExportServer(logger *logging.ComponentLogger) *ExportServer {
	alloc := memory.NewGoAllocator()
	return &ExportServer{
		logger:        logger,
		allocator:     alloc,
		schemaManager: NewSchemaManager(alloc),
		streams:       make(map[string]*exportStream),
	}
}

func (s *ExportServer) schemaForTicket(ticket string) (*arrow.Schema, error) {
	switch ticket {
	case streamPositions:
		return s.schemaManager.GetPositionSchema().Schema, nil
	case streamRateParameters:
		return s.schemaManager.GetRateParameterSchema().Schema, nil
	default:
		return nil, fmt.Errorf("unknown export stream %q", ticket)
	}
}

// ListFlights advertises the two available export streams.
func (s *ExportServer) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	for _, ticket := range []string{streamPositions, streamRateParameters} {
		schema, err := s.schemaForTicket(ticket)
		if err != nil {
			return err
		}
		info := &flight.FlightInfo{
			Schema: flight.SerializeSchema(schema, s.allocator),
			FlightDescriptor: &flight.FlightDescriptor{
				Type: flight.FlightDescriptor_PATH,
				Path: []string{ticket},
			},
			Endpoint:     []*flight.FlightEndpoint{{Ticket: &flight.Ticket{Ticket: []byte(ticket)}}},
			TotalRecords: -1,
			TotalBytes:   -1,
		}
		if err := stream.Send(info); err != nil {
			return err
		}
	}
	return nil
}

// GetFlightInfo is not implemented and always returns an Unimplemented error.
func (s *ExportServer) GetFlightInfo(_ context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	return nil, status.Error(codes.Unimplemented, "use DoGet with a stream ticket directly")
}

// GetSchema returns the Arrow schema for a ticketed path.
func (s *ExportServer) GetSchema(_ context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	if len(desc.Path) == 0 {
		return nil, status.Error(codes.InvalidArgument, "descriptor path required")
	}
	schema, err := s.schemaForTicket(desc.Path[0])
	if err != nil {
		return nil, status.Error(codes.NotFound, err.Error())
	}
	return &flight.SchemaResult{Schema: flight.SerializeSchema(schema, s.allocator)}, nil
}

// DoGet streams record batches previously published via AddBatch for
// the named export stream, then ends the stream once the caller calls
// CloseStream.
func (s *ExportServer) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ticket := string(tkt.Ticket)
	schema, err := s.schemaForTicket(ticket)
	if err != nil {
		return status.Error(codes.NotFound, err.Error())
	}

	s.mu.Lock()
	es, exists := s.streams[ticket]
	if !exists {
		es = &exportStream{
			id:        ticket,
			schema:    schema,
			batches:   make(chan arrow.Record, 64),
			errs:      make(chan error, 1),
			createdAt: time.Now(),
		}
		s.streams[ticket] = es
	}
	s.mu.Unlock()

	writer := flight.NewRecordWriter(stream, flight.WithSchema(es.schema))
	defer writer.Close()

	for {
		select {
		case record, ok := <-es.batches:
			if !ok {
				return nil
			}
			if err := writer.Write(record); err != nil {
				s.logger.Error().Err(err).Str("stream", ticket).Msg("failed to write export record")
				record.Release()
				return err
			}
			es.entriesServed += uint64(record.NumRows())
			record.Release()
		case err := <-es.errs:
			return err
		case <-stream.Context().Done():
			return nil
		}
	}
}

// AddBatch publishes a record batch for streamName to any connected
// DoGet caller. The record's ownership transfers to the server.
func (s *ExportServer) AddBatch(streamName string, record arrow.Record) error {
	s.mu.RLock()
	es, exists := s.streams[streamName]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("export stream %q has no active consumer", streamName)
	}
	select {
	case es.batches <- record:
		return nil
	default:
		return fmt.Errorf("export stream %q backlog full", streamName)
	}
}

// CloseStream tears down one export stream's channels.
func (s *ExportServer) CloseStream(streamName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if es, exists := s.streams[streamName]; exists {
		close(es.batches)
		close(es.errs)
		delete(s.streams, streamName)
		s.logger.Info().Str("stream", streamName).Uint64("entries_served", es.entriesServed).Msg("closed export stream")
	}
}
