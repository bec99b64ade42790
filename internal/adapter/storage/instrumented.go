package storage

import (
	"context"

	"github.com/rl1809/medstock/internal/core/domain"
	"github.com/rl1809/medstock/internal/metrics"
	"github.com/rl1809/medstock/internal/port"
)

type instrumentedStore struct {
	next    port.RecordStore
	backend string
	m       *metrics.Metrics
}

// Instrument counts every call made to next by operation and result.
func Instrument(next port.RecordStore, backend string, m *metrics.Metrics) port.RecordStore {
	return &instrumentedStore{next: next, backend: backend, m: m}
}

func (s *instrumentedStore) Load(ctx context.Context, name string) ([]domain.Record, error) {
	records, err := s.next.Load(ctx, name)
	s.observe("load", err)
	return records, err
}

func (s *instrumentedStore) Save(ctx context.Context, name string, records []domain.Record) error {
	err := s.next.Save(ctx, name, records)
	s.observe("save", err)
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	err := s.next.Ping(ctx)
	s.observe("ping", err)
	return err
}

func (s *instrumentedStore) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.m.StoreOps.WithLabelValues(s.backend, op, result).Inc()
}
