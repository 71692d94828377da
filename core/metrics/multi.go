package metrics

import "github.com/kilianp07/walletfactory/core/events"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordWalletCreated forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordWalletCreated(ev events.WalletCreated) error {
	for _, s := range m.Sinks {
		if err := s.RecordWalletCreated(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordImplementationDeployed forwards to sinks implementing ImplementationRecorder.
func (m *MultiSink) RecordImplementationDeployed(ev events.ImplementationDeployed) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ImplementationRecorder); ok {
			if err := rec.RecordImplementationDeployed(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRejection forwards to sinks implementing RejectionRecorder.
func (m *MultiSink) RecordRejection(ev events.OperationRejected) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RejectionRecorder); ok {
			if err := rec.RecordRejection(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRegistrySize forwards to sinks implementing RegistrySizeRecorder.
func (m *MultiSink) RecordRegistrySize(n int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RegistrySizeRecorder); ok {
			if err := rec.RecordRegistrySize(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// ObserveDropped forwards to sinks implementing DropRecorder.
func (m *MultiSink) ObserveDropped(total func() uint64) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DropRecorder); ok {
			if err := rec.ObserveDropped(total); err != nil {
				return err
			}
		}
	}
	return nil
}
