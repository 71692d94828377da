package metrics

import "github.com/kilianp07/walletfactory/core/events"

// Sink records wallet creations. Sinks may implement the optional recorder
// interfaces below; MultiSink forwards to those that do.
type Sink interface {
	RecordWalletCreated(ev events.WalletCreated) error
}

// ImplementationRecorder records implementation deployments.
type ImplementationRecorder interface {
	RecordImplementationDeployed(ev events.ImplementationDeployed) error
}

// RejectionRecorder records mutating calls that failed.
type RejectionRecorder interface {
	RecordRejection(ev events.OperationRejected) error
}

// RegistrySizeRecorder records the number of registered wallets.
type RegistrySizeRecorder interface {
	RecordRegistrySize(n int) error
}

// DropRecorder exports how many events the best-effort consumers missed.
// total is read at collection time.
type DropRecorder interface {
	ObserveDropped(total func() uint64) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordWalletCreated(events.WalletCreated) error                   { return nil }
func (NopSink) RecordImplementationDeployed(events.ImplementationDeployed) error { return nil }
func (NopSink) RecordRejection(events.OperationRejected) error                   { return nil }
func (NopSink) RecordRegistrySize(int) error                                     { return nil }
func (NopSink) ObserveDropped(func() uint64) error                               { return nil }
