// Package export writes registry snapshots as JSON, CSV or CBOR.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatCBOR = "cbor"
)

// Snapshot is the exported registry state of one factory.
type Snapshot struct {
	Factory         model.Address          `json:"factory"`
	Implementations []model.Implementation `json:"implementations"`
	Entries         []registry.Entry       `json:"entries"`
}

// Write encodes s to w in format.
func Write(w io.Writer, format string, s Snapshot) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, s)
	case FormatCSV:
		return WriteCSV(w, s.Entries)
	case FormatCBOR:
		return WriteCBOR(w, s)
	default:
		return fmt.Errorf("%w: unknown export format %q", model.ErrInvalidInput, format)
	}
}

// WriteJSON writes the snapshot as indented JSON.
func WriteJSON(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteCSV writes one row per registry entry.
func WriteCSV(w io.Writer, entries []registry.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user", "wallet", "owner", "salt", "implementation", "created_at"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.User.String(),
			e.Wallet.String(),
			e.Owner.String(),
			e.Salt.String(),
			e.Implementation.String(),
			e.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Identifiers travel as CBOR byte strings rather than arrays of integers.
type cborImplementation struct {
	Address    []byte    `cbor:"1,keyasint"`
	Logic      string    `cbor:"2,keyasint"`
	Version    uint64    `cbor:"3,keyasint"`
	DeployedAt time.Time `cbor:"4,keyasint"`
}

type cborEntry struct {
	User           []byte    `cbor:"1,keyasint"`
	Wallet         []byte    `cbor:"2,keyasint"`
	Owner          []byte    `cbor:"3,keyasint"`
	Salt           []byte    `cbor:"4,keyasint"`
	Implementation []byte    `cbor:"5,keyasint"`
	CreatedAt      time.Time `cbor:"6,keyasint"`
}

type cborSnapshot struct {
	Factory         []byte               `cbor:"1,keyasint"`
	Implementations []cborImplementation `cbor:"2,keyasint"`
	Entries         []cborEntry          `cbor:"3,keyasint"`
}

var encMode = func() cbor.EncMode {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// WriteCBOR writes the snapshot in deterministic CBOR.
func WriteCBOR(w io.Writer, s Snapshot) error {
	out := cborSnapshot{Factory: s.Factory.Bytes()}
	for _, impl := range s.Implementations {
		out.Implementations = append(out.Implementations, cborImplementation{
			Address:    impl.Address.Bytes(),
			Logic:      impl.Logic,
			Version:    impl.Version,
			DeployedAt: impl.DeployedAt.UTC(),
		})
	}
	for _, e := range s.Entries {
		out.Entries = append(out.Entries, cborEntry{
			User:           e.User[:],
			Wallet:         e.Wallet.Bytes(),
			Owner:          e.Owner.Bytes(),
			Salt:           e.Salt[:],
			Implementation: e.Implementation.Bytes(),
			CreatedAt:      e.CreatedAt.UTC(),
		})
	}
	return encMode.NewEncoder(w).Encode(out)
}

// ReadCBOR decodes a snapshot written by WriteCBOR.
func ReadCBOR(r io.Reader) (Snapshot, error) {
	var in cborSnapshot
	if err := cbor.NewDecoder(r).Decode(&in); err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := fill(s.Factory[:], in.Factory); err != nil {
		return Snapshot{}, err
	}
	for _, ci := range in.Implementations {
		impl := model.Implementation{Logic: ci.Logic, Version: ci.Version, DeployedAt: ci.DeployedAt.UTC()}
		if err := fill(impl.Address[:], ci.Address); err != nil {
			return Snapshot{}, err
		}
		s.Implementations = append(s.Implementations, impl)
	}
	for _, ce := range in.Entries {
		e := registry.Entry{CreatedAt: ce.CreatedAt.UTC()}
		for _, f := range []struct{ dst, src []byte }{
			{e.User[:], ce.User},
			{e.Wallet[:], ce.Wallet},
			{e.Owner[:], ce.Owner},
			{e.Salt[:], ce.Salt},
			{e.Implementation[:], ce.Implementation},
		} {
			if err := fill(f.dst, f.src); err != nil {
				return Snapshot{}, err
			}
		}
		s.Entries = append(s.Entries, e)
	}
	return s, nil
}

func fill(dst, src []byte) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: field is %d bytes, want %d", model.ErrInvalidInput, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}
