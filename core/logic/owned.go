package logic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kilianp07/walletfactory/core/model"
)

// OwnedWalletName is the catalog name of OwnedWallet.
const OwnedWalletName = "owned-wallet"

const (
	MethodOwner             = "owner"
	MethodInitialized       = "initialized"
	MethodTransferOwnership = "transferOwnership"

	keyOwner = "owner"
)

func init() {
	Catalog.MustRegister(OwnedWalletName, func(map[string]any) (Logic, error) {
		return OwnedWallet{}, nil
	})
}

// OwnedWallet is a single-owner wallet template.
type OwnedWallet struct{}

// TransferArgs is the argument payload of transferOwnership.
type TransferArgs struct {
	NewOwner model.Address `json:"new_owner"`
}

func (OwnedWallet) Name() string { return OwnedWalletName }

func (OwnedWallet) Code() []byte { return []byte("walletfactory/owned-wallet/v1") }

// Initialize sets the owner once.
func (OwnedWallet) Initialize(st Storage, owner model.Address) error {
	if owner.IsZero() {
		return ErrZeroOwner
	}
	if _, ok := st.Get(keyOwner); ok {
		return ErrAlreadyInitialized
	}
	st.Set(keyOwner, owner.Bytes())
	return nil
}

// Invoke dispatches msg. Results are JSON encoded.
func (w OwnedWallet) Invoke(ctx context.Context, st Storage, msg Message) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch msg.Method {
	case MethodOwner:
		owner, ok := ownerOf(st)
		if !ok {
			return json.Marshal(model.Address{})
		}
		return json.Marshal(owner)
	case MethodInitialized:
		_, ok := st.Get(keyOwner)
		return json.Marshal(ok)
	case MethodTransferOwnership:
		owner, ok := ownerOf(st)
		if !ok || owner != msg.Caller {
			return nil, ErrNotOwner
		}
		var args TransferArgs
		if err := json.Unmarshal(msg.Args, &args); err != nil {
			return nil, fmt.Errorf("%w: transferOwnership args: %v", model.ErrInvalidInput, err)
		}
		if args.NewOwner.IsZero() {
			return nil, ErrZeroOwner
		}
		st.Set(keyOwner, args.NewOwner.Bytes())
		return json.Marshal(args.NewOwner)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, msg.Method)
	}
}

func ownerOf(st Storage) (model.Address, bool) {
	var a model.Address
	b, ok := st.Get(keyOwner)
	if !ok || len(b) != model.AddressLength {
		return a, false
	}
	copy(a[:], b)
	return a, true
}
