package deployer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
)

// ErrNotCallable is returned when calling an implementation record directly.
var ErrNotCallable = errors.New("deployer: implementations are not callable")

// Kind distinguishes implementation records from wallet clones.
type Kind int

const (
	KindImplementation Kind = iota
	KindWallet
)

func (k Kind) String() string {
	switch k {
	case KindImplementation:
		return "implementation"
	case KindWallet:
		return "wallet"
	default:
		return "unknown"
	}
}

// Instance is a deployed object. Wallets keep their own storage and forward
// every call to the shared logic.
type Instance struct {
	Address        model.Address
	Kind           Kind
	Implementation model.Address
	Salt           model.Salt

	logic   logic.Logic
	storage *logic.MemoryStorage
}

// Call forwards a method call to the shared logic with this instance's storage.
func (i *Instance) Call(ctx context.Context, caller model.Address, method string, args []byte) ([]byte, error) {
	if i.Kind != KindWallet {
		return nil, ErrNotCallable
	}
	return i.logic.Invoke(ctx, i.storage, logic.Message{Caller: caller, Method: method, Args: args})
}

// Owner reads the owner through the shared logic.
func (i *Instance) Owner(ctx context.Context) (model.Address, error) {
	var owner model.Address
	out, err := i.Call(ctx, model.Address{}, logic.MethodOwner, nil)
	if err != nil {
		return owner, err
	}
	if err := json.Unmarshal(out, &owner); err != nil {
		return owner, fmt.Errorf("decode owner: %w", err)
	}
	return owner, nil
}
