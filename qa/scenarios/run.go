package scenarios

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/walletfactory/core/deployer"
	"github.com/kilianp07/walletfactory/core/events"
	"github.com/kilianp07/walletfactory/core/gate"
	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/core/wallet"
)

// Operations understood by Run.
const (
	OpPredict       = "predict"
	OpCreate        = "create"
	OpDeploy        = "deploy_implementation"
	OpGetWallet     = "get_wallet"
	OpGetUser       = "get_user"
	OpExists        = "exists"
	OpInstanceOwner = "instance_owner"
	outcomeOK       = "ok"
	controllerAlias = "controller"
	variablePrefix  = "$"
)

// Run replays sc against a new factory and returns the first failed expectation.
func Run(ctx context.Context, sc *Scenario) error {
	factoryAddr, err := model.ParseAddress(sc.Factory)
	if err != nil {
		return fmt.Errorf("factory: %w", err)
	}
	controller, err := model.ParseAddress(sc.Controller)
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	g, err := gate.NewControllerGate(controller)
	if err != nil {
		return err
	}
	f, err := wallet.New(ctx, wallet.Options{
		Address: factoryAddr,
		Gate:    g,
		Logic:   logic.OwnedWallet{},
		Store:   registry.NewMemoryStore(),
		Space:   deployer.NewMemorySpace(sc.MaxInstances),
	})
	if err != nil {
		return err
	}
	r := &runner{f: f, vars: map[string]string{controllerAlias: controller.String()}}
	for i, st := range sc.Steps {
		if err := r.step(ctx, st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
	}
	return nil
}

type runner struct {
	f    *wallet.Factory
	vars map[string]string
}

func (r *runner) step(ctx context.Context, st Step) error {
	result, err := r.exec(ctx, st)
	outcome := outcomeOK
	if err != nil {
		outcome = events.Reason(err)
	}
	want := st.Expect
	if want == "" {
		want = outcomeOK
	}
	if outcome != want {
		return fmt.Errorf("outcome %s, want %s (err: %v)", outcome, want, err)
	}
	if st.Want != "" {
		expected, err := r.value(st.Want)
		if err != nil {
			return err
		}
		if !strings.EqualFold(result, expected) {
			return fmt.Errorf("result %s, want %s", result, expected)
		}
	}
	if st.Save != "" {
		r.vars[st.Save] = result
	}
	return nil
}

func (r *runner) exec(ctx context.Context, st Step) (string, error) {
	switch st.Op {
	case OpPredict:
		user, salt, err := r.userSalt(st)
		if err != nil {
			return "", err
		}
		return r.f.PredictWalletAddress(user, salt).String(), nil
	case OpCreate:
		caller, err := r.address(st.Caller)
		if err != nil {
			return "", err
		}
		user, salt, err := r.userSalt(st)
		if err != nil {
			return "", err
		}
		owner, err := r.address(st.Owner)
		if err != nil {
			return "", err
		}
		addr, err := r.f.CreateWallet(ctx, caller, user, owner, salt)
		return addr.String(), err
	case OpDeploy:
		caller, err := r.address(st.Caller)
		if err != nil {
			return "", err
		}
		impl, err := r.f.DeployImplementation(ctx, caller)
		return impl.Address.String(), err
	case OpGetWallet:
		user, err := r.user(st.User)
		if err != nil {
			return "", err
		}
		addr, err := r.f.GetWalletAddress(ctx, user)
		return addr.String(), err
	case OpGetUser:
		addr, err := r.address(st.Wallet)
		if err != nil {
			return "", err
		}
		user, err := r.f.GetWalletOwner(ctx, addr)
		return user.String(), err
	case OpExists:
		user, err := r.user(st.User)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(r.f.WalletExists(ctx, user)), nil
	case OpInstanceOwner:
		addr, err := r.address(st.Wallet)
		if err != nil {
			return "", err
		}
		owner, err := r.f.InstanceOwner(ctx, addr)
		return owner.String(), err
	default:
		return "", fmt.Errorf("%w: unknown op %q", model.ErrInvalidInput, st.Op)
	}
}

func (r *runner) value(s string) (string, error) {
	if name, ok := strings.CutPrefix(s, variablePrefix); ok {
		v, found := r.vars[name]
		if !found {
			return "", fmt.Errorf("%w: undefined variable %s", model.ErrInvalidInput, s)
		}
		return v, nil
	}
	if s == controllerAlias {
		return r.vars[controllerAlias], nil
	}
	return s, nil
}

func (r *runner) address(s string) (model.Address, error) {
	v, err := r.value(s)
	if err != nil {
		return model.Address{}, err
	}
	if v == "" {
		return model.Address{}, nil
	}
	return model.ParseAddress(v)
}

func (r *runner) user(s string) (model.UserID, error) {
	v, err := r.value(s)
	if err != nil {
		return model.UserID{}, err
	}
	return model.ParseUserID(v)
}

func (r *runner) userSalt(st Step) (model.UserID, model.Salt, error) {
	user, err := r.user(st.User)
	if err != nil {
		return user, model.Salt{}, err
	}
	v, err := r.value(st.Salt)
	if err != nil {
		return user, model.Salt{}, err
	}
	salt, err := model.ParseSalt(v)
	return user, salt, err
}
