package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/walletfactory/config"
	"github.com/kilianp07/walletfactory/core/derive"
	"github.com/kilianp07/walletfactory/core/gate"
	"github.com/kilianp07/walletfactory/core/logic"
	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/registry"
	"github.com/kilianp07/walletfactory/core/wallet"
	"github.com/kilianp07/walletfactory/pkg/export"
)

var (
	factory    = model.Address{0xfa}
	controller = model.Address{0xc0}
)

func TestPredictMatchesDerivation(t *testing.T) {
	salt := model.Salt{0x01}
	preds, err := predict(predictOptions{
		factory: factory.String(),
		logic:   logic.OwnedWalletName,
		version: 2,
		salts:   []string{salt.String()},
	})
	require.NoError(t, err)
	require.Len(t, preds, 1)
	impl := derive.ImplementationAddress(factory, logic.OwnedWallet{}.Code(), 2)
	assert.Equal(t, impl, preds[0].Implementation)
	assert.Equal(t, derive.WalletAddress(factory, impl, salt), preds[0].Wallet)
}

func TestPredictRejectsBadInput(t *testing.T) {
	_, err := predict(predictOptions{factory: "0x01", logic: logic.OwnedWalletName})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = predict(predictOptions{factory: factory.String(), logic: "multisig"})
	assert.Error(t, err)
}

func TestWritePredictionsYAML(t *testing.T) {
	preds := []Prediction{{Factory: factory, Salt: model.Salt{1}, Wallet: model.Address{2}}}
	var buf bytes.Buffer
	require.NoError(t, writePredictions(&buf, "yaml", preds))
	var out []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, model.Address{2}.String(), out[0]["wallet"])

	assert.Error(t, writePredictions(&buf, "toml", preds))
}

// seededConfig writes a config backed by a sqlite registry holding one wallet.
func seededConfig(t *testing.T) (*config.Config, model.Address) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "factory:\n  address: \"" + factory.String() + "\"\n  controller: \"" + controller.String() + "\"\n" +
		"registry:\n  type: sqlite\n  conf:\n    path: \"" + filepath.Join(dir, "registry.db") + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	store, err := registry.Backends.Create(cfg.Registry)
	require.NoError(t, err)
	defer store.Close()
	g, err := gate.NewControllerGate(controller)
	require.NoError(t, err)
	f, err := wallet.New(context.Background(), wallet.Options{Address: factory, Gate: g, Logic: logic.OwnedWallet{}, Store: store})
	require.NoError(t, err)
	addr, err := f.CreateWallet(context.Background(), controller, model.UserID{1}, model.Address{0x0a}, model.Salt{1})
	require.NoError(t, err)
	return cfg, addr
}

func TestVerifyRegistry(t *testing.T) {
	cfg, _ := seededConfig(t)
	var buf bytes.Buffer
	require.NoError(t, verifyRegistry(context.Background(), cfg, &buf))
	assert.Contains(t, buf.String(), "registry consistent")

	cfg.Factory.Address = model.Address{0x01}.String()
	buf.Reset()
	err := verifyRegistry(context.Background(), cfg, &buf)
	assert.ErrorIs(t, err, model.ErrInconsistent)
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestExportRegistry(t *testing.T) {
	cfg, addr := seededConfig(t)
	var buf bytes.Buffer
	require.NoError(t, exportRegistry(context.Background(), cfg, export.FormatJSON, &buf))
	var snap export.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, addr, snap.Entries[0].Wallet)
	assert.Len(t, snap.Implementations, 1)

	buf.Reset()
	require.NoError(t, exportRegistry(context.Background(), cfg, export.FormatCBOR, &buf))
	decoded, err := export.ReadCBOR(&buf)
	require.NoError(t, err)
	assert.Equal(t, addr, decoded.Entries[0].Wallet)
}

func TestScenarioCommand(t *testing.T) {
	var out bytes.Buffer
	scenarioCmd.SetOut(&out)
	scenarioCmd.SetContext(context.Background())
	require.NoError(t, scenarioCmd.RunE(scenarioCmd, []string{filepath.Join("..", "qa", "scenarios", "testdata", "capacity.yaml")}))
	assert.Equal(t, "capacity: 4 steps ok\n", out.String())
}

func TestApplyServeFlags(t *testing.T) {
	t.Cleanup(func() { serveFlags.addr, serveFlags.logLevel = "", "" })
	cfg := &config.Config{}
	cfg.SetDefaults()

	serveFlags.addr = "127.0.0.1:9090"
	serveFlags.logLevel = "debug"
	require.NoError(t, applyServeFlags(cfg))
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)

	serveFlags.logLevel = "chatty"
	assert.Error(t, applyServeFlags(cfg))
}

type closeFailWriter struct {
	bytes.Buffer
	err error
}

func (c *closeFailWriter) Close() error { return c.err }

func TestWriteAndCloseReportsCloseError(t *testing.T) {
	flushErr := errors.New("flush failed")
	w := &closeFailWriter{err: flushErr}
	err := writeAndClose(w, func(out io.Writer) error {
		_, err := io.WriteString(out, "{}")
		return err
	})
	assert.ErrorIs(t, err, flushErr)

	writeErr := errors.New("encode failed")
	err = writeAndClose(w, func(io.Writer) error { return writeErr })
	assert.ErrorIs(t, err, writeErr)
	assert.NotErrorIs(t, err, flushErr)

	w.err = nil
	assert.NoError(t, writeAndClose(w, func(io.Writer) error { return nil }))
}
