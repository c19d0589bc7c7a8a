package main

import (
	"testing"

	"github.com/septivank/greenmove-rewards/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestAppOptions_GraphIsComplete(t *testing.T) {
	require.NoError(t, fx.ValidateApp(appOptions()))
}

func TestProvideLedger_LevelDB(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := &config.Config{}
	cfg.Store.Backend = config.BackendLevelDB
	cfg.Store.LevelDBPath = t.TempDir()

	ledger, err := ProvideLedger(lc, zap.NewNop(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.BackendLevelDB, ledger.Backend)
	assert.Nil(t, ledger.Ping)
	assert.Same(t, ledger.Store, ProvideStore(ledger))

	lc.RequireStart()
	lc.RequireStop()
}

func TestProvideProgram_UsesConfiguredSchedule(t *testing.T) {
	cfg := &config.Config{ProgramID: config.DefaultProgramID}
	cfg.Reward.WaterTiers = "1600:100,1100:50,600:25,100:10"
	cfg.Reward.EnergyTiers = "1600:100,1100:50,600:25,100:10"
	cfg.Reward.WaterBaseline = 120
	cfg.Reward.EnergyBaseline = 80
	cfg.Reward.BaselineWindow = 6

	lc := fxtest.NewLifecycle(t)
	cfg.Store.LevelDBPath = t.TempDir()
	ledger, err := ProvideLedger(lc, zap.NewNop(), cfg)
	require.NoError(t, err)
	defer ledger.Store.Close()

	prog, err := ProvideProgram(ledger.Store, cfg, zap.NewNop())
	require.NoError(t, err)
	want, err := cfg.ProgramAddress()
	require.NoError(t, err)
	assert.Equal(t, want, prog.Deriver().ProgramID())

	cfg.ProgramID = "not-an-address!"
	_, err = ProvideProgram(ledger.Store, cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestProvideRegistry_ServesMetrics(t *testing.T) {
	reg := ProvideRegistry()
	m := ProvideMetrics(reg)
	m.ObserveRejection("Unauthorized")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["greenmove_rejections_total"])
	assert.True(t, names["go_goroutines"])
}
