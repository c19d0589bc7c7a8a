package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/septivank/greenmove-rewards/internal/address"
	"github.com/septivank/greenmove-rewards/internal/metrics"
	"github.com/septivank/greenmove-rewards/internal/program"
	"github.com/septivank/greenmove-rewards/internal/state"
	"github.com/septivank/greenmove-rewards/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fill(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

var (
	owner = fill(1)
	feed  = fill(2)
)

type fixture struct {
	prog   *program.Program
	router http.Handler
}

func newFixture(t *testing.T, checks map[string]Check) fixture {
	t.Helper()
	st, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	prog := program.New(fill(0xA0), st, nil, nil, zap.NewNop())

	reg := prometheus.NewRegistry()
	metrics.New(reg).ObserveRejection("Unauthorized")
	return fixture{prog: prog, router: NewRouter(NewHandler(prog, checks, zap.NewNop()), reg)}
}

func (f fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.prog.Execute(ctx, program.Env{Signer: owner, Timestamp: 100}, program.NewRegister(program.Register{
		PropertyID: "prop-1",
		WaterID:    "water-1",
		WaterFeed:  feed,
	}))
	require.NoError(t, err)
	_, err = f.prog.Execute(ctx, program.Env{Signer: feed, Timestamp: 200}, program.NewReportUsage(state.CategoryWater, program.ReportUsage{
		Owner:      owner,
		PropertyID: "prop-1",
		MeterID:    "water-1",
		Quantity:   80,
	}))
	require.NoError(t, err)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	f := newFixture(t, map[string]Check{
		"store":    func(context.Context) error { return nil },
		"rabbitmq": func(context.Context) error { return errors.New("connection closed") },
	})
	rec := f.get(t, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Checks["store"])
	assert.Equal(t, "error: connection closed", resp.Checks["rabbitmq"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `greenmove_rejections_total{code="Unauthorized"} 1`)
}

func TestGetAccount_Meter(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)

	meter, err := f.prog.Deriver().WaterMeter(owner, "prop-1", "water-1")
	require.NoError(t, err)

	rec := f.get(t, "/v1/accounts/"+meter.Address.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Address string    `json:"address"`
		Kind    string    `json:"kind"`
		Data    meterView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, meter.Address.String(), resp.Address)
	assert.Equal(t, "WaterMeter", resp.Kind)
	assert.Equal(t, "water", resp.Data.Category)
	assert.Equal(t, feed, resp.Data.FeedAddress)
	assert.Equal(t, uint64(80), resp.Data.TotalConsumed)
	assert.Equal(t, uint64(40), resp.Data.TotalSaved)
	require.Len(t, resp.Data.History, 1)
	assert.Equal(t, sampleView{Timestamp: 200, Quantity: 80, Baseline: 120}, resp.Data.History[0])
}

func TestGetAccount_Reward(t *testing.T) {
	f := newFixture(t, nil)
	f.seed(t)

	rewards, err := f.prog.Deriver().UserReward(owner)
	require.NoError(t, err)

	rec := f.get(t, "/v1/accounts/"+rewards.Address.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Kind string     `json:"kind"`
		Data rewardView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UserReward", resp.Kind)
	assert.Equal(t, uint64(100), resp.Data.Balance)
	assert.Empty(t, resp.Data.Redemptions)
}

func TestGetAccount_Errors(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get(t, "/v1/accounts/not-an-address")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.get(t, "/v1/accounts/"+fill(9).String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "AccountNotFound")
}

func TestGetOwnerAddresses(t *testing.T) {
	f := newFixture(t, nil)
	d := f.prog.Deriver()

	rec := f.get(t, "/v1/owners/"+owner.String()+"/addresses?property=prop-1&water=water-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AddressesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	user, err := d.UserData(owner)
	require.NoError(t, err)
	water, err := d.WaterMeter(owner, "prop-1", "water-1")
	require.NoError(t, err)

	assert.Equal(t, d.ProgramID(), resp.ProgramID)
	assert.Equal(t, user.Address, resp.UserData.Address)
	assert.Equal(t, user.Bump, resp.UserData.Bump)
	require.NotNil(t, resp.WaterMeter)
	assert.Equal(t, water.Address, resp.WaterMeter.Address)
	assert.NotNil(t, resp.Property)
	assert.Nil(t, resp.EnergyMeter)
}

func TestGetOwnerAddresses_Invalid(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get(t, "/v1/owners/"+owner.String()+"/addresses?water=water-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.get(t, "/v1/owners/"+owner.String()+"/addresses?property="+strings.Repeat("p", 40))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.get(t, "/v1/owners/xyz0/addresses")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
