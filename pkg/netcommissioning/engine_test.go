package netcommissioning_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning/mocks"
	"github.com/mash-protocol/netcomm-go/pkg/timed"
	"github.com/mash-protocol/netcomm-go/pkg/wire"
)

var errWindowExpired = errors.New("window expired")

// recordingSink collects every response it is given.
type recordingSink struct {
	mu        sync.Mutex
	responses []netcommissioning.Response
}

func (s *recordingSink) Respond(resp netcommissioning.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, resp)
	return nil
}

func (s *recordingSink) only(t *testing.T) netcommissioning.Response {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.responses, 1, "exactly one response per command")
	return s.responses[0]
}

type engineFixture struct {
	engine   *netcommissioning.Engine
	wifi     *mocks.MockWiFiProvisioner
	thread   *mocks.MockThreadStack
	notifier *mocks.MockOperationalNotifier

	windowOK bool
}

func newEngineFixture(t *testing.T, mutate func(*netcommissioning.Config)) *engineFixture {
	t.Helper()
	f := &engineFixture{
		wifi:     mocks.NewMockWiFiProvisioner(t),
		thread:   mocks.NewMockThreadStack(t),
		notifier: mocks.NewMockOperationalNotifier(t),
		windowOK: true,
	}
	cfg := netcommissioning.DefaultConfig()
	cfg.Platform = netcommissioning.Platform{WiFi: f.wifi, Thread: f.thread}
	cfg.Notifier = f.notifier
	cfg.Window = netcommissioning.WindowCheckerFunc(func(uint32, time.Time) error {
		if !f.windowOK {
			return errWindowExpired
		}
		return nil
	})
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := netcommissioning.NewEngine(cfg)
	require.NoError(t, err)
	f.engine = e
	return f
}

func (f *engineFixture) addWiFi(t *testing.T, ssid, creds string) netcommissioning.Response {
	t.Helper()
	sink := &recordingSink{}
	f.engine.AddOrUpdateWiFiNetwork(context.Background(), 1, netcommissioning.AddOrUpdateWiFiNetworkRequest{
		SSID: []byte(ssid), Credentials: []byte(creds),
	}, sink)
	return sink.only(t)
}

func (f *engineFixture) connect(t *testing.T, id []byte) netcommissioning.Response {
	t.Helper()
	sink := &recordingSink{}
	f.engine.ConnectNetwork(context.Background(), 2, netcommissioning.ConnectNetworkRequest{NetworkID: id}, sink)
	return sink.only(t)
}

func threadDataset(t *testing.T, xpanid [8]byte) []byte {
	t.Helper()
	ds, err := (&netcommissioning.DatasetBuilder{}).
		Channel(11).
		PANID(0xface).
		ExtendedPANID(xpanid).
		NetworkName("home-thread").
		Build()
	require.NoError(t, err)
	return ds
}

func TestNewEngineRequiresWindow(t *testing.T) {
	cfg := netcommissioning.DefaultConfig()
	_, err := netcommissioning.NewEngine(cfg)
	assert.ErrorIs(t, err, netcommissioning.ErrNoWindowChecker)
}

func TestEngineCapacityExample(t *testing.T) {
	f := newEngineFixture(t, nil)

	r0 := f.addWiFi(t, "home", "secret123")
	require.Equal(t, netcommissioning.StatusSuccess, r0.Status)
	require.NotNil(t, r0.NetworkIndex)
	assert.Equal(t, uint8(0), *r0.NetworkIndex)

	r1 := f.addWiFi(t, "home", "secret123")
	require.Equal(t, netcommissioning.StatusSuccess, r1.Status)
	assert.Equal(t, uint8(1), *r1.NetworkIndex)

	profiles := f.engine.Store().Profiles()
	require.Len(t, profiles, 2)
	assert.Equal(t, profiles[0].NetworkID.Bytes(), profiles[1].NetworkID.Bytes())

	assert.Equal(t, netcommissioning.StatusSuccess, f.addWiFi(t, "office", "pw").Status)
	assert.Equal(t, netcommissioning.StatusSuccess, f.addWiFi(t, "garage", "pw").Status)

	r4 := f.addWiFi(t, "attic", "pw")
	assert.Equal(t, netcommissioning.StatusBoundsExceeded, r4.Status)
	assert.Nil(t, r4.NetworkIndex)
	assert.Equal(t, 4, f.engine.Store().Len())
}

func TestEngineOversizeSSID(t *testing.T) {
	f := newEngineFixture(t, nil)

	assert.Equal(t, netcommissioning.StatusSuccess, f.addWiFi(t, string(make([]byte, 32)), "pw").Status)

	resp := f.addWiFi(t, string(make([]byte, 33)), "pw")
	assert.Equal(t, netcommissioning.StatusOutOfRange, resp.Status)
	assert.NotEmpty(t, resp.DebugText)
	assert.Equal(t, 1, f.engine.Store().Len())
}

func TestEngineWindowRefused(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.windowOK = false

	resp := f.addWiFi(t, "home", "secret123")
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
	assert.Contains(t, resp.DebugText, "timed window")
	assert.Equal(t, 0, f.engine.Store().Len(), "refused command must not mutate")

	// Connect is refused before the platform is touched.
	resp = f.connect(t, []byte("home"))
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
}

func TestEngineConnectWiFi(t *testing.T) {
	f := newEngineFixture(t, func(c *netcommissioning.Config) { c.MaxNetworks = 2 })
	f.addWiFi(t, "home", "secret123")

	f.wifi.EXPECT().ProvisionWiFi(mock.Anything, []byte("home"), []byte("secret123")).Return(nil).Once()
	f.notifier.EXPECT().
		OnOperationalNetworkSelected(mock.Anything, mock.Anything, netcommissioning.NetworkTypeWiFi).
		Run(func(_ context.Context, id netcommissioning.NetworkID, _ netcommissioning.NetworkType) {
			assert.Equal(t, "home", id.String())
		}).
		Return(nil).Once()

	resp := f.connect(t, []byte("home"))
	assert.Equal(t, netcommissioning.StatusSuccess, resp.Status)

	p, _, ok := f.engine.Store().FindByID([]byte("home"))
	require.True(t, ok)
	assert.True(t, p.Enabled)

	op, ok := f.engine.OperationalNetwork()
	require.True(t, ok)
	assert.Equal(t, "home", op.String())
}

func TestEngineConnectUnknownID(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addWiFi(t, "home", "pw")

	resp := f.connect(t, []byte("nowhere"))
	assert.Equal(t, netcommissioning.StatusNetworkIDNotFound, resp.Status)

	p, _, _ := f.engine.Store().FindByID([]byte("home"))
	assert.False(t, p.Enabled)
	f.wifi.AssertNotCalled(t, "ProvisionWiFi", mock.Anything, mock.Anything, mock.Anything)
}

func TestEngineConnectWiFiPlatformFailure(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addWiFi(t, "home", "pw")

	f.wifi.EXPECT().ProvisionWiFi(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("association rejected")).Once()

	resp := f.connect(t, []byte("home"))
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
	assert.Contains(t, resp.DebugText, "association rejected")

	p, _, _ := f.engine.Store().FindByID([]byte("home"))
	assert.False(t, p.Enabled)
	_, ok := f.engine.OperationalNetwork()
	assert.False(t, ok)
}

func TestEngineConnectThreadOrder(t *testing.T) {
	f := newEngineFixture(t, nil)
	xpanid := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	ds := threadDataset(t, xpanid)

	sink := &recordingSink{}
	f.engine.AddOrUpdateThreadNetwork(context.Background(), 1, netcommissioning.AddOrUpdateThreadNetworkRequest{OperationalDataset: ds}, sink)
	require.Equal(t, netcommissioning.StatusSuccess, sink.only(t).Status)

	mock.InOrder(
		f.thread.EXPECT().SetThreadEnabled(mock.Anything, false).Return(nil).Once(),
		f.thread.EXPECT().SetThreadProvision(mock.Anything, ds).Return(nil).Once(),
		f.thread.EXPECT().SetThreadEnabled(mock.Anything, true).Return(nil).Once(),
	)
	f.notifier.EXPECT().OnOperationalNetworkSelected(mock.Anything, mock.Anything, netcommissioning.NetworkTypeThread).Return(nil).Once()

	resp := f.connect(t, xpanid[:])
	assert.Equal(t, netcommissioning.StatusSuccess, resp.Status)
}

func TestEngineConnectThreadProvisionFailureLeavesRadioDisabled(t *testing.T) {
	f := newEngineFixture(t, nil)
	xpanid := [8]byte{8, 7, 6, 5, 4, 3, 2, 1}

	sink := &recordingSink{}
	f.engine.AddOrUpdateThreadNetwork(context.Background(), 1, netcommissioning.AddOrUpdateThreadNetworkRequest{OperationalDataset: threadDataset(t, xpanid)}, sink)
	require.Equal(t, netcommissioning.StatusSuccess, sink.only(t).Status)

	f.thread.EXPECT().SetThreadEnabled(mock.Anything, false).Return(nil).Once()
	f.thread.EXPECT().SetThreadProvision(mock.Anything, mock.Anything).Return(errors.New("bad dataset")).Once()

	resp := f.connect(t, xpanid[:])
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
	f.thread.AssertNotCalled(t, "SetThreadEnabled", mock.Anything, true)

	p, _, _ := f.engine.Store().FindByID(xpanid[:])
	assert.False(t, p.Enabled)
}

func TestEngineConnectUnsupportedPlatform(t *testing.T) {
	f := newEngineFixture(t, func(c *netcommissioning.Config) {
		c.Platform = netcommissioning.Platform{}
	})
	f.addWiFi(t, "home", "pw")

	resp := f.connect(t, []byte("home"))
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
	assert.Contains(t, resp.DebugText, netcommissioning.ErrNotSupported.Error())
}

func TestEngineConnectEthernetNotImplemented(t *testing.T) {
	f := newEngineFixture(t, nil)
	_, err := f.engine.Store().AddEthernet([]byte("eth0"))
	require.NoError(t, err)

	resp := f.connect(t, []byte("eth0"))
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
	assert.Contains(t, resp.DebugText, netcommissioning.ErrNotImplemented.Error())
}

func TestEngineFeatureDisabledAnswersUnknownError(t *testing.T) {
	f := newEngineFixture(t, func(c *netcommissioning.Config) {
		c.Features = netcommissioning.FeatureThread
	})

	resp := f.addWiFi(t, "home", "pw")
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
}

func TestEngineRemoveNetwork(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addWiFi(t, "home", "pw")
	f.wifi.EXPECT().ProvisionWiFi(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.EXPECT().OnOperationalNetworkSelected(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	require.Equal(t, netcommissioning.StatusSuccess, f.connect(t, []byte("home")).Status)

	sink := &recordingSink{}
	f.engine.RemoveNetwork(context.Background(), 3, netcommissioning.RemoveNetworkRequest{NetworkID: []byte("home"), Breadcrumb: 42}, sink)
	resp := sink.only(t)
	assert.Equal(t, netcommissioning.StatusSuccess, resp.Status)
	assert.Equal(t, uint64(42), f.engine.Breadcrumb())

	_, ok := f.engine.OperationalNetwork()
	assert.False(t, ok, "removed network is no longer operational")

	sink = &recordingSink{}
	f.engine.RemoveNetwork(context.Background(), 4, netcommissioning.RemoveNetworkRequest{NetworkID: []byte("home")}, sink)
	assert.Equal(t, netcommissioning.StatusNetworkIDNotFound, sink.only(t).Status)
}

func TestEngineBreadcrumbOnlyOnSuccess(t *testing.T) {
	f := newEngineFixture(t, func(c *netcommissioning.Config) { c.MaxNetworks = 1 })

	sink := &recordingSink{}
	f.engine.AddOrUpdateWiFiNetwork(context.Background(), 1, netcommissioning.AddOrUpdateWiFiNetworkRequest{
		SSID: []byte("a"), Breadcrumb: 7,
	}, sink)
	require.Equal(t, netcommissioning.StatusSuccess, sink.only(t).Status)

	sink = &recordingSink{}
	f.engine.AddOrUpdateWiFiNetwork(context.Background(), 2, netcommissioning.AddOrUpdateWiFiNetworkRequest{
		SSID: []byte("b"), Breadcrumb: 9,
	}, sink)
	require.Equal(t, netcommissioning.StatusBoundsExceeded, sink.only(t).Status)

	assert.Equal(t, uint64(7), f.engine.Breadcrumb())
}

func TestEngineHandleDecodesFields(t *testing.T) {
	f := newEngineFixture(t, nil)

	raw, err := wire.Marshal(netcommissioning.AddOrUpdateWiFiNetworkRequest{SSID: []byte("home"), Credentials: []byte("pw")})
	require.NoError(t, err)

	sink := &recordingSink{}
	f.engine.Handle(context.Background(), 1, netcommissioning.CmdAddOrUpdateWiFiNetwork, raw, sink)
	assert.Equal(t, netcommissioning.StatusSuccess, sink.only(t).Status)

	t.Run("missing fields", func(t *testing.T) {
		sink := &recordingSink{}
		f.engine.Handle(context.Background(), 2, netcommissioning.CmdConnectNetwork, nil, sink)
		assert.Equal(t, netcommissioning.StatusUnknownError, sink.only(t).Status)
	})

	t.Run("unknown command", func(t *testing.T) {
		sink := &recordingSink{}
		f.engine.Handle(context.Background(), 3, netcommissioning.CommandID(0x7f), raw, sink)
		resp := sink.only(t)
		assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
		assert.Contains(t, resp.DebugText, "unknown command")
	})
}

func TestEngineUndecodableFieldsConsumeWindow(t *testing.T) {
	guard := timed.NewGuard(timed.Config{})
	f := newEngineFixture(t, func(c *netcommissioning.Config) { c.Window = guard })

	guard.Accept(9, 5000, time.Now())
	sink := &recordingSink{}
	f.engine.Handle(context.Background(), 9, netcommissioning.CmdAddOrUpdateWiFiNetwork, []byte{0xff}, sink)
	assert.Equal(t, netcommissioning.StatusUnknownError, sink.only(t).Status)
	assert.False(t, guard.Has(9), "window consumed by the failed invoke")

	raw, err := wire.Marshal(netcommissioning.AddOrUpdateWiFiNetworkRequest{SSID: []byte("home"), Credentials: []byte("pw")})
	require.NoError(t, err)
	sink = &recordingSink{}
	f.engine.Handle(context.Background(), 9, netcommissioning.CmdAddOrUpdateWiFiNetwork, raw, sink)
	assert.Equal(t, netcommissioning.StatusUnknownError, sink.only(t).Status, "second invoke has no window")
	assert.Equal(t, 0, f.engine.Store().Len())
}

func TestEngineDisable(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addWiFi(t, "home", "pw")
	f.wifi.EXPECT().ProvisionWiFi(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.EXPECT().OnOperationalNetworkSelected(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.connect(t, []byte("home"))

	require.NoError(t, f.engine.Disable([]byte("home")))
	p, _, _ := f.engine.Store().FindByID([]byte("home"))
	assert.False(t, p.Enabled)
	_, ok := f.engine.OperationalNetwork()
	assert.False(t, ok)

	assert.ErrorIs(t, f.engine.Disable([]byte("missing")), netcommissioning.ErrNetworkIDNotFound)
}

func TestEngineNotifierFailureDoesNotFailConnect(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addWiFi(t, "home", "pw")
	f.wifi.EXPECT().ProvisionWiFi(mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.notifier.EXPECT().OnOperationalNetworkSelected(mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	assert.Equal(t, netcommissioning.StatusSuccess, f.connect(t, []byte("home")).Status)
}

func TestEngineConnectHonorsRequestTimeout(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.addWiFi(t, "home", "pw")

	f.wifi.EXPECT().ProvisionWiFi(mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ []byte, _ []byte) error {
			<-ctx.Done()
			return ctx.Err()
		}).Once()

	sink := &recordingSink{}
	f.engine.ConnectNetwork(context.Background(), 5, netcommissioning.ConnectNetworkRequest{NetworkID: []byte("home"), TimeoutMs: 20}, sink)
	resp := sink.only(t)
	assert.Equal(t, netcommissioning.StatusUnknownError, resp.Status)
	assert.Contains(t, resp.DebugText, context.DeadlineExceeded.Error())
}

func TestEngineLocalConnectAndRemove(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.windowOK = false
	f.engine.Store().AddOrUpdateWiFi([]byte("home"), []byte("pw"))
	f.wifi.EXPECT().ProvisionWiFi(mock.Anything, []byte("home"), []byte("pw")).Return(nil).Once()
	f.notifier.EXPECT().OnOperationalNetworkSelected(mock.Anything, mock.Anything, netcommissioning.NetworkTypeWiFi).Return(nil).Once()

	idx, err := f.engine.Connect(context.Background(), []byte("home"))
	require.NoError(t, err)
	assert.Equal(t, uint8(0), idx)
	_, ok := f.engine.OperationalNetwork()
	assert.True(t, ok)

	idx, err = f.engine.Remove([]byte("home"))
	require.NoError(t, err)
	assert.Equal(t, uint8(0), idx)
	_, ok = f.engine.OperationalNetwork()
	assert.False(t, ok)

	_, err = f.engine.Remove([]byte("home"))
	assert.ErrorIs(t, err, netcommissioning.ErrNetworkIDNotFound)
}
