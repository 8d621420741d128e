package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// NewMockWiFiProvisioner creates a new instance of MockWiFiProvisioner. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockWiFiProvisioner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWiFiProvisioner {
	mock := &MockWiFiProvisioner{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockWiFiProvisioner is an autogenerated mock type for the WiFiProvisioner type
type MockWiFiProvisioner struct {
	mock.Mock
}

type MockWiFiProvisioner_Expecter struct {
	mock *mock.Mock
}

func (_m *MockWiFiProvisioner) EXPECT() *MockWiFiProvisioner_Expecter {
	return &MockWiFiProvisioner_Expecter{mock: &_m.Mock}
}

// ProvisionWiFi provides a mock function for the type MockWiFiProvisioner
func (_mock *MockWiFiProvisioner) ProvisionWiFi(ctx context.Context, ssid []byte, credentials []byte) error {
	ret := _mock.Called(ctx, ssid, credentials)

	if len(ret) == 0 {
		panic("no return value specified for ProvisionWiFi")
	}

	var r0 error
	if returnFunc, ok := ret.Get(0).(func(context.Context, []byte, []byte) error); ok {
		r0 = returnFunc(ctx, ssid, credentials)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// MockWiFiProvisioner_ProvisionWiFi_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'ProvisionWiFi'
type MockWiFiProvisioner_ProvisionWiFi_Call struct {
	*mock.Call
}

// ProvisionWiFi is a helper method to define mock.On call
//   - ctx context.Context
//   - ssid []byte
//   - credentials []byte
func (_e *MockWiFiProvisioner_Expecter) ProvisionWiFi(ctx interface{}, ssid interface{}, credentials interface{}) *MockWiFiProvisioner_ProvisionWiFi_Call {
	return &MockWiFiProvisioner_ProvisionWiFi_Call{Call: _e.mock.On("ProvisionWiFi", ctx, ssid, credentials)}
}

func (_c *MockWiFiProvisioner_ProvisionWiFi_Call) Run(run func(ctx context.Context, ssid []byte, credentials []byte)) *MockWiFiProvisioner_ProvisionWiFi_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].([]byte), args[2].([]byte))
	})
	return _c
}

func (_c *MockWiFiProvisioner_ProvisionWiFi_Call) Return(err error) *MockWiFiProvisioner_ProvisionWiFi_Call {
	_c.Call.Return(err)
	return _c
}

func (_c *MockWiFiProvisioner_ProvisionWiFi_Call) RunAndReturn(run func(ctx context.Context, ssid []byte, credentials []byte) error) *MockWiFiProvisioner_ProvisionWiFi_Call {
	_c.Call.Return(run)
	return _c
}
