package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// NewMockOperationalNotifier creates a new instance of MockOperationalNotifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockOperationalNotifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOperationalNotifier {
	mock := &MockOperationalNotifier{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockOperationalNotifier is an autogenerated mock type for the OperationalNotifier type
type MockOperationalNotifier struct {
	mock.Mock
}

type MockOperationalNotifier_Expecter struct {
	mock *mock.Mock
}

func (_m *MockOperationalNotifier) EXPECT() *MockOperationalNotifier_Expecter {
	return &MockOperationalNotifier_Expecter{mock: &_m.Mock}
}

// OnOperationalNetworkSelected provides a mock function for the type MockOperationalNotifier
func (_mock *MockOperationalNotifier) OnOperationalNetworkSelected(ctx context.Context, networkID netcommissioning.NetworkID, networkType netcommissioning.NetworkType) error {
	ret := _mock.Called(ctx, networkID, networkType)

	if len(ret) == 0 {
		panic("no return value specified for OnOperationalNetworkSelected")
	}

	var r0 error
	if returnFunc, ok := ret.Get(0).(func(context.Context, netcommissioning.NetworkID, netcommissioning.NetworkType) error); ok {
		r0 = returnFunc(ctx, networkID, networkType)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// MockOperationalNotifier_OnOperationalNetworkSelected_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'OnOperationalNetworkSelected'
type MockOperationalNotifier_OnOperationalNetworkSelected_Call struct {
	*mock.Call
}

// OnOperationalNetworkSelected is a helper method to define mock.On call
//   - ctx context.Context
//   - networkID netcommissioning.NetworkID
//   - networkType netcommissioning.NetworkType
func (_e *MockOperationalNotifier_Expecter) OnOperationalNetworkSelected(ctx interface{}, networkID interface{}, networkType interface{}) *MockOperationalNotifier_OnOperationalNetworkSelected_Call {
	return &MockOperationalNotifier_OnOperationalNetworkSelected_Call{Call: _e.mock.On("OnOperationalNetworkSelected", ctx, networkID, networkType)}
}

func (_c *MockOperationalNotifier_OnOperationalNetworkSelected_Call) Run(run func(ctx context.Context, networkID netcommissioning.NetworkID, networkType netcommissioning.NetworkType)) *MockOperationalNotifier_OnOperationalNetworkSelected_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(netcommissioning.NetworkID), args[2].(netcommissioning.NetworkType))
	})
	return _c
}

func (_c *MockOperationalNotifier_OnOperationalNetworkSelected_Call) Return(err error) *MockOperationalNotifier_OnOperationalNetworkSelected_Call {
	_c.Call.Return(err)
	return _c
}

func (_c *MockOperationalNotifier_OnOperationalNetworkSelected_Call) RunAndReturn(run func(ctx context.Context, networkID netcommissioning.NetworkID, networkType netcommissioning.NetworkType) error) *MockOperationalNotifier_OnOperationalNetworkSelected_Call {
	_c.Call.Return(run)
	return _c
}
