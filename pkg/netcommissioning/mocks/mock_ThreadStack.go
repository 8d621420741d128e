package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"
)

// NewMockThreadStack creates a new instance of MockThreadStack. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockThreadStack(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockThreadStack {
	mock := &MockThreadStack{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

// MockThreadStack is an autogenerated mock type for the ThreadStack type
type MockThreadStack struct {
	mock.Mock
}

type MockThreadStack_Expecter struct {
	mock *mock.Mock
}

func (_m *MockThreadStack) EXPECT() *MockThreadStack_Expecter {
	return &MockThreadStack_Expecter{mock: &_m.Mock}
}

// SetThreadEnabled provides a mock function for the type MockThreadStack
func (_mock *MockThreadStack) SetThreadEnabled(ctx context.Context, enabled bool) error {
	ret := _mock.Called(ctx, enabled)

	if len(ret) == 0 {
		panic("no return value specified for SetThreadEnabled")
	}

	var r0 error
	if returnFunc, ok := ret.Get(0).(func(context.Context, bool) error); ok {
		r0 = returnFunc(ctx, enabled)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// MockThreadStack_SetThreadEnabled_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'SetThreadEnabled'
type MockThreadStack_SetThreadEnabled_Call struct {
	*mock.Call
}

// SetThreadEnabled is a helper method to define mock.On call
//   - ctx context.Context
//   - enabled bool
func (_e *MockThreadStack_Expecter) SetThreadEnabled(ctx interface{}, enabled interface{}) *MockThreadStack_SetThreadEnabled_Call {
	return &MockThreadStack_SetThreadEnabled_Call{Call: _e.mock.On("SetThreadEnabled", ctx, enabled)}
}

func (_c *MockThreadStack_SetThreadEnabled_Call) Run(run func(ctx context.Context, enabled bool)) *MockThreadStack_SetThreadEnabled_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(bool))
	})
	return _c
}

func (_c *MockThreadStack_SetThreadEnabled_Call) Return(err error) *MockThreadStack_SetThreadEnabled_Call {
	_c.Call.Return(err)
	return _c
}

func (_c *MockThreadStack_SetThreadEnabled_Call) RunAndReturn(run func(ctx context.Context, enabled bool) error) *MockThreadStack_SetThreadEnabled_Call {
	_c.Call.Return(run)
	return _c
}

// SetThreadProvision provides a mock function for the type MockThreadStack
func (_mock *MockThreadStack) SetThreadProvision(ctx context.Context, dataset []byte) error {
	ret := _mock.Called(ctx, dataset)

	if len(ret) == 0 {
		panic("no return value specified for SetThreadProvision")
	}

	var r0 error
	if returnFunc, ok := ret.Get(0).(func(context.Context, []byte) error); ok {
		r0 = returnFunc(ctx, dataset)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}

// MockThreadStack_SetThreadProvision_Call is a *mock.Call that shadows Run/Return methods with type explicit version for method 'SetThreadProvision'
type MockThreadStack_SetThreadProvision_Call struct {
	*mock.Call
}

// SetThreadProvision is a helper method to define mock.On call
//   - ctx context.Context
//   - dataset []byte
func (_e *MockThreadStack_Expecter) SetThreadProvision(ctx interface{}, dataset interface{}) *MockThreadStack_SetThreadProvision_Call {
	return &MockThreadStack_SetThreadProvision_Call{Call: _e.mock.On("SetThreadProvision", ctx, dataset)}
}

func (_c *MockThreadStack_SetThreadProvision_Call) Run(run func(ctx context.Context, dataset []byte)) *MockThreadStack_SetThreadProvision_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].([]byte))
	})
	return _c
}

func (_c *MockThreadStack_SetThreadProvision_Call) Return(err error) *MockThreadStack_SetThreadProvision_Call {
	_c.Call.Return(err)
	return _c
}

func (_c *MockThreadStack_SetThreadProvision_Call) RunAndReturn(run func(ctx context.Context, dataset []byte) error) *MockThreadStack_SetThreadProvision_Call {
	_c.Call.Return(run)
	return _c
}
