// Package service ties the transport, timed interaction guard, correlation
// table and commissioning engine into a device and a controller.
//
// # DeviceService
//
// DeviceService listens for controller connections. Per connection it keeps
// a timed.Guard; a TimedRequest opens a window on its exchange and is
// answered with a StatusResponse. Invokes are screened before they reach
// the engine:
//   - unknown command ids answer UNSUPPORTED_COMMAND
//   - a timed flag without a window, or a window without the flag, answers
//     TIMED_REQUEST_MISMATCH
//   - a sensitive command without a timed flag answers
//     NEEDS_TIMED_INTERACTION
//
// Everything else runs on the engine, which consumes the window and answers
// through a correlation-table continuation with an InvokeResponse.
//
// Example usage:
//
//	svc, err := service.NewDeviceService(config)
//	svc.Start(ctx)
//	defer svc.Stop()
//
// # Controller
//
// Controller is the initiating side: it opens a window, awaits the
// acknowledgement, sends the invoke flagged timed and waits for the
// correlated response.
//
//	ctrl, err := service.DialController(ctx, "device:5540", service.ControllerConfig{})
//	resp, err := ctrl.AddOrUpdateWiFiNetwork(ctx, ssid, creds, 1)
package service
