// Package flows contains the step logic behind every Engine operation.
//
// Each flow function (RunAuthenticate, RunResolveSecondFactor, RunSendCode,
// RunVerifyCode, RunHandleCallback, RunEnsureProfile, RunSignUp,
// RunLoadDashboard) takes a typed dependency struct of plain functions and
// performs no I/O of its own.
//
// # Errors
//
// A flow's error return is fatal: the caller aborts the operation. Failures a
// flow chose to tolerate are collected in [Result.Recovered] as
// [KindRecoverable] *FlowError values so the caller can log and audit them.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import the root package (to avoid import cycles).
//   - Emit logs, audit events or metrics; the engine does that from results.
package flows
