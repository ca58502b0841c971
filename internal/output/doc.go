// Package output provides structured output handling for the patchbay CLI.
//
// Every command writes through a Printer so the same call site serves a
// person at a terminal and an agent reading JSON.
//
// # Printer
//
//	printer := output.NewPrinter(cmd.OutOrStdout(), jsonFlag, output.IsTTY(cmd.OutOrStdout()))
//
//	printer.Success(map[string]any{"message": "Credential file written", "path": path})
//	printer.Table([]string{"ID", "NAME"}, rows)
//	printer.WriteJSON(raw)
//	printer.Error(err)
//
// # JSON Mode
//
// With --json, results are the vendor payload as returned and failures are
//
//	{"error": "message", "code": N}
//
// # Exit Codes
//
//	output.ExitSuccess     // 0: Success
//	output.ExitUserError   // 1: Bad arguments, destructive call refused
//	output.ExitSystemError // 2: Network or I/O failure
//	output.ExitConflict    // 3: Refusing to overwrite a file
//	output.ExitConfigError // 4: Missing or invalid credentials/settings
//	output.ExitVendorError // 5: Vendor API rejected the call
//
// Errors from other packages carry their code by implementing ExitCoder;
// GetExitCode finds it through any amount of wrapping.
package output
