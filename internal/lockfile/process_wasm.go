//go:build js && wasm

package lockfile

// isProcessRunning always reports false in WASM: there is no multi-process
// daemon to probe in a single-process environment.
func isProcessRunning(pid int) bool {
	return false
}
