//go:build !linux && !windows

package notify

// acquireNative falls back to fsnotify, which uses kqueue on darwin and the
// BSDs.
func acquireNative(dir string, opts Options) (Channel, error) {
	return acquirePortable(dir, opts)
}
