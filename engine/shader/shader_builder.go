package shader

// RegistryBuilderOption is a functional option used to configure a Registry during construction.
type RegistryBuilderOption func(*registry)

// WithHotReload enables or disables source-file hot reload during construction.
//
// Parameters:
//   - enabled: true to check source timestamps in CheckForUpdates
//
// Returns:
//   - RegistryBuilderOption: a function that sets the hot reload state for the registry
func WithHotReload(enabled bool) RegistryBuilderOption {
	return func(r *registry) {
		r.hotReloadEnabled = enabled
	}
}

// WithReloadCallback sets the function invoked with a program's name after a
// successful hot reload.
//
// Parameters:
//   - callback: function receiving the reloaded program name
//
// Returns:
//   - RegistryBuilderOption: a function that sets the reload callback for the registry
func WithReloadCallback(callback func(name string)) RegistryBuilderOption {
	return func(r *registry) {
		r.reloadCallback = callback
	}
}
