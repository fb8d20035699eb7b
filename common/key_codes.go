package common

// Key codes delivered by the window key callbacks. Values match GLFW, which
// uses ASCII codes for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyB = 66
	KeyM = 77
	KeyP = 80

	Key1 = 49
	Key4 = 52
	Key8 = 56

	// KeyEsc closes the window; the window handles it before callbacks run.
	KeyEsc = 256
)
