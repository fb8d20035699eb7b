// package shader manages named shader programs. Each program is a vertex +
// fragment WGSL pair compiled and validated through the naga compiler at load
// time. The registry supports file-timestamp hot reload with atomic swap: a
// failed recompile leaves the previous program untouched.
package shader

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gogpu/naga"
)

// ErrCompile indicates WGSL compilation or validation failed. The wrapped
// error carries the compiler diagnostic.
var ErrCompile = errors.New("shader: compile failed")

// program is the implementation of the Program interface.
// It holds the compiled state of both stages plus the file metadata used by hot reload.
type program struct {
	name string

	vsPath, fsPath     string
	vsSource, fsSource string
	vsSPIRV, fsSPIRV   []byte
	vsModTime          time.Time
	fsModTime          time.Time
}

// Program is a loaded vertex + fragment shader pair. Sources are the current
// WGSL text; the SPIR-V blobs are the validated compile artifacts produced at
// load or reload time.
type Program interface {
	// Name returns the unique program name used for registry lookups.
	//
	// Returns:
	//   - string: the program name
	Name() string

	// VertexSource returns the current WGSL source of the vertex stage.
	//
	// Returns:
	//   - string: the vertex stage WGSL
	VertexSource() string

	// FragmentSource returns the current WGSL source of the fragment stage.
	//
	// Returns:
	//   - string: the fragment stage WGSL
	FragmentSource() string

	// VertexSPIRV returns the SPIR-V produced when the vertex stage was compiled.
	//
	// Returns:
	//   - []byte: the vertex stage SPIR-V binary
	VertexSPIRV() []byte

	// FragmentSPIRV returns the SPIR-V produced when the fragment stage was compiled.
	//
	// Returns:
	//   - []byte: the fragment stage SPIR-V binary
	FragmentSPIRV() []byte

	// Paths returns the on-disk source paths for both stages. Both are empty
	// for programs loaded from embedded sources; such programs are never hot reloaded.
	//
	// Returns:
	//   - string: the vertex stage path
	//   - string: the fragment stage path
	Paths() (string, string)
}

var _ Program = &program{}

func (p *program) Name() string           { return p.name }
func (p *program) VertexSource() string   { return p.vsSource }
func (p *program) FragmentSource() string { return p.fsSource }
func (p *program) VertexSPIRV() []byte    { return p.vsSPIRV }
func (p *program) FragmentSPIRV() []byte  { return p.fsSPIRV }
func (p *program) Paths() (string, string) {
	return p.vsPath, p.fsPath
}

// registry is the implementation of the Registry interface.
type registry struct {
	programs map[string]*program

	hotReloadEnabled bool
	reloadCallback   func(name string)
}

// Registry loads, caches, and hot-reloads shader programs by name.
//
// The registry is frame-synchronous: CheckForUpdates is expected to be called
// from the frame loop, never concurrently with loads.
type Registry interface {
	// LoadProgram reads and compiles a vertex + fragment WGSL pair from disk and
	// registers it under the given name. Loading a name that already exists logs
	// a warning and returns the existing program without recompiling.
	//
	// Parameters:
	//   - name: the unique program name
	//   - vsPath: path to the vertex stage WGSL file
	//   - fsPath: path to the fragment stage WGSL file
	//
	// Returns:
	//   - Program: the loaded (or previously registered) program
	//   - error: a file read error, or ErrCompile with the compiler diagnostic
	LoadProgram(name, vsPath, fsPath string) (Program, error)

	// LoadProgramSource compiles a vertex + fragment WGSL pair from in-memory
	// sources and registers it under the given name. Programs loaded this way
	// have no file paths and are excluded from hot reload.
	//
	// Parameters:
	//   - name: the unique program name
	//   - vsSource: the vertex stage WGSL source
	//   - fsSource: the fragment stage WGSL source
	//
	// Returns:
	//   - Program: the loaded (or previously registered) program
	//   - error: ErrCompile with the compiler diagnostic on failure
	LoadProgramSource(name, vsSource, fsSource string) (Program, error)

	// Program retrieves a registered program by name.
	//
	// Parameters:
	//   - name: the program name
	//
	// Returns:
	//   - Program: the program, or nil if not registered
	Program(name string) Program

	// SetReloadCallback registers the function invoked with a program's name
	// after that program is successfully hot-reloaded.
	//
	// Parameters:
	//   - callback: function receiving the reloaded program name (nil to disable)
	SetReloadCallback(callback func(name string))

	// HotReloadEnabled reports whether source file timestamps are checked for changes.
	//
	// Returns:
	//   - bool: true if hot reload is enabled
	HotReloadEnabled() bool

	// EnableHotReload enables or disables hot reload.
	//
	// Parameters:
	//   - enable: true to check source timestamps in CheckForUpdates
	EnableHotReload(enable bool)

	// CheckForUpdates re-stats every file-backed program's sources and
	// recompiles programs whose files changed. Both stages are compiled before
	// the program is swapped; a failed compile leaves the previous program
	// active. The reload callback fires once per successfully reloaded program.
	// No-op when hot reload is disabled.
	CheckForUpdates()

	// ReleaseAll removes every registered program.
	ReleaseAll()
}

var _ Registry = &registry{}

// NewRegistry creates a new shader program Registry with the specified options applied.
//
// Parameters:
//   - options: variadic list of RegistryBuilderOption functions to configure the registry
//
// Returns:
//   - Registry: a new Registry instance
func NewRegistry(options ...RegistryBuilderOption) Registry {
	r := &registry{
		programs: make(map[string]*program),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) LoadProgram(name, vsPath, fsPath string) (Program, error) {
	if existing, ok := r.programs[name]; ok {
		log.Printf("[Shader] program %q already loaded, returning existing", name)
		return existing, nil
	}

	vsSource, err := os.ReadFile(vsPath)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read vertex source %s: %w", vsPath, err)
	}
	fsSource, err := os.ReadFile(fsPath)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read fragment source %s: %w", fsPath, err)
	}

	vsSPIRV, err := compileStage(string(vsSource))
	if err != nil {
		return nil, fmt.Errorf("%s (vertex stage %s): %w", name, vsPath, err)
	}
	fsSPIRV, err := compileStage(string(fsSource))
	if err != nil {
		return nil, fmt.Errorf("%s (fragment stage %s): %w", name, fsPath, err)
	}

	p := &program{
		name:     name,
		vsPath:   vsPath,
		fsPath:   fsPath,
		vsSource: string(vsSource),
		fsSource: string(fsSource),
		vsSPIRV:  vsSPIRV,
		fsSPIRV:  fsSPIRV,
	}
	p.vsModTime = modTime(vsPath)
	p.fsModTime = modTime(fsPath)

	r.programs[name] = p
	return p, nil
}

func (r *registry) LoadProgramSource(name, vsSource, fsSource string) (Program, error) {
	if existing, ok := r.programs[name]; ok {
		log.Printf("[Shader] program %q already loaded, returning existing", name)
		return existing, nil
	}

	vsSPIRV, err := compileStage(vsSource)
	if err != nil {
		return nil, fmt.Errorf("%s (vertex stage): %w", name, err)
	}
	fsSPIRV, err := compileStage(fsSource)
	if err != nil {
		return nil, fmt.Errorf("%s (fragment stage): %w", name, err)
	}

	p := &program{
		name:     name,
		vsSource: vsSource,
		fsSource: fsSource,
		vsSPIRV:  vsSPIRV,
		fsSPIRV:  fsSPIRV,
	}
	r.programs[name] = p
	return p, nil
}

func (r *registry) Program(name string) Program {
	p, ok := r.programs[name]
	if !ok {
		return nil
	}
	return p
}

func (r *registry) SetReloadCallback(callback func(name string)) {
	r.reloadCallback = callback
}

func (r *registry) HotReloadEnabled() bool {
	return r.hotReloadEnabled
}

func (r *registry) EnableHotReload(enable bool) {
	r.hotReloadEnabled = enable
}

func (r *registry) CheckForUpdates() {
	if !r.hotReloadEnabled {
		return
	}

	for name, p := range r.programs {
		if p.vsPath == "" || p.fsPath == "" {
			continue
		}

		vsTime := modTime(p.vsPath)
		fsTime := modTime(p.fsPath)
		if !vsTime.After(p.vsModTime) && !fsTime.After(p.fsModTime) {
			continue
		}

		if err := r.reloadProgram(p, vsTime, fsTime); err != nil {
			log.Printf("[Shader] hot reload of %q failed, keeping previous program: %v", name, err)
			continue
		}

		log.Printf("[Shader] reloaded program %q", name)
		if r.reloadCallback != nil {
			r.reloadCallback(name)
		}
	}
}

func (r *registry) ReleaseAll() {
	r.programs = make(map[string]*program)
}

// reloadProgram compiles both stages from the program's current files and
// swaps the compiled state only when both succeed.
func (r *registry) reloadProgram(p *program, vsTime, fsTime time.Time) error {
	vsSource, err := os.ReadFile(p.vsPath)
	if err != nil {
		return fmt.Errorf("failed to read vertex source %s: %w", p.vsPath, err)
	}
	fsSource, err := os.ReadFile(p.fsPath)
	if err != nil {
		return fmt.Errorf("failed to read fragment source %s: %w", p.fsPath, err)
	}

	vsSPIRV, err := compileStage(string(vsSource))
	if err != nil {
		return fmt.Errorf("vertex stage: %w", err)
	}
	fsSPIRV, err := compileStage(string(fsSource))
	if err != nil {
		return fmt.Errorf("fragment stage: %w", err)
	}

	p.vsSource = string(vsSource)
	p.fsSource = string(fsSource)
	p.vsSPIRV = vsSPIRV
	p.fsSPIRV = fsSPIRV
	p.vsModTime = vsTime
	p.fsModTime = fsTime
	return nil
}

// compileStage runs a WGSL source through the naga pipeline (parse, lower,
// validate, SPIR-V generation).
func compileStage(source string) ([]byte, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}
	return spirv, nil
}

// modTime returns the file's modification time, or the zero time if the file
// cannot be stat'd.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
