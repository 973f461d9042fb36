// Package registry maps plugin names to the constructors of the strategies a study is assembled
// from. Registries are plain values; a study builds its plugins from the registry it is given.
package registry

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/reach/logging"
	"go.viam.com/reach/plugins"
)

// Attributes are the free-form settings of a configured plugin.
type Attributes map[string]interface{}

// Env is what a constructor may depend on besides its attributes.
type Env struct {
	// SearchPath lists the directories relative file attributes are resolved against, in order.
	SearchPath []string
	Logger     logging.Logger
}

// ResolveFile returns the path of a file named by an attribute. Absolute paths are returned as is;
// relative ones are looked up in each search path directory and then the working directory.
func (env Env) ResolveFile(name string) (string, error) {
	if name == "" {
		return "", errors.New("empty file name")
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	for _, dir := range env.SearchPath {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	return "", errors.Errorf("file %q not found in search path [%s]", name, strings.Join(env.SearchPath, ", "))
}

type (
	// A CreateIKSolver creates an IK solver from its attributes.
	CreateIKSolver func(env Env, attrs Attributes) (plugins.IKSolver, error)

	// A CreateEvaluator creates an evaluator from its attributes.
	CreateEvaluator func(env Env, attrs Attributes) (plugins.Evaluator, error)

	// A CreateTargetPoseGenerator creates a target pose generator from its attributes.
	CreateTargetPoseGenerator func(env Env, attrs Attributes) (plugins.TargetPoseGenerator, error)

	// A CreateDisplay creates a display from its attributes.
	CreateDisplay func(env Env, attrs Attributes) (plugins.Display, error)

	// A CreateLogger creates a study logger from its attributes.
	CreateLogger func(env Env, attrs Attributes) (plugins.Logger, error)
)

// Registry holds the constructors for each plugin kind. It is safe for concurrent use.
type Registry struct {
	mu             sync.RWMutex
	env            Env
	ikSolvers      map[string]CreateIKSolver
	evaluators     map[string]CreateEvaluator
	poseGenerators map[string]CreateTargetPoseGenerator
	displays       map[string]CreateDisplay
	loggers        map[string]CreateLogger
}

// New returns an empty registry whose constructors receive env.
func New(env Env) *Registry {
	if env.Logger == nil {
		env.Logger = logging.NewLogger("registry")
	}
	return &Registry{
		env:            env,
		ikSolvers:      map[string]CreateIKSolver{},
		evaluators:     map[string]CreateEvaluator{},
		poseGenerators: map[string]CreateTargetPoseGenerator{},
		displays:       map[string]CreateDisplay{},
		loggers:        map[string]CreateLogger{},
	}
}

// Env returns the environment passed to constructors.
func (r *Registry) Env() Env {
	return r.env
}

func register[T any](r *Registry, registry map[string]T, kind, name string, creator T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		panic(errors.Errorf("trying to register a %s with an empty name", kind))
	}
	if _, old := registry[name]; old {
		panic(errors.Errorf("trying to register two %ss with same name %s", kind, name))
	}
	registry[name] = creator
}

func lookup[T any](r *Registry, registry map[string]T, kind, name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	creator, ok := registry[name]
	if !ok {
		known := lo.Keys(registry)
		slices.Sort(known)
		return creator, errors.Errorf("no %s named %q; known: [%s]", kind, name, strings.Join(known, ", "))
	}
	return creator, nil
}

// RegisterIKSolver registers an IK solver name to a creator.
func (r *Registry) RegisterIKSolver(name string, creator CreateIKSolver) {
	register(r, r.ikSolvers, "ik solver", name, creator)
}

// RegisterEvaluator registers an evaluator name to a creator.
func (r *Registry) RegisterEvaluator(name string, creator CreateEvaluator) {
	register(r, r.evaluators, "evaluator", name, creator)
}

// RegisterTargetPoseGenerator registers a target pose generator name to a creator.
func (r *Registry) RegisterTargetPoseGenerator(name string, creator CreateTargetPoseGenerator) {
	register(r, r.poseGenerators, "target pose generator", name, creator)
}

// RegisterDisplay registers a display name to a creator.
func (r *Registry) RegisterDisplay(name string, creator CreateDisplay) {
	register(r, r.displays, "display", name, creator)
}

// RegisterLogger registers a study logger name to a creator.
func (r *Registry) RegisterLogger(name string, creator CreateLogger) {
	register(r, r.loggers, "logger", name, creator)
}

// IKSolver constructs the named IK solver.
func (r *Registry) IKSolver(name string, attrs Attributes) (plugins.IKSolver, error) {
	creator, err := lookup(r, r.ikSolvers, "ik solver", name)
	if err != nil {
		return nil, err
	}
	solver, err := creator(r.envFor("ik_solver."+name), attrs)
	return solver, errors.Wrapf(err, "failed to create ik solver %q", name)
}

// Evaluator constructs the named evaluator.
func (r *Registry) Evaluator(name string, attrs Attributes) (plugins.Evaluator, error) {
	creator, err := lookup(r, r.evaluators, "evaluator", name)
	if err != nil {
		return nil, err
	}
	evaluator, err := creator(r.envFor("evaluator."+name), attrs)
	return evaluator, errors.Wrapf(err, "failed to create evaluator %q", name)
}

// TargetPoseGenerator constructs the named target pose generator.
func (r *Registry) TargetPoseGenerator(name string, attrs Attributes) (plugins.TargetPoseGenerator, error) {
	creator, err := lookup(r, r.poseGenerators, "target pose generator", name)
	if err != nil {
		return nil, err
	}
	generator, err := creator(r.envFor("target_pose_generator."+name), attrs)
	return generator, errors.Wrapf(err, "failed to create target pose generator %q", name)
}

// Display constructs the named display.
func (r *Registry) Display(name string, attrs Attributes) (plugins.Display, error) {
	creator, err := lookup(r, r.displays, "display", name)
	if err != nil {
		return nil, err
	}
	display, err := creator(r.envFor("display."+name), attrs)
	return display, errors.Wrapf(err, "failed to create display %q", name)
}

// Logger constructs the named study logger.
func (r *Registry) Logger(name string, attrs Attributes) (plugins.Logger, error) {
	creator, err := lookup(r, r.loggers, "logger", name)
	if err != nil {
		return nil, err
	}
	logger, err := creator(r.envFor("logger."+name), attrs)
	return logger, errors.Wrapf(err, "failed to create logger %q", name)
}

func (r *Registry) envFor(subname string) Env {
	env := r.env
	env.Logger = env.Logger.Sublogger(subname)
	return env
}
