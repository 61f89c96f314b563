package nn

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrClassExists   = errors.New("neuro class already registered")
	ErrClassNotFound = errors.New("neuro class not found")
)

// AnyInputs marks a class that accepts any number of inputs.
const AnyInputs = -1

// DefaultClass is used for neurons written without a class name.
const DefaultClass = "N"

// reservedChars cannot appear in class names because the genotype grammar
// uses them as delimiters.
const reservedChars = "_;:[]{}()^=,"

type Location int

const (
	LocationNone Location = iota
	LocationPart
	LocationJoint
)

func (l Location) String() string {
	switch l {
	case LocationPart:
		return "part"
	case LocationJoint:
		return "joint"
	default:
		return "none"
	}
}

// Class describes how a neuron type wants to be wired into a body.
type Class struct {
	Name         string
	Description  string
	PrefInputs   int
	PrefOutput   bool
	PrefLocation Location
}

func (c Class) AcceptsInputs() bool {
	return c.PrefInputs != 0
}

// InputCapacity reports whether a neuron of this class can take one more input.
func (c Class) InputCapacity(current int) bool {
	if c.PrefInputs == AnyInputs {
		return true
	}
	return current < c.PrefInputs
}

var classRegistry = struct {
	mu sync.RWMutex
	m  map[string]Class
}{
	m: make(map[string]Class),
}

func init() {
	initializeBuiltInClasses()
}

func initializeBuiltInClasses() {
	MustRegisterClass(Class{Name: DefaultClass, Description: "neuron", PrefInputs: AnyInputs, PrefOutput: true})
	MustRegisterClass(Class{Name: "*", Description: "constant", PrefInputs: 0, PrefOutput: true})
	MustRegisterClass(Class{Name: "Rnd", Description: "random noise", PrefInputs: 0, PrefOutput: true})
	MustRegisterClass(Class{Name: "Sin", Description: "sine generator", PrefInputs: 0, PrefOutput: true})
	MustRegisterClass(Class{Name: "Thr", Description: "threshold", PrefInputs: 1, PrefOutput: true})
	MustRegisterClass(Class{Name: "D", Description: "differentiate", PrefInputs: 1, PrefOutput: true})
	MustRegisterClass(Class{Name: "G", Description: "gyroscope", PrefInputs: 0, PrefOutput: true, PrefLocation: LocationJoint})
	MustRegisterClass(Class{Name: "Gpart", Description: "part gyroscope", PrefInputs: 0, PrefOutput: true, PrefLocation: LocationPart})
	MustRegisterClass(Class{Name: "T", Description: "touch", PrefInputs: 0, PrefOutput: true, PrefLocation: LocationPart})
	MustRegisterClass(Class{Name: "S", Description: "smell", PrefInputs: 0, PrefOutput: true, PrefLocation: LocationPart})
	MustRegisterClass(Class{Name: "|", Description: "bend muscle", PrefInputs: 1, PrefOutput: false, PrefLocation: LocationJoint})
	MustRegisterClass(Class{Name: "@", Description: "rotation muscle", PrefInputs: 1, PrefOutput: false, PrefLocation: LocationJoint})
}

func RegisterClass(c Class) error {
	if c.Name == "" {
		return errors.New("neuro class name is required")
	}
	if strings.ContainsAny(c.Name, reservedChars) {
		return fmt.Errorf("neuro class name %q contains a reserved character", c.Name)
	}
	if c.PrefInputs < AnyInputs {
		return fmt.Errorf("neuro class %s: preferred inputs must be >= %d", c.Name, AnyInputs)
	}

	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()

	if _, exists := classRegistry.m[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrClassExists, c.Name)
	}
	classRegistry.m[c.Name] = c
	return nil
}

func MustRegisterClass(c Class) {
	if err := RegisterClass(c); err != nil {
		panic(err)
	}
}

func GetClass(name string) (Class, error) {
	classRegistry.mu.RLock()
	c, ok := classRegistry.m[name]
	classRegistry.mu.RUnlock()
	if !ok {
		return Class{}, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return c, nil
}

// ListClasses returns every registered class sorted by name.
func ListClasses() []Class {
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()

	out := make([]Class, 0, len(classRegistry.m))
	for _, c := range classRegistry.m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resetClassRegistryForTests() {
	classRegistry.mu.Lock()
	classRegistry.m = make(map[string]Class)
	classRegistry.mu.Unlock()
	initializeBuiltInClasses()
}
