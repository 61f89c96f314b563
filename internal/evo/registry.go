package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"fsgeno/internal/model"
)

const (
	SupportedSchemaVersion = model.CurrentSchemaVersion
	SupportedCodecVersion  = model.CurrentCodecVersion
)

var (
	ErrOperatorExists   = errors.New("operator already registered")
	ErrOperatorNotFound = errors.New("operator not found")
	ErrVersionMismatch  = errors.New("operator version mismatch")
)

// Factory builds an operator bound to env.
type Factory func(env *Env) Operator

type OperatorSpec struct {
	Name          string
	Factory       Factory
	SchemaVersion int
	CodecVersion  int
}

type registeredOperator struct {
	factory       Factory
	schemaVersion int
	codecVersion  int
}

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredOperator
}{
	m: builtinOperators(),
}

func builtinOperators() map[string]registeredOperator {
	factories := map[string]Factory{
		OpAddPart:               func(env *Env) Operator { return &AddPart{Env: env} },
		OpRemovePart:            func(env *Env) Operator { return &RemovePart{Env: env} },
		OpChangePartType:        func(env *Env) Operator { return &ChangePartType{Env: env} },
		OpChangeJoint:           func(env *Env) Operator { return &ChangeJoint{Env: env} },
		OpAddParam:              func(env *Env) Operator { return &AddParam{Env: env} },
		OpRemoveParam:           func(env *Env) Operator { return &RemoveParam{Env: env} },
		OpChangeParam:           func(env *Env) Operator { return &ChangeParam{Env: env} },
		OpChangeModifier:        func(env *Env) Operator { return &ChangeModifier{Env: env} },
		OpAddNeuron:             func(env *Env) Operator { return &AddNeuron{Env: env} },
		OpRemoveNeuron:          func(env *Env) Operator { return &RemoveNeuron{Env: env} },
		OpChangeNeuroConnection: func(env *Env) Operator { return &ChangeNeuroConnection{Env: env} },
		OpAddNeuroConnection:    func(env *Env) Operator { return &AddNeuroConnection{Env: env} },
		OpRemoveNeuroConnection: func(env *Env) Operator { return &RemoveNeuroConnection{Env: env} },
		OpChangeNeuroParam:      func(env *Env) Operator { return &ChangeNeuroParam{Env: env} },
	}
	m := make(map[string]registeredOperator, len(factories))
	for name, f := range factories {
		m[name] = registeredOperator{
			factory:       f,
			schemaVersion: SupportedSchemaVersion,
			codecVersion:  SupportedCodecVersion,
		}
	}
	return m
}

// RegisterOperator registers an operator factory with default schema and codec versions.
func RegisterOperator(name string, f Factory) error {
	return RegisterOperatorWithSpec(OperatorSpec{
		Name:          name,
		Factory:       f,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

// RegisterOperatorWithSpec registers an operator factory with explicit versioning.
func RegisterOperatorWithSpec(spec OperatorSpec) error {
	if spec.Name == "" {
		return errors.New("operator name is required")
	}
	if spec.Factory == nil {
		return errors.New("operator factory is required")
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, spec.SchemaVersion, spec.CodecVersion)
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, spec.Name)
	}
	operatorRegistry.m[spec.Name] = registeredOperator{
		factory:       spec.Factory,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
	}
	return nil
}

// NewOperator builds the named operator bound to env.
func NewOperator(name string, env *Env) (Operator, error) {
	operatorRegistry.mu.RLock()
	entry, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return entry.factory(env), nil
}

// ResolveOperator builds the named operator only if the stored record was
// written with the versions the operator was registered for.
func ResolveOperator(name string, env *Env, record model.VersionedRecord) (Operator, error) {
	operatorRegistry.mu.RLock()
	entry, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	if record.SchemaVersion != entry.schemaVersion || record.CodecVersion != entry.codecVersion {
		return nil, fmt.Errorf("%w: operator=%s expected(schema=%d codec=%d) got(schema=%d codec=%d)",
			ErrVersionMismatch,
			name,
			entry.schemaVersion,
			entry.codecVersion,
			record.SchemaVersion,
			record.CodecVersion,
		)
	}
	return entry.factory(env), nil
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()
	operatorRegistry.m = builtinOperators()
}
