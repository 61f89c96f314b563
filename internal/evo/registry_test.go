package evo

import (
	"context"
	"errors"
	"testing"

	"fsgeno/internal/genotype"
	"fsgeno/internal/model"
)

type noopOperator struct{}

func (noopOperator) Name() string { return "noop" }

func (noopOperator) Apply(_ context.Context, g *genotype.Genotype) (*genotype.Genotype, error) {
	return g.Clone(), nil
}

func noopFactory(*Env) Operator { return noopOperator{} }

func currentVersions() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: SupportedSchemaVersion, CodecVersion: SupportedCodecVersion}
}

func TestBuiltinOperatorsAreRegistered(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	names := ListOperators()
	if len(names) != len(DefaultWeights) {
		t.Fatalf("expected %d operators, got %d: %v", len(DefaultWeights), len(names), names)
	}
	env := testEnv(1)
	for _, name := range names {
		op, err := NewOperator(name, env)
		if err != nil {
			t.Fatalf("new %s: %v", name, err)
		}
		if op.Name() != name {
			t.Fatalf("operator registered as %s reports %s", name, op.Name())
		}
	}
}

func TestRegisterAndResolveOperator(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterOperator("noop", noopFactory); err != nil {
		t.Fatalf("register: %v", err)
	}
	op, err := ResolveOperator("noop", testEnv(1), currentVersions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if op.Name() != "noop" {
		t.Fatalf("unexpected operator: %s", op.Name())
	}
}

func TestRegisterOperatorDuplicate(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterOperator(OpAddPart, noopFactory); !errors.Is(err, ErrOperatorExists) {
		t.Fatalf("expected ErrOperatorExists, got: %v", err)
	}
}

func TestRegisterOperatorValidation(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterOperator("", noopFactory); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := RegisterOperator("nil", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if err := RegisterOperatorWithSpec(OperatorSpec{
		Name:          "bad-version",
		Factory:       noopFactory,
		SchemaVersion: 99,
		CodecVersion:  1,
	}); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func TestResolveOperatorChecksRecordVersions(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	_, err := ResolveOperator(OpAddPart, testEnv(1), model.VersionedRecord{SchemaVersion: 2, CodecVersion: 1})
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
	_, err = ResolveOperator("missing", testEnv(1), currentVersions())
	if !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got: %v", err)
	}
	if _, err := NewOperator("missing", testEnv(1)); !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("expected ErrOperatorNotFound, got: %v", err)
	}
}

func TestResetRestoresBuiltins(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterOperator("noop", noopFactory); err != nil {
		t.Fatalf("register: %v", err)
	}
	resetOperatorRegistryForTests()
	if _, err := NewOperator("noop", testEnv(1)); !errors.Is(err, ErrOperatorNotFound) {
		t.Fatalf("expected noop to be gone, got: %v", err)
	}
	if _, err := NewOperator(OpChangeParam, testEnv(1)); err != nil {
		t.Fatalf("builtin missing after reset: %v", err)
	}
}
