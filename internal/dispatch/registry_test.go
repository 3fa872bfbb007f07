package dispatch

import (
	"context"
	"reflect"
	"testing"
)

func nop(context.Context, []string) error { return nil }

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(
		Action{Name: "run", Handler: nop},
		Action{Name: "balance", Description: "print balance", Handler: nop},
	)

	a, ok := r.Lookup("balance")
	if !ok {
		t.Fatal("balance not found")
	}
	if a.Description != "print balance" {
		t.Errorf("Description = %q", a.Description)
	}
	if _, ok := r.Lookup("Balance"); ok {
		t.Error("lookup must be case-sensitive")
	}
	if _, ok := r.Lookup(""); ok {
		t.Error("empty name must not resolve")
	}
}

func TestRegistryNamesSortedAndCopied(t *testing.T) {
	r := NewRegistry(
		Action{Name: "run", Handler: nop},
		Action{Name: "balance", Handler: nop},
		Action{Name: "institutions", Handler: nop},
	)

	names := r.Names()
	if want := []string{"balance", "institutions", "run"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Names() = %v, want %v", names, want)
	}
	names[0] = "mutated"
	if r.Names()[0] != "balance" {
		t.Error("Names() must return a copy")
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	if acts := r.Actions(); acts[2].Name != "run" {
		t.Errorf("Actions() not sorted: %v", acts)
	}
}

func TestRegistryPanics(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
	}{
		{"duplicate", []Action{{Name: "dup", Handler: nop}, {Name: "dup", Handler: nop}}},
		{"empty name", []Action{{Name: "", Handler: nop}}},
		{"nil handler", []Action{{Name: "run"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Fatalf("expected panic")
				}
			}()
			NewRegistry(tt.actions...)
		})
	}
}
