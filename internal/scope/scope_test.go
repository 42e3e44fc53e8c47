package scope

import (
	"testing"

	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/types"
)

func TestResolveFindsInnermostShadowingBinding(t *testing.T) {
	tbl := New()
	tbl.Declare(Binding{Name: "x", Kind: KindValue, Place: element.Place{Name: "x", SlicedType: types.U(8)}})

	tbl.Push()
	tbl.Declare(Binding{Name: "x", Kind: KindValue, Place: element.Place{Name: "x", SlicedType: types.U(32)}})

	b, ok := tbl.Resolve("x")
	if !ok {
		t.Fatalf("expected to resolve x")
	}
	if !types.Equal(b.Place.SlicedType, types.U(32)) {
		t.Fatalf("got %s, want u32 (inner shadowing binding)", b.Place.SlicedType)
	}

	tbl.Pop()
	b, ok = tbl.Resolve("x")
	if !ok {
		t.Fatalf("expected to resolve x after pop")
	}
	if !types.Equal(b.Place.SlicedType, types.U(8)) {
		t.Fatalf("got %s, want u8 (outer binding restored after pop)", b.Place.SlicedType)
	}
}

func TestResolveMissingNameFails(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Resolve("nope"); ok {
		t.Fatalf("expected resolve of undeclared name to fail")
	}
}

func TestPopRootPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic popping root scope")
		}
	}()
	New().Pop()
}

func TestDeclaredInCurrentOnlyChecksInnermostFrame(t *testing.T) {
	tbl := New()
	tbl.Declare(Binding{Name: "x", Kind: KindValue})
	tbl.Push()
	if tbl.DeclaredInCurrent("x") {
		t.Fatalf("x was declared in the outer scope, not the current one")
	}
	tbl.Declare(Binding{Name: "x", Kind: KindValue})
	if !tbl.DeclaredInCurrent("x") {
		t.Fatalf("expected x to be declared in the current scope")
	}
}

func TestResolvePlaceRejectsNonValueBinding(t *testing.T) {
	tbl := New()
	tbl.Declare(Binding{Name: "MyType", Kind: KindType})
	if _, ok := tbl.ResolvePlace("MyType"); ok {
		t.Fatalf("expected ResolvePlace to reject a type binding")
	}
}

func TestResolvePlaceInheritsMutabilityFromBaseBinding(t *testing.T) {
	tbl := New()
	tbl.Declare(Binding{
		Name:    "arr",
		Kind:    KindValue,
		Mutable: true,
		Place:   element.Place{Name: "arr", Mutable: true, SlicedType: types.Array{Element: types.U(8), Length: 4}},
	})
	p, ok := tbl.ResolvePlace("arr")
	if !ok {
		t.Fatalf("expected to resolve arr")
	}
	if !p.Mutable {
		t.Fatalf("expected place to inherit mutable=true from its base binding")
	}
}
