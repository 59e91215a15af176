package symtab

import "testing"

func TestAddAndLookupWithinScope(t *testing.T) {
	tab := New()
	tab.Enter()
	if !tab.Add("x", &Info{Kind: KindConstant, Value: 42}) {
		t.Fatal("expected first Add of x to succeed")
	}
	info, ok := tab.Lookup("x")
	if !ok {
		t.Fatal("expected to find x")
	}
	if info.Kind != KindConstant || info.Value != 42 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestAddDuplicateInSameScopeFails(t *testing.T) {
	tab := New()
	tab.Enter()
	tab.Add("x", &Info{Kind: KindConstant, Value: 1})
	if tab.Add("x", &Info{Kind: KindConstant, Value: 2}) {
		t.Fatal("expected duplicate Add to fail")
	}
}

func TestInnerShadowsOuter(t *testing.T) {
	tab := New()
	tab.Enter()
	tab.Add("x", &Info{Kind: KindConstant, Value: 1})
	tab.Enter()
	tab.Add("x", &Info{Kind: KindConstant, Value: 2})

	info, _ := tab.Lookup("x")
	if info.Value != 2 {
		t.Fatalf("expected inner binding (2), got %d", info.Value)
	}

	tab.Leave()
	info, _ = tab.Lookup("x")
	if info.Value != 1 {
		t.Fatalf("expected outer binding (1) after Leave, got %d", info.Value)
	}
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	tab := New()
	tab.Enter()
	if _, ok := tab.Lookup("nope"); ok {
		t.Fatal("expected Lookup of unbound name to fail")
	}
}

func TestUniqueNameFormat(t *testing.T) {
	tab := New()
	tab.Enter() // scope_id 0

	n1 := tab.UniqueName("x")
	n2 := tab.UniqueName("x")
	if n1 == n2 {
		t.Fatalf("expected distinct names, got %q twice", n1)
	}
	if n1 != "@x_0_1" {
		t.Errorf("expected @x_0_1, got %q", n1)
	}
	if n2 != "@x_0_2" {
		t.Errorf("expected @x_0_2, got %q", n2)
	}
}

func TestUniqueNameScopeIDIncrementsWithDepth(t *testing.T) {
	tab := New()
	tab.Enter() // id 0
	tab.Enter() // id 1
	got := tab.UniqueName("y")
	if got != "@y_1_1" {
		t.Errorf("expected @y_1_1, got %q", got)
	}
}

func TestLeaveOnEmptyTablePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Leave with no active scope")
		}
	}()
	New().Leave()
}

func TestPopulateLibraryScope(t *testing.T) {
	tab := New()
	tab.Enter()
	PopulateLibraryScope(tab)

	for _, fn := range LibraryFunctions {
		info, ok := tab.Lookup(fn.Name)
		if !ok {
			t.Fatalf("expected library function %q to be bound", fn.Name)
		}
		if info.Kind != KindFunction {
			t.Errorf("%q: expected KindFunction, got %v", fn.Name, info.Kind)
		}
		if info.RetType != fn.RetType {
			t.Errorf("%q: expected ret type %q, got %q", fn.Name, fn.RetType, info.RetType)
		}
	}
}

func TestDepthTracksEnterLeave(t *testing.T) {
	tab := New()
	if tab.Depth() != 0 {
		t.Fatalf("expected depth 0, got %d", tab.Depth())
	}
	tab.Enter()
	tab.Enter()
	if tab.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", tab.Depth())
	}
	tab.Leave()
	if tab.Depth() != 1 {
		t.Fatalf("expected depth 1, got %d", tab.Depth())
	}
}
