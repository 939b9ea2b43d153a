package runtime

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestNewSymTab(t *testing.T) {
	symtab := NewSymbolTable()
	if symtab == nil {
		t.Error("no symbol table created")
	}
}

func TestNewSymbol(t *testing.T) {
	symtab := NewSymbolTable()
	sym, _ := symtab.DefineTag("new-sym")
	if sym == nil {
		t.Error("no symbol created for table")
	}
	sym.Value = 5
	if sym.Value != 5 {
		t.Errorf("Value does not work")
	}
}

func TestTwoSymbolsDistinctId(t *testing.T) {
	symtab := NewSymbolTable()
	sym1, _ := symtab.DefineTag("new-sym1")
	sym2, _ := symtab.DefineTag("new-sym2")
	if sym1 == sym2 {
		t.Error("2 symbols with equal name")
	}
}

func TestResolveOrDefineTag(t *testing.T) {
	symtab := NewSymbolTable()
	sym, _ := symtab.DefineTag("new-sym")
	if _, found := symtab.ResolveOrDefineTag(sym.Name()); !found {
		t.Error("cannot find stored symbol in table")
	}
	if _, found := symtab.ResolveOrDefineTag("other"); found {
		t.Error("fresh symbol reported as present")
	}
}

func TestDefineTagReplaces(t *testing.T) {
	symtab := NewSymbolTable()
	sym, _ := symtab.DefineTag("new-sym")
	if _, old := symtab.DefineTag("new-sym"); old != sym {
		t.Error("symbol should have been replaced")
	}
}

func TestEachKeepsDefinitionOrder(t *testing.T) {
	symtab := NewSymbolTable()
	for _, n := range []string{"c", "a", "b"} {
		symtab.DefineTag(n)
	}
	symtab.DefineTag("a") // redefinition keeps position
	var seen []string
	symtab.Each(func(k string, _ *Tag) { seen = append(seen, k) })
	if len(seen) != 3 || seen[0] != "c" || seen[1] != "a" || seen[2] != "b" {
		t.Errorf("expected order [c a b], have %v", seen)
	}
}

func TestScopeUpsearch(t *testing.T) {
	scopep := NewScope("parent", nil)
	scope := NewScope("current", scopep)
	scopep.Define("new-sym", 7)
	sym, where := scope.ResolveTag("new-sym")
	if sym == nil {
		t.Fatal("symbol of parent scope not found")
	}
	if where != scopep || sym.Value != 7 {
		t.Errorf("symbol resolved in wrong scope %v", where)
	}
}

func TestScopeTreeCapture(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "ruffle.runtime")
	defer teardown()
	//
	tree := new(ScopeTree)
	tree.PushNewScope("global")
	tree.PushNewScope("package")
	cls := tree.PushNewScope("class")
	chain := tree.Capture()
	tree.PopScope()
	tree.PushNewScope("other")
	if chain.Innermost() != cls {
		t.Errorf("captured chain changed after scope tree moved on")
	}
	if chain.Depth() != 3 {
		t.Errorf("expected captured depth 3, have %d", chain.Depth())
	}
	if chain.String() != "[global > package > class]" {
		t.Errorf("unexpected chain %s", chain)
	}
}

func TestScopeChainWithShares(t *testing.T) {
	global := NewScope("global", nil)
	global.Define("x", "outer")
	chain := ChainFrom(global)
	c1, f1 := chain.With("call-1")
	c2, f2 := chain.With("call-2")
	f1.Define("x", "inner-1")
	f2.Define("y", 2)
	if tag, _ := c1.Resolve("x"); tag.Value != "inner-1" {
		t.Errorf("inner frame should shadow outer binding")
	}
	if tag, _ := c2.Resolve("x"); tag.Value != "outer" {
		t.Errorf("sibling frames must not see each other")
	}
	if tag, _ := chain.Resolve("y"); tag != nil {
		t.Errorf("captured chain must not see frames pushed later")
	}
	if c1.Get(0) != global || c1.Get(1) != f1 || c1.Get(2) != nil {
		t.Errorf("Get indexes from the outermost frame")
	}
	var empty ScopeChain
	if !empty.IsEmpty() || empty.Depth() != 0 {
		t.Errorf("zero chain should be empty")
	}
	if tag, _ := empty.Resolve("x"); tag != nil {
		t.Errorf("empty chain resolved a binding")
	}
}
