package host

import (
	"context"
	"testing"

	"github.com/dop251/goja"

	"github.com/rcpklmc/sn0int/internal/entity"
	"github.com/rcpklmc/sn0int/internal/modmeta"
)

func newTestWorkspace(t *testing.T) *entity.Workspace {
	t.Helper()
	ws, err := entity.OpenWorkspace(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open workspace: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestJSONRoundTrip(t *testing.T) {
	rt := goja.New()
	st := NewState(context.Background())
	BindJSON(rt, st)

	v, err := rt.RunString(`json_decode('{"a":1,"b":"two"}')`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	m, ok := v.Export().(map[string]interface{})
	if !ok || m["b"] != "two" {
		t.Fatalf("unexpected decode result: %#v", v.Export())
	}
	if st.Err() != nil {
		t.Fatalf("unexpected error slot: %v", st.Err())
	}

	_, err = rt.RunString(`json_decode('not json')`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if st.Err() == nil {
		t.Fatalf("expected error slot set after malformed decode")
	}
}

func TestHashFunctions(t *testing.T) {
	rt := goja.New()
	st := NewState(context.Background())
	BindHash(rt, st)

	v, err := rt.RunString(`sha256('abc')`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if v.String() != want {
		t.Fatalf("got %q want %q", v.String(), want)
	}
}

func TestKeyringDeniedWithoutAccess(t *testing.T) {
	rt := goja.New()
	st := NewState(context.Background())
	st.Metadata = &modmeta.Metadata{KeyringAccess: []string{"shodan"}}
	BindKeyring(rt, st)

	v, err := rt.RunString(`keyring('hunter')`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !goja.IsNull(v) && !goja.IsUndefined(v) {
		t.Fatalf("expected null/undefined result for denied namespace, got %v", v)
	}
	if st.Err() == nil {
		t.Fatalf("expected KeyringDenied in error slot")
	}
}

func TestDBInsertAndSelectRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)
	ctx := context.Background()
	tx, err := ws.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	rt := goja.New()
	st := NewState(ctx)
	st.Tx = tx
	BindDB(rt, st)

	id, err := rt.RunString(`db_insert('domain', {value: 'example.com'})`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if id.ToInteger() == 0 {
		t.Fatalf("expected nonzero id, got %v", id)
	}

	found, err := rt.RunString(`db_select('domain', 'example.com')`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if goja.IsNull(found) || goja.IsUndefined(found) {
		t.Fatalf("expected db_select to find the inserted row")
	}

	missing, err := rt.RunString(`db_select('domain', 'nope.example.com')`)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !goja.IsNull(missing) && !goja.IsUndefined(missing) {
		t.Fatalf("expected null for a missing row, got %v", missing)
	}
}
