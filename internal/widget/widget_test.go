package widget

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/logging"
	"github.com/dshills/widgetbus/internal/message"
)

// recorder collects every string message it receives.
type recorder struct {
	got     []string
	updates int
}

func (r *recorder) Message(messages *message.Reader, ctx *Context) {
	for s := range message.Read[string](messages).All() {
		r.got = append(r.got, s)
		ctx.Node().SetText(s)
	}
}

func (r *recorder) Update(*Context) {
	r.updates++
}

func TestTree_AddLookupRemove(t *testing.T) {
	tree := NewTree(nil)

	a := tree.Add("label", nil)
	b := tree.Add("counter", &recorder{})

	if a.Entity() == b.Entity() {
		t.Fatal("nodes share an entity")
	}
	if e, ok := tree.Lookup("counter"); !ok || e != b.Entity() {
		t.Errorf("Lookup(counter) = %v, %v", e, ok)
	}
	if !tree.Store().Contains(a.Entity()) {
		t.Error("entity store does not contain node entity")
	}

	nodes := tree.Nodes()
	if len(nodes) != 2 || nodes[0] != a || nodes[1] != b {
		t.Errorf("Nodes() not in insertion order")
	}

	if !tree.Remove(a.Entity()) {
		t.Fatal("Remove() returned false")
	}
	if tree.Remove(a.Entity()) {
		t.Error("second Remove() returned true")
	}
	if _, ok := tree.Lookup("label"); ok {
		t.Error("removed node still resolvable by name")
	}
	if tree.Store().Contains(a.Entity()) {
		t.Error("removed entity still alive in store")
	}
	if tree.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tree.Len())
	}
}

func TestNode_SetText(t *testing.T) {
	tree := NewTree(nil)
	n := tree.Add("x", nil)

	if !n.Dirty() {
		t.Error("new node should be dirty")
	}
	n.ClearDirty()
	n.SetText("")
	if n.Dirty() {
		t.Error("unchanged text marked node dirty")
	}
	n.SetText("hi")
	if !n.Dirty() || n.Text() != "hi" {
		t.Errorf("SetText() did not apply: text=%q dirty=%v", n.Text(), n.Dirty())
	}
}

func TestDispatcher_DeliversAndDiscards(t *testing.T) {
	router := message.NewRouter(nil)
	tree := NewTree(nil)

	rec := &recorder{}
	withState := tree.Add("rec", rec)
	stateless := tree.Add("static", nil)
	orphan := entity.Entity(999)

	_ = message.Send(router, "one", withState.Entity())
	_ = message.Send(router, "two", withState.Entity())
	_ = message.Send(router, "ignored", stateless.Entity())
	_ = message.Send(router, "lost", orphan)

	d := NewDispatcher(router, tree, nil)
	res := d.Dispatch()

	if res.Delivered != 1 || res.Discarded != 2 || res.Panicked != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Total() != 3 {
		t.Errorf("Total() = %d, want 3", res.Total())
	}
	if strings.Join(rec.got, ",") != "one,two" {
		t.Errorf("state got %v, want [one two]", rec.got)
	}
	if withState.Text() != "two" {
		t.Errorf("node text = %q, want two", withState.Text())
	}
	if !router.IsEmpty() {
		t.Error("router not empty after dispatch")
	}

	stats := d.Stats()
	if stats.Passes != 1 || stats.Delivered != 1 || stats.Discarded != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestDispatcher_RemovedWidgetMessagesDiscarded(t *testing.T) {
	router := message.NewRouter(nil)
	tree := NewTree(nil)
	rec := &recorder{}
	n := tree.Add("rec", rec)

	_ = message.Send(router, "late", n.Entity())
	tree.Remove(n.Entity())

	res := NewDispatcher(router, tree, nil).Dispatch()
	if res.Discarded != 1 || len(rec.got) != 0 {
		t.Errorf("expected discard, got %+v and %v", res, rec.got)
	}
}

func TestDispatcher_StateSendsToSibling(t *testing.T) {
	router := message.NewRouter(nil)
	tree := NewTree(nil)

	target := &recorder{}
	tree.Add("target", target)
	tree.Add("relay", StateFunc(func(messages *message.Reader, ctx *Context) {
		e, ok := ctx.Lookup("target")
		if !ok {
			t.Error("Lookup(target) failed")
			return
		}
		for n := range message.Read[int](messages).All() {
			_ = message.Send(ctx.Router(), strings.Repeat("x", n), e)
		}
	}))

	relay, _ := tree.Lookup("relay")
	_ = message.Send(router, 3, relay)

	d := NewDispatcher(router, tree, nil)
	d.Dispatch()
	if len(target.got) != 0 {
		t.Fatal("message sent during a pass was delivered in the same pass")
	}

	d.Dispatch()
	if len(target.got) != 1 || target.got[0] != "xxx" {
		t.Errorf("target got %v, want [xxx]", target.got)
	}
}

func TestDispatcher_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: &buf})

	router := message.NewRouter(nil)
	tree := NewTree(nil)
	bad := tree.Add("bad", StateFunc(func(*message.Reader, *Context) {
		panic("boom")
	}))
	rec := &recorder{}
	good := tree.Add("good", rec)

	_ = message.Send(router, "x", bad.Entity())
	_ = message.Send(router, "y", good.Entity())

	res := NewDispatcher(router, tree, logger).Dispatch()
	if res.Panicked != 1 || res.Delivered != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(rec.got) != 1 {
		t.Error("panic in one state stopped the pass")
	}
	if !strings.Contains(buf.String(), "state panicked: boom") {
		t.Errorf("panic not logged: %q", buf.String())
	}
}

func TestDispatcher_PoisonedRouterIsFatal(t *testing.T) {
	router := message.NewRouter(nil)
	tree := NewTree(nil)
	w := tree.Add("sender", StateFunc(func(*message.Reader, *Context) {
		panic(&message.PoisonedError{Op: "enqueue"})
	}))
	_ = message.Send(router, "x", w.Entity())

	d := NewDispatcher(router, tree, logging.Nop())
	defer func() {
		v := recover()
		err, ok := v.(error)
		if !ok || !errors.Is(err, message.ErrRouterPoisoned) {
			t.Fatalf("expected ErrRouterPoisoned panic, got %v", v)
		}
		if d.Stats().Panicked != 0 {
			t.Errorf("poisoned router counted as a state panic")
		}
	}()
	d.Dispatch()
	t.Fatal("Dispatch returned after a poisoned router")
}

func TestDispatcher_Update(t *testing.T) {
	tree := NewTree(nil)
	rec := &recorder{}
	tree.Add("rec", rec)
	tree.Add("plain", StateFunc(func(*message.Reader, *Context) {}))

	d := NewDispatcher(message.NewRouter(nil), tree, nil)
	d.Update()
	d.Update()

	if rec.updates != 2 {
		t.Errorf("updates = %d, want 2", rec.updates)
	}
}
