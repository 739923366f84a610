package engine

import (
	"sync"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/mExec/foundation/core/error"
)

// Tree links engines by identifier. Each engine has at most one parent and
// at most one active child.
type Tree struct {
	mu    sync.RWMutex
	nodes map[uuid.UUID]*treeNode
}

type treeNode struct {
	engine *Engine
	parent uuid.UUID
	child  uuid.UUID
}

// NewTree creates an empty tree
func NewTree() *Tree {
	return &Tree{nodes: make(map[uuid.UUID]*treeNode)}
}

func (t *Tree) add(e *Engine) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes[e.id] = &treeNode{engine: e}
}

// detach removes a finished engine and clears the links pointing to it
func (t *Tree) detach(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok {
		return
	}
	if p, ok := t.nodes[node.parent]; ok && p.child == id {
		p.child = uuid.Nil
	}
	if c, ok := t.nodes[node.child]; ok && c.parent == id {
		c.parent = uuid.Nil
	}
	delete(t.nodes, id)
}

// Len returns the number of live engines
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Get returns the engine with the given identifier
func (t *Tree) Get(id uuid.UUID) (*Engine, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.nodes[id]; ok {
		return n.engine, true
	}
	return nil, false
}

// Engines returns all live engines
func (t *Tree) Engines() []*Engine {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Engine, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n.engine)
	}
	return out
}

// SetChild links child below parent. A parent whose current child is
// still running cannot take another one.
func (t *Tree) SetChild(parent, child uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.nodes[parent]
	if !ok {
		return notInTree(parent)
	}
	c, ok := t.nodes[child]
	if !ok {
		return notInTree(child)
	}
	if parent == child || t.isAncestorLocked(child, parent) {
		return mdwerror.New("engine link would form a cycle").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("tree.SetChild")
	}
	if cur, ok := t.nodes[p.child]; ok && cur.engine.Status() != StatusPending && !cur.engine.Status().finished() {
		return mdwerror.New("engine already has a running child").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("tree.SetChild").
			WithDetail("child", p.child.String())
	}

	if old, ok := t.nodes[c.parent]; ok && old.child == child {
		old.child = uuid.Nil
	}
	p.child = child
	c.parent = parent
	return nil
}

// Child returns the child of id
func (t *Tree) Child(id uuid.UUID) (*Engine, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.nodes[id]; ok {
		if c, ok := t.nodes[n.child]; ok {
			return c.engine, true
		}
	}
	return nil, false
}

// Parent returns the parent of id
func (t *Tree) Parent(id uuid.UUID) (*Engine, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n, ok := t.nodes[id]; ok {
		if p, ok := t.nodes[n.parent]; ok {
			return p.engine, true
		}
	}
	return nil, false
}

// IsAncestor reports whether a is found walking up the parent links of b
func (t *Tree) IsAncestor(a, b uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isAncestorLocked(a, b)
}

func (t *Tree) isAncestorLocked(a, b uuid.UUID) bool {
	seen := make(map[uuid.UUID]bool)
	for n, ok := t.nodes[b]; ok && !seen[b]; n, ok = t.nodes[b] {
		seen[b] = true
		if n.parent == a && a != uuid.Nil {
			return true
		}
		b = n.parent
	}
	return false
}

// chain returns id followed by its descendants, child by child
func (t *Tree) chain(id uuid.UUID) []*Engine {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []*Engine
	seen := make(map[uuid.UUID]bool)
	for n, ok := t.nodes[id]; ok && !seen[id]; n, ok = t.nodes[id] {
		seen[id] = true
		out = append(out, n.engine)
		id = n.child
	}
	return out
}

func notInTree(id uuid.UUID) error {
	return mdwerror.New("engine not in tree").
		WithCode(mdwerror.CodeNotFound).
		WithOperation("tree.lookup").
		WithDetail("engine", id.String())
}

// SetChildScriptEngine makes child the child engine of e
func (e *Engine) SetChildScriptEngine(child *Engine) error {
	if child.tree != e.tree {
		return mdwerror.New("engines belong to different trees").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("engine.SetChildScriptEngine")
	}
	return e.tree.SetChild(e.id, child.id)
}

// GetChildScriptEngine returns the current child engine or nil
func (e *Engine) GetChildScriptEngine() *Engine {
	c, _ := e.tree.Child(e.id)
	return c
}

// GetParentScriptEngine returns the parent engine or nil
func (e *Engine) GetParentScriptEngine() *Engine {
	p, _ := e.tree.Parent(e.id)
	return p
}

// IsParentOf reports whether e is above other in the engine chain
func (e *Engine) IsParentOf(other *Engine) bool {
	return other != nil && e.tree.IsAncestor(e.id, other.id)
}

// IsChildOf reports whether e is below other in the engine chain
func (e *Engine) IsChildOf(other *Engine) bool {
	return other != nil && e.tree.IsAncestor(other.id, e.id)
}

// ChildProcessMustBreakAll kills the child process of e and of every
// engine below it
func (e *Engine) ChildProcessMustBreakAll() {
	for _, eng := range e.tree.chain(e.id) {
		eng.killChildProcess()
	}
}
