package engine

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Status is the tri-state result of evaluating a behavior node.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFailure:
		return "Failure"
	case StatusRunning:
		return "Running"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Node tags of the wire format. Stable across versions; decoding any other
// tag is fatal.
const (
	nodeAction uint8 = iota
	nodeSequence
	nodeSelect
	nodeIf
	nodeFail
	nodeAlwaysSucceed
)

// Behavior is one node of a behavior tree over user-defined action payloads.
// Trees are immutable once built; all per-entity execution memory lives on
// the executor.
type Behavior[T any] struct {
	kind     uint8
	action   T
	children []*Behavior[T]
	cond     *Behavior[T]
	then     *Behavior[T]
	els      *Behavior[T]
	child    *Behavior[T]
}

// Action delegates to the executor's RunAction.
func Action[T any](action T) *Behavior[T] {
	return &Behavior[T]{kind: nodeAction, action: action}
}

// Sequence runs children left to right, short-circuiting on the first
// Failure or Running.
func Sequence[T any](children ...*Behavior[T]) *Behavior[T] {
	return &Behavior[T]{kind: nodeSequence, children: children}
}

// Select runs children left to right, short-circuiting on the first Success
// or Running.
func Select[T any](children ...*Behavior[T]) *Behavior[T] {
	return &Behavior[T]{kind: nodeSelect, children: children}
}

// If evaluates cond and then runs exactly one branch. A Running condition
// runs the else branch.
func If[T any](cond, then, els *Behavior[T]) *Behavior[T] {
	return &Behavior[T]{kind: nodeIf, cond: cond, then: then, els: els}
}

// Fail swaps Success and Failure; Running passes through.
func Fail[T any](child *Behavior[T]) *Behavior[T] {
	return &Behavior[T]{kind: nodeFail, child: child}
}

// AlwaysSucceed converts Failure to Success; Running passes through.
func AlwaysSucceed[T any](child *Behavior[T]) *Behavior[T] {
	return &Behavior[T]{kind: nodeAlwaysSucceed, child: child}
}

// EncodeBehavior serializes the tree into the tagged wire format.
func EncodeBehavior[T any](b *Behavior[T]) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeNode(enc, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode[T any](enc *msgpack.Encoder, b *Behavior[T]) error {
	if err := enc.EncodeUint8(b.kind); err != nil {
		return err
	}
	switch b.kind {
	case nodeAction:
		return enc.Encode(b.action)
	case nodeSequence, nodeSelect:
		if err := enc.EncodeInt(int64(len(b.children))); err != nil {
			return err
		}
		for _, child := range b.children {
			if err := encodeNode(enc, child); err != nil {
				return err
			}
		}
		return nil
	case nodeIf:
		for _, node := range []*Behavior[T]{b.cond, b.then, b.els} {
			if err := encodeNode(enc, node); err != nil {
				return err
			}
		}
		return nil
	case nodeFail, nodeAlwaysSucceed:
		return encodeNode(enc, b.child)
	}
	return fmt.Errorf("encode behavior: unknown node kind %d", b.kind)
}

// DecodeBehavior parses the tagged wire format back into a tree. Unknown
// tags fail decoding.
func DecodeBehavior[T any](data []byte) (*Behavior[T], error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	return decodeNode[T](dec)
}

func decodeNode[T any](dec *msgpack.Decoder) (*Behavior[T], error) {
	kind, err := dec.DecodeUint8()
	if err != nil {
		return nil, fmt.Errorf("decode behavior: %w", err)
	}
	switch kind {
	case nodeAction:
		var action T
		if err := dec.Decode(&action); err != nil {
			return nil, fmt.Errorf("decode behavior action: %w", err)
		}
		return Action(action), nil
	case nodeSequence, nodeSelect:
		count, err := dec.DecodeInt()
		if err != nil {
			return nil, fmt.Errorf("decode behavior: %w", err)
		}
		children := make([]*Behavior[T], count)
		for i := range children {
			if children[i], err = decodeNode[T](dec); err != nil {
				return nil, err
			}
		}
		return &Behavior[T]{kind: kind, children: children}, nil
	case nodeIf:
		cond, err := decodeNode[T](dec)
		if err != nil {
			return nil, err
		}
		then, err := decodeNode[T](dec)
		if err != nil {
			return nil, err
		}
		els, err := decodeNode[T](dec)
		if err != nil {
			return nil, err
		}
		return If(cond, then, els), nil
	case nodeFail, nodeAlwaysSucceed:
		child, err := decodeNode[T](dec)
		if err != nil {
			return nil, err
		}
		return &Behavior[T]{kind: kind, child: child}, nil
	}
	return nil, fmt.Errorf("decode behavior: unknown node tag %d", kind)
}

// BehaviorTree is the persisted, serialized tree. Global, not world-scoped.
type BehaviorTree struct {
	ID   uint64
	Data []byte
}

// CreateBehaviorTree encodes the tree and inserts it.
func CreateBehaviorTree[T any](ctx *Context, b *Behavior[T]) BehaviorTree {
	data, err := EncodeBehavior(b)
	if err != nil {
		panic(fmt.Sprintf("serialize behavior tree: %v", err))
	}
	return ctx.Db.BehaviorTrees.Insert(BehaviorTree{Data: data})
}

// LoadBehaviorTree decodes the stored tree with the given action type.
func LoadBehaviorTree[T any](row BehaviorTree) (*Behavior[T], error) {
	return DecodeBehavior[T](row.Data)
}

// BehaviorExecutor runs action payloads for one entity. The executor holds
// all per-entity memory; the tree itself is stateless.
type BehaviorExecutor[T any] interface {
	RunAction(ctx *Context, world *World, deltaTime float32, action T) Status
}

// TickBehavior decodes the tree once and evaluates it against every
// executor.
func TickBehavior[T any, E BehaviorExecutor[T]](ctx *Context, world *World, treeID uint64, deltaTime float32, executors []E) {
	sw := NewLogStopwatch(ctx, world, "behavior_tick", world.DebugBehavior)
	defer sw.End()

	sw.Span("decode_tree")
	row, ok := ctx.Db.BehaviorTrees.Find(treeID)
	if !ok {
		panic(fmt.Sprintf("behavior tree %d not found", treeID))
	}
	behavior, err := LoadBehaviorTree[T](row)
	if err != nil {
		panic(err)
	}

	sw.Span("run_executors")
	for i := range executors {
		RunBehavior(ctx, world, deltaTime, behavior, executors[i])
	}
}

// RunBehavior evaluates the tree against one executor and returns the root
// status.
func RunBehavior[T any](ctx *Context, world *World, deltaTime float32, b *Behavior[T], exec BehaviorExecutor[T]) Status {
	switch b.kind {
	case nodeAction:
		return exec.RunAction(ctx, world, deltaTime, b.action)

	case nodeSequence:
		for _, child := range b.children {
			if status := RunBehavior(ctx, world, deltaTime, child, exec); status != StatusSuccess {
				return status
			}
		}
		return StatusSuccess

	case nodeSelect:
		for _, child := range b.children {
			if status := RunBehavior(ctx, world, deltaTime, child, exec); status != StatusFailure {
				return status
			}
		}
		return StatusFailure

	case nodeIf:
		if RunBehavior(ctx, world, deltaTime, b.cond, exec) == StatusSuccess {
			return RunBehavior(ctx, world, deltaTime, b.then, exec)
		}
		return RunBehavior(ctx, world, deltaTime, b.els, exec)

	case nodeFail:
		switch RunBehavior(ctx, world, deltaTime, b.child, exec) {
		case StatusSuccess:
			return StatusFailure
		case StatusFailure:
			return StatusSuccess
		default:
			return StatusRunning
		}

	case nodeAlwaysSucceed:
		if RunBehavior(ctx, world, deltaTime, b.child, exec) == StatusRunning {
			return StatusRunning
		}
		return StatusSuccess
	}

	panic(fmt.Sprintf("unsupported behavior node kind %d", b.kind))
}
