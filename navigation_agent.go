package engine

import "github.com/go-gl/mathgl/mgl32"

type AgentState int

const (
	// AgentIdle means the agent has no target. It still avoids nearby agents.
	AgentIdle AgentState = iota
	// AgentReachedTarget means the reach condition is satisfied. The agent
	// resumes moving if the target moves or changes.
	AgentReachedTarget
	AgentReachedAnimationLink
	AgentUsingAnimationLink
	// AgentMoving means the agent has a path and is moving towards its
	// target.
	AgentMoving
	AgentNotOnNavMesh
	AgentTargetNotOnNavMesh
	// AgentNoPath means the agent has a target but no route to it.
	AgentNoPath
	AgentPaused
)

type ReachedConditionKind int

const (
	// ReachDistance: within a Euclidean distance of the target. Useful when
	// the target is surrounded by small obstacles that don't need to be
	// navigated around.
	ReachDistance ReachedConditionKind = iota
	// ReachVisibleAtDistance: within distance and with a straight line to
	// the target.
	ReachVisibleAtDistance
	// ReachStraightPathDistance: the walking distance along the path is
	// within the limit. Costlier, since the straight path is computed every
	// update.
	ReachStraightPathDistance
)

// TargetReachedCondition decides when an agent counts as having arrived.
// A nil Distance falls back to the agent's radius.
type TargetReachedCondition struct {
	Kind     ReachedConditionKind
	Distance *float32
}

func DistanceCondition(d *float32) TargetReachedCondition {
	return TargetReachedCondition{Kind: ReachDistance, Distance: d}
}

func VisibleAtDistanceCondition(d *float32) TargetReachedCondition {
	return TargetReachedCondition{Kind: ReachVisibleAtDistance, Distance: d}
}

func StraightPathDistanceCondition(d *float32) TargetReachedCondition {
	return TargetReachedCondition{Kind: ReachStraightPathDistance, Distance: d}
}

// NavigationAgent is the persisted steering agent. The navigation tick syncs
// it into the archipelago, steps the simulation, and writes position,
// velocity and state back.
type NavigationAgent struct {
	ID      uint64
	WorldID uint64

	// ExternalID optionally links the agent to an entity in another system.
	// Zero means unset.
	ExternalID uint64

	Position mgl32.Vec3
	Velocity mgl32.Vec3

	// CurrentTarget is the point to move towards; nil means idle. Paths are
	// reused for targets near each other, but swapping between two distant
	// targets every tick defeats the path cache.
	CurrentTarget *mgl32.Vec3

	State                  AgentState
	TargetReachedCondition TargetReachedCondition

	Radius float32
	// DesiredSpeed is the preferred speed; set it below MaxSpeed so the
	// agent can speed up to get out of another agent's way.
	DesiredSpeed float32
	MaxSpeed     float32

	// Paused agents are skipped for avoidance and path recomputation, but
	// their cached path stays consistent so they can resume.
	Paused bool
}

func NewNavigationAgent(worldID uint64, position mgl32.Vec3) NavigationAgent {
	return NavigationAgent{
		WorldID:                worldID,
		Position:               position,
		State:                  AgentIdle,
		TargetReachedCondition: DistanceCondition(nil),
		Radius:                 0.5,
		DesiredSpeed:           1.0,
		MaxSpeed:               2.0,
	}
}
