package provision

import "fmt"

// HealthGateError reports a degraded cluster between rollout steps. It
// is a soft failure: the workflow surfaces it through the confirm
// policy instead of aborting outright.
type HealthGateError struct {
	// Node is the node whose step exposed the degradation.
	Node string

	// NotReady lists node names that are not Ready.
	NotReady []string

	// Unhealthy lists pods that are not running or completed.
	Unhealthy []string
}

func (e *HealthGateError) Error() string {
	return fmt.Sprintf("cluster degraded after %s: %d node(s) not ready, %d pod(s) unhealthy",
		e.Node, len(e.NotReady), len(e.Unhealthy))
}
