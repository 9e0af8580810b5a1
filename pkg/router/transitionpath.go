package router

import (
	"reflect"

	"github.com/signpost-dev/signpost/pkg/routetree"
)

// TransitionPath describes which segments a transition leaves and
// enters. ToDeactivate is ordered child to parent, ToActivate parent to
// child; the common ancestor appears in neither.
type TransitionPath struct {
	ToDeactivate []*routetree.Node
	ToActivate   []*routetree.Node

	// Intersection is the deepest shared segment chain, root-side first.
	Intersection []*routetree.Node
}

// getTransitionPath computes the segment diff between the current and
// requested states. A shared ancestor whose own parameters changed is
// reactivated: it moves out of the intersection into both lists, along
// with everything below it.
func getTransitionPath(tree *routetree.Tree, to, from *State, opts NavigateOptions) (*TransitionPath, error) {
	toNode := tree.Get(to.Name)
	if toNode == nil && to.Name != UnknownRouteName {
		return nil, newError(CodeRouteNotFound, "no route named %q", to.Name)
	}

	var toChain []*routetree.Node
	if toNode != nil {
		toChain = toNode.Chain()
	}

	var fromChain []*routetree.Node
	if from != nil {
		if fromNode := tree.Get(from.Name); fromNode != nil {
			fromChain = fromNode.Chain()
		}
	}

	// Longest common prefix of the two chains.
	shared := 0
	for shared < len(toChain) && shared < len(fromChain) && toChain[shared] == fromChain[shared] {
		shared++
	}

	// Reload re-enters the whole chain. Otherwise a shared segment stays
	// in the intersection only while its own parameters are unchanged.
	if opts.Reload {
		shared = 0
	} else {
		for i := 0; i < shared; i++ {
			if !sameSegmentParams(toChain[i], to, from) {
				shared = i
				break
			}
		}
	}

	tp := &TransitionPath{Intersection: toChain[:shared]}

	for i := len(fromChain) - 1; i >= shared; i-- {
		tp.ToDeactivate = append(tp.ToDeactivate, fromChain[i])
	}
	tp.ToActivate = append(tp.ToActivate, toChain[shared:]...)
	return tp, nil
}

// sameSegmentParams reports whether every parameter declared by the
// segment's own pattern has the same value in both states.
func sameSegmentParams(node *routetree.Node, to, from *State) bool {
	if from == nil {
		return false
	}
	for name := range node.ParamKinds() {
		if !reflect.DeepEqual(to.Params[name], from.Params[name]) {
			return false
		}
	}
	return true
}
