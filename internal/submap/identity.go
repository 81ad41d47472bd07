// Package submap owns the live submap-slice cache: identities, the slice
// store, and the reconciler that keeps the store in sync with the mapping
// backend's submap-list notifications.
package submap

import "fmt"

// ID uniquely identifies a submap: the trajectory it belongs to and its
// index within that trajectory.
type ID struct {
	TrajectoryID int
	SubmapIndex  int
}

// Less provides the total lexicographic order used for deterministic
// set-difference operations.
func (id ID) Less(o ID) bool {
	if id.TrajectoryID != o.TrajectoryID {
		return id.TrajectoryID < o.TrajectoryID
	}
	return id.SubmapIndex < o.SubmapIndex
}

func (id ID) String() string {
	return fmt.Sprintf("(%d, %d)", id.TrajectoryID, id.SubmapIndex)
}
