// Package availability determines the oldest release in which an API was
// available, by walking the host file systems back through the release
// history.
package availability

import (
	"fmt"

	"github.com/mwantia/docfs/branch"
)

type Kind string

const (
	// The API does not exist, not even on trunk
	NeverFound Kind = "never_found"
	// The API only exists on trunk
	TrunkOnly Kind = "trunk_only"
	// The API exists since Channel
	Since Kind = "since"
	// The API exists in the oldest retained release, so the real
	// introduction is older than the history
	PredatesHistory Kind = "predates_history"
)

// Availability is the resolved availability of one API.
type Availability struct {
	Kind    Kind               `json:"kind" cbor:"k"`
	Channel branch.ChannelInfo `json:"channel" cbor:"c"`
}

func (a Availability) String() string {
	switch a.Kind {
	case NeverFound:
		return "never found"
	case TrunkOnly:
		return "trunk only"
	case Since:
		if a.Channel.Channel == branch.Stable {
			return fmt.Sprintf("since stable %d", a.Channel.Version)
		}
		return fmt.Sprintf("since %s", a.Channel.Channel)
	case PredatesHistory:
		return fmt.Sprintf("since stable %d or earlier", a.Channel.Version)
	}
	return string(a.Kind)
}

// IsAvailable reports whether the API exists at all.
func (a Availability) IsAvailable() bool {
	return a.Kind != NeverFound
}
