// Package branch knows the release channels, their branch identifiers and
// the version history used to walk backwards through older releases.
package branch

import (
	"fmt"
	"math"
	"strings"

	"github.com/mwantia/docfs/data"
)

type Channel string

// Channels from newest to most stable.
const (
	Trunk  Channel = "trunk"
	Dev    Channel = "dev"
	Beta   Channel = "beta"
	Stable Channel = "stable"
)

// Channels lists all channels, newest first.
var Channels = []Channel{Trunk, Dev, Beta, Stable}

const (
	// TrunkBranch is the branch identifier of the trunk channel
	TrunkBranch = "trunk"
	// TrunkVersion orders trunk after every numbered version
	TrunkVersion = math.MaxInt
)

// ParseChannel parses a channel name. "canary" is accepted as trunk.
func ParseChannel(name string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trunk", "canary":
		return Trunk, nil
	case "dev":
		return Dev, nil
	case "beta":
		return Beta, nil
	case "stable":
		return Stable, nil
	}
	return "", fmt.Errorf("%w: '%s'", data.ErrUnknownChannel, name)
}

// rank orders channels newest first; unknown channels rank last.
func (c Channel) rank() int {
	for i, channel := range Channels {
		if channel == c {
			return i
		}
	}
	return len(Channels)
}

// IsNewerThan reports whether c receives changes before other.
func (c Channel) IsNewerThan(other Channel) bool {
	return c.rank() < other.rank()
}

// NewestChannel returns the newest of channels, or "" if none are given.
func NewestChannel(channels ...Channel) Channel {
	var newest Channel
	for _, channel := range channels {
		if channel == "" {
			continue
		}
		if newest == "" || channel.IsNewerThan(newest) {
			newest = channel
		}
	}
	return newest
}

// ChannelInfo identifies one step in the release history.
type ChannelInfo struct {
	Channel Channel `json:"channel" yaml:"channel" cbor:"c"`
	Branch  string  `json:"branch" yaml:"branch" cbor:"b"`
	Version int     `json:"version" yaml:"version" cbor:"v"`
}

func (ci ChannelInfo) IsTrunk() bool {
	return ci.Channel == Trunk
}

func (ci ChannelInfo) String() string {
	if ci.IsTrunk() {
		return string(Trunk)
	}
	return fmt.Sprintf("%s (branch %s, version %d)", ci.Channel, ci.Branch, ci.Version)
}

// Compare orders channel infos from oldest to newest. Equal versions are
// ordered by channel, so stable sorts before beta on the same version.
func Compare(a, b ChannelInfo) int {
	switch {
	case a.Version < b.Version:
		return -1
	case a.Version > b.Version:
		return 1
	}

	switch ar, br := a.Channel.rank(), b.Channel.rank(); {
	case ar > br:
		return -1
	case ar < br:
		return 1
	}
	return 0
}
