package branch

import (
	"fmt"
	"os"

	"github.com/mwantia/docfs/data"
	"github.com/tidwall/btree"
	"gopkg.in/yaml.v3"
)

// History is the serialized form of the branch data.
//
//	channels:
//	  dev: 31
//	  beta: 30
//	  stable: 29
//	branches:
//	  31: "1650"
//	  30: "1599"
type History struct {
	Channels map[Channel]int `yaml:"channels"`
	Branches map[int]string  `yaml:"branches"`
}

type position struct {
	channel Channel
	version int
}

// Utility answers channel, branch and version questions and walks the
// release history.
type Utility struct {
	branches *btree.Map[int, string]
	channels map[Channel]ChannelInfo

	// Every step from trunk down to the oldest stable version
	history []ChannelInfo
	index   map[position]int
}

// New validates h and precomputes the release history.
func New(h History) (*Utility, error) {
	u := &Utility{
		branches: btree.NewMap[int, string](0),
		channels: make(map[Channel]ChannelInfo, len(Channels)),
		index:    make(map[position]int),
	}

	for version, branch := range h.Branches {
		if version <= 0 || branch == "" {
			return nil, fmt.Errorf("%w: invalid branch %d: '%s'", data.ErrInvalidConfig, version, branch)
		}
		u.branches.Set(version, branch)
	}

	u.channels[Trunk] = ChannelInfo{Channel: Trunk, Branch: TrunkBranch, Version: TrunkVersion}

	previous := TrunkVersion
	for _, channel := range Channels[1:] {
		version, ok := h.Channels[channel]
		if !ok {
			return nil, fmt.Errorf("%w: missing version for channel '%s'", data.ErrInvalidConfig, channel)
		}

		branch, ok := u.branches.Get(version)
		if !ok {
			return nil, fmt.Errorf("%w: no branch for %s version %d", data.ErrInvalidConfig, channel, version)
		}

		if version > previous {
			return nil, fmt.Errorf("%w: %s version %d is newer than its predecessor", data.ErrInvalidConfig, channel, version)
		}
		previous = version

		u.channels[channel] = ChannelInfo{Channel: channel, Branch: branch, Version: version}
	}

	for _, channel := range Channels {
		u.append(u.channels[channel])
	}

	stable := u.channels[Stable].Version
	u.branches.Descend(stable-1, func(version int, branch string) bool {
		u.append(ChannelInfo{Channel: Stable, Branch: branch, Version: version})
		return true
	})

	return u, nil
}

// append adds info as the next older step. A channel on the same version as
// the previous step shares that step, so versions strictly decrease.
func (u *Utility) append(info ChannelInfo) {
	if n := len(u.history); n > 0 && u.history[n-1].Version == info.Version {
		u.index[position{info.Channel, info.Version}] = n - 1
		return
	}

	u.index[position{info.Channel, info.Version}] = len(u.history)
	u.history = append(u.history, info)
}

// Parse reads YAML branch data.
func Parse(raw []byte) (*Utility, error) {
	var h History
	if err := yaml.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: failed to parse branch data: %v", data.ErrInvalidConfig, err)
	}
	return New(h)
}

// Load reads YAML branch data from path.
func Load(path string) (*Utility, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read branch data '%s': %w", path, err)
	}
	return Parse(raw)
}

// GetChannelInfo returns the current release of channel.
func (u *Utility) GetChannelInfo(channel Channel) (ChannelInfo, error) {
	info, ok := u.channels[channel]
	if !ok {
		return ChannelInfo{}, fmt.Errorf("%w: '%s'", data.ErrUnknownChannel, channel)
	}
	return info, nil
}

// GetStableChannelInfo returns the stable release of version.
func (u *Utility) GetStableChannelInfo(version int) (ChannelInfo, error) {
	branch, err := u.GetBranchForVersion(version)
	if err != nil {
		return ChannelInfo{}, err
	}
	return ChannelInfo{Channel: Stable, Branch: branch, Version: version}, nil
}

// GetBranchForVersion returns the branch identifier of version.
func (u *Utility) GetBranchForVersion(version int) (string, error) {
	if version == TrunkVersion {
		return TrunkBranch, nil
	}

	branch, ok := u.branches.Get(version)
	if !ok {
		return "", fmt.Errorf("%w: %d", data.ErrUnknownVersion, version)
	}
	return branch, nil
}

// GetBranchForChannel returns the branch identifier of channel.
func (u *Utility) GetBranchForChannel(channel Channel) (string, error) {
	info, err := u.GetChannelInfo(channel)
	if err != nil {
		return "", err
	}
	return info.Branch, nil
}

// Older returns the step before info: trunk, dev, beta, stable and then
// each older stable version. It reports false past the oldest version.
func (u *Utility) Older(info ChannelInfo) (ChannelInfo, bool) {
	idx, ok := u.index[position{info.Channel, info.Version}]
	if !ok || idx+1 >= len(u.history) {
		return ChannelInfo{}, false
	}
	return u.history[idx+1], true
}

// Newer is the inverse of Older. It reports false for trunk.
func (u *Utility) Newer(info ChannelInfo) (ChannelInfo, bool) {
	idx, ok := u.index[position{info.Channel, info.Version}]
	if !ok || idx == 0 {
		return ChannelInfo{}, false
	}
	return u.history[idx-1], true
}

// History returns every step from trunk to the oldest stable version.
// Channels sharing a version appear once, under the newest of them.
func (u *Utility) History() []ChannelInfo {
	return append([]ChannelInfo(nil), u.history...)
}

// OldestVersion returns the oldest retained stable version.
func (u *Utility) OldestVersion() int {
	version, _, _ := u.branches.Min()
	return version
}
