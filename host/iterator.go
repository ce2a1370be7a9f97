package host

import (
	"context"
	"iter"

	"github.com/mwantia/docfs/branch"
	"github.com/mwantia/docfs/filesystem"
)

// Step is one branch in the release history together with its file system.
type Step struct {
	Channel    branch.ChannelInfo
	FileSystem filesystem.FileSystem
}

// Iterator walks the host file systems through the release history.
type Iterator struct {
	provider FileSystemProvider
	branches *branch.Utility
}

func NewIterator(provider FileSystemProvider, branches *branch.Utility) *Iterator {
	return &Iterator{
		provider: provider,
		branches: branches,
	}
}

// Iterate yields start and every older step, newest first. Each file system
// is only created once the consumer asks for its step, so stopping early
// never touches older branches. A provider failure is yielded as the last
// element.
func (it *Iterator) Iterate(ctx context.Context, start branch.ChannelInfo) iter.Seq2[*Step, error] {
	return it.iterate(ctx, start, it.branches.Older)
}

// IterateAscending yields start and every newer step, oldest first.
func (it *Iterator) IterateAscending(ctx context.Context, start branch.ChannelInfo) iter.Seq2[*Step, error] {
	return it.iterate(ctx, start, it.branches.Newer)
}

func (it *Iterator) iterate(ctx context.Context, start branch.ChannelInfo, next func(branch.ChannelInfo) (branch.ChannelInfo, bool)) iter.Seq2[*Step, error] {
	return func(yield func(*Step, error) bool) {
		info, ok := start, true
		for ok {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			fs, err := it.provider.GetBranch(ctx, info.Branch)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(&Step{Channel: info, FileSystem: fs}, nil) {
				return
			}

			info, ok = next(info)
		}
	}
}

// Descending calls callback for start and each older step until it
// returns false. It returns the last step for which callback returned true,
// or nil if it never did.
func (it *Iterator) Descending(ctx context.Context, start branch.ChannelInfo, callback func(*Step) (bool, error)) (*branch.ChannelInfo, error) {
	return forEach(it.Iterate(ctx, start), callback)
}

// Ascending is Descending in the opposite direction.
func (it *Iterator) Ascending(ctx context.Context, start branch.ChannelInfo, callback func(*Step) (bool, error)) (*branch.ChannelInfo, error) {
	return forEach(it.IterateAscending(ctx, start), callback)
}

func forEach(steps iter.Seq2[*Step, error], callback func(*Step) (bool, error)) (*branch.ChannelInfo, error) {
	var last *branch.ChannelInfo
	for step, err := range steps {
		if err != nil {
			return nil, err
		}

		cont, err := callback(step)
		if err != nil {
			return nil, err
		}
		if !cont {
			break
		}

		info := step.Channel
		last = &info
	}
	return last, nil
}
