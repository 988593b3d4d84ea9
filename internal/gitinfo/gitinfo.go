// Package gitinfo stamps runs with the revision of the project sources.
package gitinfo

import (
	stdErrors "errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const shortHashLen = 12

// Info describes the checked-out revision of a repository.
type Info struct {
	Commit string
	Branch string
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > shortHashLen {
		return i.Commit[:shortHashLen]
	}
	return i.Commit
}

// Read inspects the repository containing dir. A dir outside any repository
// and a repository without commits both yield a zero Info and no error.
func Read(dir string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if stdErrors.Is(err, git.ErrRepositoryNotExists) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("open repository at %s: %w", dir, err)
	}
	head, err := repo.Head()
	if stdErrors.Is(err, plumbing.ErrReferenceNotFound) {
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	info := Info{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}

// Revision returns the short commit hash of the repository containing dir,
// or "" when there is none.
func Revision(dir string) string {
	info, err := Read(dir)
	if err != nil {
		return ""
	}
	return info.Short()
}
