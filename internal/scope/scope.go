// Package scope resolves compiler-reported paths against a project root,
// rejecting anything outside the project or under a vendored subpath.
package scope

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Resolver normalizes compiler-reported paths against project_root/build_dir
// and rejects paths outside the project or under an excluded subpath.
//
// Configuration is immutable after construction.
type Resolver struct {
	projectRoot      string
	buildDir         string
	excludedSubpaths []string
	gitignoreMatcher gitignore.Matcher
	gitRoot          string
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// WithBuildDir sets the compiler's working directory, used to resolve
// relative paths. Defaults to projectRoot when not set.
func WithBuildDir(dir string) Option {
	return func(r *Resolver) {
		r.buildDir = filepath.Clean(dir)
	}
}

// WithExcludedSubpaths adds project-root-relative paths to treat as
// third-party code. Each entry is normalized; an empty entry is ignored
// rather than treated as "exclude everything" to avoid a foot-gun.
func WithExcludedSubpaths(paths ...string) Option {
	return func(r *Resolver) {
		for _, p := range paths {
			p = strings.Trim(filepath.ToSlash(filepath.Clean(p)), "/")
			if p == "" || p == "." {
				continue
			}
			r.excludedSubpaths = append(r.excludedSubpaths, p)
		}
	}
}

// WithGitignoreExcludes auto-detects the git root containing projectRoot and
// folds every .gitignore pattern found under it into the excluded subpaths,
// mirroring how a build's vendor/third_party trees are usually already
// gitignored.
func WithGitignoreExcludes() Option {
	return func(r *Resolver) {
		gitRoot := findGitRoot(r.projectRoot)
		if gitRoot == "" {
			return
		}
		fs := osfs.New(gitRoot)
		patterns, err := gitignore.ReadPatterns(fs, nil)
		if err != nil || len(patterns) == 0 {
			return
		}
		r.gitignoreMatcher = gitignore.NewMatcher(patterns)
		r.gitRoot = gitRoot
	}
}

// New creates a Resolver rooted at projectRoot. projectRoot must be an
// absolute, existing directory path; it is cleaned but not otherwise
// validated here (callers that want existence checks do them up front).
func New(projectRoot string, opts ...Option) *Resolver {
	r := &Resolver{
		projectRoot: filepath.Clean(projectRoot),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.buildDir == "" {
		r.buildDir = r.projectRoot
	}
	return r
}

// findGitRoot walks upward from start looking for a .git directory. Returns
// empty if none is found before reaching the filesystem root.
func findGitRoot(start string) string {
	dir := start
	for {
		info, err := os.Stat(filepath.Join(dir, ".git"))
		if err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Resolve implements the resolve(path) -> canonical_or_empty operation.
//
// 1. Non-absolute paths are joined onto buildDir.
// 2. The path is made relative to projectRoot.
// 3. A relative path that escapes the project root (begins with "../")
//    resolves to empty.
// 4. A relative path under any excluded subpath (equal to it, or beginning
//    with "<subpath>/") resolves to empty.
// 5. Otherwise the project-relative path is returned, with "/" separators.
func (r *Resolver) Resolve(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.buildDir, path)
	}
	rel, err := filepath.Rel(r.projectRoot, path)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return ""
	}
	if rel == "." {
		return ""
	}

	for _, excluded := range r.excludedSubpaths {
		if rel == excluded || strings.HasPrefix(rel, excluded+"/") {
			return ""
		}
	}

	if r.gitignoreMatcher != nil {
		parts := strings.Split(rel, "/")
		if r.gitignoreMatcher.Match(parts, false) {
			return ""
		}
	}

	return rel
}

// ProjectRoot returns the resolver's configured project root.
func (r *Resolver) ProjectRoot() string {
	return r.projectRoot
}
