// Package resolver finds the service and policy files a controller depends on.
package resolver

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/permcheck/checker/source"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/model"
)

const readConcurrency = 8

// ServiceFile is the resolved service a controller delegates to.
type ServiceFile struct {
	Injection source.Injection
	Path      string
	Content   string
	Methods   []string // sorted, de-duplicated methods the controller calls on it
	Strategy  string
}

// PolicyFile is one resolved policy import group.
type PolicyFile struct {
	ImportPath  string
	Names       []string
	Path        string
	Content     string
	Constraints map[string]string // constraints read from super('...')
	Strategy    string
}

// Result is everything the resolver found for one controller. Misses are
// reported in Unresolved, never as errors.
type Result struct {
	Service    *ServiceFile
	Policies   []PolicyFile
	Unresolved []model.Unresolved
}

// Resolver looks files up inside one extracted project. It caches file
// contents and is meant to live for a single check.
type Resolver struct {
	root   string
	files  []string
	exists map[string]struct{}

	mu    sync.Mutex
	cache map[string]string
}

// New builds a resolver over root; files are slash paths relative to root.
func New(root string, files []string) *Resolver {
	exists := make(map[string]struct{}, len(files))
	for _, f := range files {
		exists[f] = struct{}{}
	}
	return &Resolver{root: root, files: files, exists: exists, cache: make(map[string]string)}
}

// Resolve locates the service and policy files for the controller described by facts.
func (r *Resolver) Resolve(ctx context.Context, facts *source.ControllerFacts) (*Result, error) {
	result := &Result{}

	svc, miss, err := r.resolveService(ctx, facts)
	if err != nil {
		return nil, err
	}
	result.Service = svc
	if miss != nil {
		result.Unresolved = append(result.Unresolved, *miss)
	}

	for _, group := range facts.PolicyImports() {
		pf, miss, err := r.resolvePolicyGroup(ctx, facts, group)
		if err != nil {
			return nil, err
		}
		if miss != nil {
			result.Unresolved = append(result.Unresolved, *miss)
			continue
		}
		result.Policies = append(result.Policies, *pf)
	}

	for _, u := range result.Unresolved {
		logger.Warn("Unresolved controller dependency",
			zap.String("kind", u.Kind),
			zap.String("controller", u.Controller),
			zap.Strings("names", u.Names),
			zap.String("reason", u.Reason))
	}
	return result, nil
}

func (r *Resolver) resolveService(ctx context.Context, facts *source.ControllerFacts) (*ServiceFile, *model.Unresolved, error) {
	inj, ok := facts.PrimaryService()
	if !ok {
		return nil, &model.Unresolved{
			Kind:       serviceKind.label,
			Controller: facts.File,
			Reason:     "controller has no constructor-injected service",
		}, nil
	}

	importPath, _ := facts.ImportPathOf(inj.Type)
	l := lookup{
		controller: facts.File,
		importPath: importPath,
		className:  inj.Type,
		module:     moduleName(facts.BasePath),
		kind:       serviceKind,
	}

	names := []string{inj.Type}
	file, content, strategy, checked, err := r.find(ctx, l, names)
	if err != nil {
		return nil, nil, err
	}
	if file == "" {
		return nil, &model.Unresolved{
			Kind:         serviceKind.label,
			Controller:   facts.File,
			Names:        names,
			ImportPath:   importPath,
			CheckedPaths: checked,
			Reason:       fmt.Sprintf("cannot find service content for %s", inj.Type),
		}, nil
	}

	return &ServiceFile{
		Injection: inj,
		Path:      file,
		Content:   content,
		Methods:   facts.ServiceMethods(inj.Name),
		Strategy:  strategy,
	}, nil, nil
}

func (r *Resolver) resolvePolicyGroup(ctx context.Context, facts *source.ControllerFacts, group source.Import) (*PolicyFile, *model.Unresolved, error) {
	l := lookup{
		controller: facts.File,
		importPath: group.Path,
		module:     moduleName(facts.BasePath),
		kind:       policyKind,
	}
	if len(group.Names) == 1 {
		l.className = group.Names[0]
	}

	file, content, strategy, checked, err := r.find(ctx, l, group.Names)
	if err != nil {
		return nil, nil, err
	}
	if file == "" {
		return nil, &model.Unresolved{
			Kind:         policyKind.label,
			Controller:   facts.File,
			Names:        group.Names,
			ImportPath:   group.Path,
			CheckedPaths: checked,
			Reason:       fmt.Sprintf("cannot find policy content for %s", strings.Join(group.Names, ", ")),
		}, nil
	}

	return &PolicyFile{
		ImportPath:  group.Path,
		Names:       group.Names,
		Path:        file,
		Content:     content,
		Constraints: ExtractConstraints(content, group.Names),
		Strategy:    strategy,
	}, nil, nil
}

// find returns the first candidate declaring every name, trying match
// strategies in order. An empty file means nothing matched.
func (r *Resolver) find(ctx context.Context, l lookup, names []string) (file, content, strategy string, checked []string, err error) {
	found, checked := candidates(l, r.files, r.exists)
	contents, err := r.readAll(ctx, found)
	if err != nil {
		return "", "", "", checked, err
	}

	for _, ms := range matchStrategies {
		for i, p := range found {
			if ms.match(contents[i], names) {
				logger.Debug("Resolved controller dependency",
					zap.String("kind", l.kind.label),
					zap.String("controller", l.controller),
					zap.String("file", p),
					zap.String("strategy", ms.name))
				return p, contents[i], ms.name, checked, nil
			}
		}
	}
	return "", "", "", checked, nil
}

// readAll loads candidate files concurrently. Unreadable files count as empty.
func (r *Resolver) readAll(ctx context.Context, files []string) ([]string, error) {
	contents := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			contents[i] = r.read(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

// Read returns the content of a project file, or "" when it cannot be read.
func (r *Resolver) Read(rel string) string {
	return r.read(rel)
}

func (r *Resolver) read(rel string) string {
	r.mu.Lock()
	if c, ok := r.cache[rel]; ok {
		r.mu.Unlock()
		return c
	}
	r.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		logger.Warn("Cannot read candidate file", zap.String("file", rel), zap.Error(err))
		return ""
	}

	r.mu.Lock()
	r.cache[rel] = string(data)
	r.mu.Unlock()
	return string(data)
}

// moduleName is the first segment of a controller base path.
func moduleName(basePath string) string {
	p := strings.Trim(basePath, "/")
	if p == "" {
		return ""
	}
	return path.Clean(strings.SplitN(p, "/", 2)[0])
}
