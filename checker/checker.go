// Package checker runs the role-permission consistency check: it parses the
// policy document, extracts the uploaded project, recovers the permissions
// each controller implements and reconciles both sides.
package checker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/permcheck/checker/archive"
	"github.com/dev-mohitbeniwal/permcheck/checker/assembler"
	"github.com/dev-mohitbeniwal/permcheck/checker/engine"
	"github.com/dev-mohitbeniwal/permcheck/checker/oracle"
	"github.com/dev-mohitbeniwal/permcheck/checker/policy"
	"github.com/dev-mohitbeniwal/permcheck/checker/resolver"
	"github.com/dev-mohitbeniwal/permcheck/checker/source"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/model"
)

const (
	// ResourceFromOracle takes the resource from the entity the called service method manipulates.
	ResourceFromOracle = "oracle"
	// ResourceFromController takes the resource from the @Controller base path.
	ResourceFromController = "controller"
)

// Options tune one Checker.
type Options struct {
	WorkDir          string
	ExcludeDirs      []string
	Completeness     assembler.Completeness
	ResourceStrategy string
	// KeepWorkDir leaves the extracted project on disk after a successful check.
	KeepWorkDir bool
}

// Checker is safe for concurrent use: all per-check state lives in a checkRun.
// Checks of the same archive share an extraction directory and run one at a
// time within a process; callers spanning processes need their own lock.
type Checker struct {
	oracle oracle.Oracle
	opts   Options
	paths  *keyedMutex
}

func New(o oracle.Oracle, opts Options) *Checker {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.ExcludeDirs == nil {
		opts.ExcludeDirs = archive.DefaultExcludeDirs
	}
	if opts.Completeness == "" {
		opts.Completeness = assembler.CompletenessAll
	}
	if opts.ResourceStrategy == "" {
		opts.ResourceStrategy = ResourceFromOracle
	}
	return &Checker{oracle: o, opts: opts, paths: newKeyedMutex()}
}

type checkRun struct {
	id          string
	rules       []model.PolicyRule
	permissions []model.ImplementedPermission
	warnings    []string
	unresolved  []model.Unresolved
	stats       model.CheckStats
	resolver    *resolver.Resolver
}

// Check runs the whole pipeline. Malformed XML and unreadable archives fail
// the check; everything the analysis cannot resolve is reported and skipped.
func (c *Checker) Check(ctx context.Context, policyXML, project []byte) (*model.CheckReport, error) {
	start := time.Now()
	run := &checkRun{id: uuid.New().String()}
	log := logger.Log.With(zap.String("checkID", run.id))

	rules, warnings, err := policy.ParseRules(policyXML)
	if err != nil {
		log.Error("Policy document rejected", zap.Error(err))
		return nil, err
	}
	run.rules = rules
	run.warnings = append(run.warnings, warnings...)
	run.stats.Rules = len(rules)

	fingerprint := archive.Fingerprint(project)
	target := archive.TargetPath(c.opts.WorkDir, project)
	unlock := c.paths.Lock(target)
	defer unlock()

	extraction, err := archive.Extract(project, target, c.opts.ExcludeDirs)
	if err != nil {
		log.Error("Project extraction failed", zap.String("path", target), zap.Error(err))
		return nil, err
	}
	run.resolver = resolver.New(extraction.Root, extraction.Files)

	controllers := extraction.ControllerFiles()
	run.stats.ControllerFiles = len(controllers)
	if len(controllers) == 0 {
		run.warnings = append(run.warnings, "project contains no *.controller.ts files under src/")
	}

	for _, file := range controllers {
		if err := c.analyzeController(ctx, run, file); err != nil {
			log.Error("Controller analysis aborted", zap.String("file", file), zap.Error(err))
			return nil, err
		}
	}

	result := engine.Reconcile(run.rules, run.permissions)

	if !c.opts.KeepWorkDir {
		if err := os.RemoveAll(target); err != nil {
			log.Warn("Cannot remove extracted project", zap.String("path", target), zap.Error(err))
		}
	}

	report := &model.CheckReport{
		CheckID:              run.id,
		ReconciliationResult: result,
		Warnings:             run.warnings,
		Unresolved:           run.unresolved,
		Stats:                run.stats,
		Fingerprint:          fingerprint,
		CreatedAt:            start.UTC(),
		Duration:             time.Since(start),
	}
	log.Info("Check completed",
		zap.Int("rules", run.stats.Rules),
		zap.Int("permissions", run.stats.Permissions),
		zap.Int("redundant", len(result.RedundantRule)),
		zap.Int("lacking", len(result.LackRule)),
		zap.Int("oracleFailures", run.stats.OracleFailures),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (c *Checker) analyzeController(ctx context.Context, run *checkRun, file string) error {
	src := run.resolver.Read(file)
	if src == "" {
		run.warnings = append(run.warnings, fmt.Sprintf("%s: empty or unreadable controller", file))
		return nil
	}

	facts, err := source.Extract(ctx, file, []byte(src))
	if err != nil {
		return err
	}
	if facts.SyntaxErrors {
		run.warnings = append(run.warnings, fmt.Sprintf("%s: syntax errors, results are best-effort", file))
	}
	run.stats.MethodsSeen += len(facts.Methods)

	resolved, err := run.resolver.Resolve(ctx, facts)
	if err != nil {
		return err
	}
	run.unresolved = append(run.unresolved, resolved.Unresolved...)

	resources, err := c.resources(ctx, run, facts, resolved)
	if err != nil {
		return err
	}
	conditions, err := c.conditions(ctx, run, facts, resolved)
	if err != nil {
		return err
	}

	perms, incomplete := assembler.Assemble(file, assembler.Facts{
		Roles:      facts.Roles,
		Actions:    facts.Actions,
		Resources:  resources,
		Conditions: conditions,
	}, c.opts.Completeness)

	run.permissions = append(run.permissions, perms...)
	run.stats.Permissions += len(perms)
	run.stats.IncompleteMethods += len(incomplete)

	logger.Debug("Controller analyzed",
		zap.String("checkID", run.id),
		zap.String("file", file),
		zap.Int("permissions", len(perms)),
		zap.Strings("incomplete", incomplete))
	return nil
}

func (c *Checker) resources(ctx context.Context, run *checkRun, facts *source.ControllerFacts, resolved *resolver.Result) ([]map[string]string, error) {
	if c.opts.ResourceStrategy == ResourceFromController {
		out := make([]map[string]string, 0, len(facts.Methods))
		base := strings.Trim(facts.BasePath, "/")
		for _, m := range facts.Methods {
			out = append(out, map[string]string{m: base})
		}
		return out, nil
	}

	svc := resolved.Service
	if svc == nil || len(svc.Methods) == 0 {
		return nil, nil
	}
	entities, err := c.oracle.ResolveEntityNames(ctx, svc.Methods, svc.Content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.oracleFailed(run, facts.File, "entity names", err)
	}
	return assembler.Join(facts.Services, entities), nil
}

// conditions resolves, per method, the inline checkPermission condition or
// the constraints of its policy classes joined with &&. A method whose
// policies cannot all be resolved gets no condition entry.
func (c *Checker) conditions(ctx context.Context, run *checkRun, facts *source.ControllerFacts, resolved *resolver.Result) ([]map[string]string, error) {
	constraints := make(map[string]string)
	for _, pf := range resolved.Policies {
		var missing []string
		for _, name := range pf.Names {
			if v, ok := pf.Constraints[name]; ok {
				constraints[name] = v
			} else {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			continue
		}

		answers, err := c.oracle.ResolveConstraints(ctx, missing, []string{pf.ImportPath}, pf.Content)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.oracleFailed(run, facts.File, "constraints", err)
		}
		for name, v := range answers {
			constraints[name] = v
		}
	}

	out := make([]map[string]string, 0, len(facts.Methods))
	for _, method := range facts.Methods {
		names, _ := source.Lookup(facts.Policies, method)
		if names == "" {
			inline, _ := source.Lookup(facts.Conditions, method)
			out = append(out, map[string]string{method: inline})
			continue
		}

		var parts []string
		complete := true
		for _, name := range strings.Split(names, ",") {
			v, ok := constraints[name]
			if !ok {
				complete = false
				break
			}
			parts = append(parts, v)
		}
		if complete {
			out = append(out, map[string]string{method: strings.Join(parts, " && ")})
		}
	}
	return out, nil
}

func (c *Checker) oracleFailed(run *checkRun, file, what string, err error) {
	run.stats.OracleFailures++
	run.warnings = append(run.warnings, fmt.Sprintf("%s: oracle could not resolve %s: %v", file, what, err))
	logger.Warn("Oracle call failed, facts left unresolved",
		zap.String("checkID", run.id),
		zap.String("file", file),
		zap.String("what", what),
		zap.Error(err))
}
