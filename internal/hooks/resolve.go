package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
	"git.home.luguber.info/inful/prerender/internal/page"
	"git.home.luguber.info/inful/prerender/internal/route"
)

// Resolver turns hook config values into callable hooks. String values
// starting with "./" or "../" reference a hook file relative to the file
// that declared them: data files (.yaml, .yml, .json) return their decoded
// content, any other file is executed.
type Resolver struct {
	root string
	env  []string
}

// NewResolver creates a resolver for a project rooted at root.
func NewResolver(root string, env []string) *Resolver {
	return &Resolver{root: root, env: env}
}

// Resolved is a callable hook together with the file shown to users.
type Resolved struct {
	FilePath  string
	Provide   ProvideFunc
	Transform TransformFunc
}

// IsFileRef reports whether v is a hook file reference.
func IsFileRef(v any) bool {
	s, ok := v.(string)
	return ok && (strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../"))
}

// RefPath resolves a file reference against the root-relative path of the
// file that declared it.
func RefPath(definedAt, ref string) string {
	return path.Clean(path.Join(path.Dir(definedAt), ref))
}

// Provide resolves value as a "provide extra URLs" hook.
func (r *Resolver) Provide(name Name, value any, definedAt string) (Resolved, error) {
	switch fn := value.(type) {
	case ProvideFunc:
		return Resolved{FilePath: definedAt, Provide: fn}, nil
	case func(context.Context) (any, error):
		return Resolved{FilePath: definedAt, Provide: fn}, nil
	}
	if !IsFileRef(value) {
		return Resolved{}, ErrNotCallable
	}
	hookPath := RefPath(definedAt, value.(string))
	if isDataFile(hookPath) {
		return Resolved{FilePath: hookPath, Provide: func(context.Context) (any, error) {
			return r.readData(name, hookPath)
		}}, nil
	}
	return Resolved{FilePath: hookPath, Provide: func(ctx context.Context) (any, error) {
		return r.exec(ctx, name, hookPath, nil)
	}}, nil
}

// Transform resolves value as a "transform all URLs" hook. Data files
// cannot transform anything and are rejected as not callable.
func (r *Resolver) Transform(name Name, value any, definedAt string) (Resolved, error) {
	switch fn := value.(type) {
	case TransformFunc:
		return Resolved{FilePath: definedAt, Transform: fn}, nil
	case func(context.Context, TransformInput) (any, error):
		return Resolved{FilePath: definedAt, Transform: fn}, nil
	}
	if !IsFileRef(value) {
		return Resolved{}, ErrNotCallable
	}
	hookPath := RefPath(definedAt, value.(string))
	if isDataFile(hookPath) {
		return Resolved{FilePath: hookPath}, ErrNotCallable
	}
	return Resolved{FilePath: hookPath, Transform: func(ctx context.Context, in TransformInput) (any, error) {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s() input: %w", name, err)
		}
		return r.exec(ctx, name, hookPath, payload)
	}}, nil
}

func isDataFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (r *Resolver) abs(p string) string {
	return filepath.Join(r.root, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

func (r *Resolver) readData(name Name, hookPath string) (any, error) {
	data, err := os.ReadFile(r.abs(hookPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHook,
			fmt.Sprintf("The %s() hook defined by %s could not be read", name, hookPath)).
			WithContext("hook_file", hookPath).Build()
	}
	var out any
	if strings.EqualFold(path.Ext(hookPath), ".json") {
		err = json.Unmarshal(data, &out)
	} else {
		err = yaml.Unmarshal(data, &out)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryHook,
			fmt.Sprintf("The %s() hook defined by %s contains invalid data", name, hookPath)).
			WithContext("hook_file", hookPath).Build()
	}
	return out, nil
}

func (r *Resolver) exec(ctx context.Context, name Name, hookPath string, stdin []byte) (any, error) {
	// #nosec G204 -- hook files are part of the project being pre-rendered
	cmd := exec.CommandContext(ctx, r.abs(hookPath))
	cmd.Dir = r.root
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Env = append(cmd.Env, "PRERENDER_HOOK="+string(name))
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("The %s() hook defined by %s failed", name, hookPath)
		if s := strings.TrimSpace(stderr.String()); s != "" {
			msg += ": " + s
		}
		return nil, errors.WrapError(err, errors.CategoryHook, msg).
			WithContext("hook_file", hookPath).Build()
	}
	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, errors.UsageError(fmt.Sprintf(
			"The %s() hook defined by %s printed invalid JSON to stdout", name, hookPath)).
			WithCause(err).WithContext("hook_file", hookPath).Build()
	}
	return result, nil
}

// BeforeRoute resolves value as a routing override. Executable hook files
// receive the page context as JSON on stdin and print either nothing, `null`,
// or `{"pageId": ..., "routeParams": {...}}`.
func (r *Resolver) BeforeRoute(value any, definedAt string) (route.BeforeRouteFunc, string, error) {
	switch fn := value.(type) {
	case route.BeforeRouteFunc:
		return fn, definedAt, nil
	case func(context.Context, *page.Context) (*route.Result, error):
		return fn, definedAt, nil
	}
	if !IsFileRef(value) {
		return nil, definedAt, ErrNotCallable
	}
	hookPath := RefPath(definedAt, value.(string))
	if isDataFile(hookPath) {
		return nil, hookPath, ErrNotCallable
	}
	return func(ctx context.Context, pc *page.Context) (*route.Result, error) {
		payload, err := json.Marshal(pc)
		if err != nil {
			return nil, fmt.Errorf("encode %s() input: %w", OnBeforeRoute, err)
		}
		out, err := r.exec(ctx, OnBeforeRoute, hookPath, payload)
		if err != nil || out == nil {
			return nil, err
		}
		m, ok := out.(map[string]any)
		if !ok {
			return nil, errors.UsageError(fmt.Sprintf(
				"The %s() hook defined by %s should print `null` or `{ pageId, routeParams }`", OnBeforeRoute, hookPath)).
				WithContext("hook_file", hookPath).Build()
		}
		res := &route.Result{RouteParams: map[string]string{}, ProvidedByOverride: true}
		if id, ok := m["pageId"].(string); ok {
			res.PageID = id
		}
		if params, ok := m["routeParams"].(map[string]any); ok {
			for k, v := range params {
				res.RouteParams[k] = fmt.Sprint(v)
			}
		}
		return res, nil
	}, hookPath, nil
}
