package commands

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/prerender/internal/config"
	"git.home.luguber.info/inful/prerender/internal/foundation/errors"
)

// RunFlags override the prerender options of the config file.
type RunFlags struct {
	Partial     bool   `help:"Allow parametrized pages without a hook providing their URLs"`
	NoExtraDir  bool   `name:"noExtraDir" help:"Write /about as about.html instead of about/index.html"`
	Parallel    string `help:"Concurrency: true (CPU count), false/0 (serial) or a number"`
	OutDir      string `name:"outDir" help:"Output directory (overrides out_dir)"`
	NoForceExit bool   `name:"no-force-exit" help:"Return normally instead of exiting the process after a successful run"`
}

// loadConfig reads the config file named by --config. A missing default
// file means defaults; a missing file given explicitly is an error.
func loadConfig(root *CLI) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	path := root.Config
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) && path == config.DefaultFile {
		cfg = config.Default()
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			return nil, errors.WrapError(cwdErr, errors.CategoryConfig, "failed to resolve working directory").Build()
		}
		cfg.Root = cwd
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}
	if root.Root != "" {
		abs, absErr := filepath.Abs(root.Root)
		if absErr != nil {
			return nil, errors.WrapError(absErr, errors.CategoryConfig, "failed to resolve --root").Build()
		}
		cfg.Root = abs
	}
	return cfg, nil
}

// apply merges the flags into cfg. Setting any flag does not enable
// prerendering; the run still warns when the config leaves it off.
func (f RunFlags) apply(cfg *config.Config) error {
	if cfg.Prerender == nil && (f.Partial || f.NoExtraDir || f.Parallel != "") {
		cfg.Prerender = &config.PrerenderConfig{}
	}
	if f.Partial {
		cfg.Prerender.Partial = true
	}
	if f.NoExtraDir {
		cfg.Prerender.NoExtraDir = true
	}
	if f.Parallel != "" {
		p, err := config.ParseParallel(f.Parallel)
		if err != nil {
			return errors.UsageError(err.Error()).WithContext("flag", "--parallel").Build()
		}
		cfg.Prerender.Parallel = p
	}
	if f.OutDir != "" {
		cfg.OutDir = f.OutDir
	}
	return nil
}
