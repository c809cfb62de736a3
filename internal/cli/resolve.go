package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/macropower/pick/api"
	"github.com/macropower/pick/api/v1beta1/registries"
	"github.com/macropower/pick/api/v1beta1/signalsets"
	"github.com/macropower/pick/pkg/decision"
	"github.com/macropower/pick/pkg/log"
	"github.com/macropower/pick/pkg/module"
	"github.com/macropower/pick/pkg/resolver"
)

const cmdExamples = `  # Resolve modules for the current directory:
  pick

  # Resolve modules for a project path:
  pick resolve ./services/billing

  # Resolve against explicit files:
  pick resolve --registry ./registry.yaml --signals ./signals.yaml

  # Watch the signal file and report module-level changes:
  pick resolve ./services/billing --watch

  # Write the default registry to the user config directory:
  pick resolve --write-registry`

type ResolveArgs struct {
	*RootArgs

	Path          string
	RegistryPath  string
	SignalsPath   string
	Project       string
	Watch         bool
	WriteRegistry bool
}

func NewResolveArgs(rootArgs *RootArgs) *ResolveArgs {
	return &ResolveArgs{
		RootArgs: rootArgs,
	}
}

func (ra *ResolveArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ra.RegistryPath, "registry", "", "Path to the module registry file")
	cmd.Flags().StringVar(&ra.SignalsPath, "signals", "", "Path to the project signal file")
	cmd.Flags().StringVar(&ra.Project, "project", "", "Project identity, defaults to the signal file's project")
	cmd.Flags().BoolVarP(&ra.Watch, "watch", "w", false, "Watch the signal file and report plan diffs")
	cmd.Flags().BoolVar(&ra.WriteRegistry, "write-registry", false, "Write the default registry file and exit")

	for _, flag := range []string{"registry", "signals"} {
		err := cmd.MarkFlagFilename(flag, "yaml", "yml")
		if err != nil {
			panic(fmt.Errorf("mark %s flag: %w", flag, err))
		}
	}
}

func NewResolveCmd(ra *ResolveArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "resolve [path]",
		Short:   "Resolve the guidance modules that apply to a project",
		Example: cmdExamples,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ra.Path = "."
			if len(args) > 0 {
				ra.Path = args[0]
			}

			return runResolve(cmd.Context(), ra)
		},
	}
	ra.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runResolve(ctx context.Context, ra *ResolveArgs) error {
	if ra.WriteRegistry {
		path := registries.GetPath()

		err := registries.WriteDefault(path, false)
		if err != nil {
			return err
		}

		fmt.Println(path)

		return nil
	}

	reg, regLoader, err := loadRegistry(ra.RegistryPath)
	if err != nil {
		return err
	}

	signalsPath, ss, err := loadSignals(ra.SignalsPath, ra.Path)
	if err != nil {
		return err
	}

	projectID := projectID(ra, ss, signalsPath)
	cache := decision.NewCache()

	plan, _, err := cache.Resolve(projectID, reg, ss.Set())
	if err != nil {
		return regLoader.Wrap(err)
	}

	err = printPlan(projectID, plan)
	if err != nil {
		return err
	}

	if ra.Watch {
		if signalsPath == "" {
			return errors.New("watch requires a signal file")
		}

		return watchSignals(ctx, signalsPath, projectID, reg, cache)
	}

	return nil
}

// loadRegistry loads the registry from an explicit path, from the user
// config directory, or falls back to the embedded default catalog.
func loadRegistry(path string) (*module.Registry, *registries.Loader, error) {
	if path == "" {
		defaultPath := registries.GetPath()
		if _, err := os.Stat(defaultPath); err == nil {
			path = defaultPath
		}
	}

	var (
		l   *registries.Loader
		err error
	)

	if path == "" {
		slog.Debug("no registry file found, using embedded default")

		l = registries.NewLoaderFromBytes(nil)

		reg, err := registries.Default().Build()
		if err != nil {
			return nil, nil, err
		}

		return reg, l, nil
	}

	l, err = registries.NewLoaderFromFile(path)
	if err != nil {
		return nil, nil, err
	}

	r, err := l.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}

	reg, err := r.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, l.Wrap(err))
	}

	slog.Debug("loaded registry",
		slog.String("path", path),
		slog.Int("modules", reg.Len()),
	)

	return reg, l, nil
}

// loadSignals loads the signal file from an explicit path or by walking up
// from the project path. A project without a signal file resolves against an
// empty set: tracks fall back to their defaults and no features trigger.
func loadSignals(path, projectPath string) (string, *signalsets.SignalSet, error) {
	if path == "" {
		found, err := signalsets.Find(projectPath)
		if err != nil {
			return "", nil, err
		}

		path = found
	}

	if path == "" {
		slog.Debug("no signal file found, resolving with an empty signal set")

		return "", signalsets.New(), nil
	}

	ss, err := signalsets.LoadFile(path)
	if err != nil {
		return "", nil, err
	}

	return path, ss, nil
}

func projectID(ra *ResolveArgs, ss *signalsets.SignalSet, signalsPath string) string {
	if ra.Project != "" {
		return ra.Project
	}

	if ss.Project != "" {
		return ss.Project
	}

	base := signalsPath
	if base == "" {
		base = ra.Path
	}

	abs, err := filepath.Abs(base)
	if err != nil {
		return base
	}

	if signalsPath != "" {
		return filepath.Base(filepath.Dir(abs))
	}

	return filepath.Base(abs)
}

type planOutput struct {
	Project    string           `json:"project"`
	SignalHash string           `json:"signalHash"`
	Modules    []resolver.Entry `json:"modules"`
}

func printPlan(projectID string, plan *resolver.Plan) error {
	out, err := api.MarshalYAML(planOutput{
		Project:    projectID,
		SignalHash: plan.SignalHash,
		Modules:    plan.Entries,
	})
	if err != nil {
		return err
	}

	fmt.Print(string(out))

	return nil
}

func printDiff(diff decision.Diff) error {
	out, err := api.MarshalYAML(diff)
	if err != nil {
		return err
	}

	fmt.Print(string(out))

	return nil
}

// watchSignals re-resolves through the cache whenever the signal file
// changes, printing only the module-level diff. Hash-identical rewrites of
// the file produce no output.
func watchSignals(ctx context.Context, signalsPath, projectID string, reg *module.Registry, cache *decision.Cache) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck // Best effort.

	// Watch the directory: editors commonly replace files on save.
	err = watcher.Add(filepath.Dir(signalsPath))
	if err != nil {
		return fmt.Errorf("watch %s: %w", signalsPath, err)
	}

	logger := log.WithContext(ctx)
	logger.Info("watching signal file", slog.String("path", signalsPath))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Name != signalsPath {
				continue
			}

			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			onSignalChange(ctx, signalsPath, projectID, reg, cache)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Error("watch signal file", slog.Any("error", err))
		}
	}
}

func onSignalChange(ctx context.Context, signalsPath, projectID string, reg *module.Registry, cache *decision.Cache) {
	logger := log.WithContext(ctx)

	ss, err := signalsets.LoadFile(signalsPath)
	if err != nil {
		logger.Error("reload signal file", slog.Any("error", err))

		return
	}

	_, diff, err := cache.Resolve(projectID, reg, ss.Set())
	if err != nil {
		logger.Error("resolve", slog.Any("error", err))

		return
	}

	if diff.Empty() {
		return
	}

	err = printDiff(diff)
	if err != nil {
		logger.Error("print diff", slog.Any("error", err))
	}
}
