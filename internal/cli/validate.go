package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/macropower/pick/api/v1beta1/registries"
	"github.com/macropower/pick/api/v1beta1/signalsets"
)

type ValidateArgs struct {
	*RootArgs

	Path         string
	RegistryPath string
	SignalsPath  string
}

func NewValidateArgs(rootArgs *RootArgs) *ValidateArgs {
	return &ValidateArgs{
		RootArgs: rootArgs,
	}
}

func (va *ValidateArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&va.RegistryPath, "registry", "", "Path to the module registry file")
	cmd.Flags().StringVar(&va.SignalsPath, "signals", "", "Path to the project signal file")
}

func NewValidateCmd(va *ValidateArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a module registry and project signal file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			va.Path = "."
			if len(args) > 0 {
				va.Path = args[0]
			}

			return runValidate(va)
		},
	}
	va.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runValidate(va *ValidateArgs) error {
	registryPath := va.RegistryPath
	if registryPath == "" {
		defaultPath := registries.GetPath()
		if _, err := os.Stat(defaultPath); err == nil {
			registryPath = defaultPath
		}
	}

	if registryPath == "" {
		return errors.New("no registry file found, pass --registry or run `pick resolve --write-registry`")
	}

	l, err := registries.NewLoaderFromFile(registryPath)
	if err != nil {
		return err
	}

	r, err := l.Load()
	if err != nil {
		return fmt.Errorf("%s: %w", registryPath, err)
	}

	reg, err := r.Build()
	if err != nil {
		return fmt.Errorf("%s: %w", registryPath, l.Wrap(err))
	}

	fmt.Printf("%s: %d modules, %d track groups\n", registryPath, reg.Len(), len(reg.TrackGroups()))

	signalsPath := va.SignalsPath
	if signalsPath == "" {
		signalsPath, err = signalsets.Find(va.Path)
		if err != nil {
			return err
		}
	}

	if signalsPath == "" {
		return nil
	}

	ss, err := signalsets.LoadFile(signalsPath)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d signals\n", signalsPath, len(ss.Signals))

	return nil
}
