// Command dasvar builds variables from a TOML definition file and inspects,
// subsets, evaluates or encodes them.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	das "github.com/qri-io/das-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	configFile string
	verbose    bool

	// cfg is the configuration read at startup
	cfg *Config
	// ws holds the variables built from Config
	ws *Workspace
)

// RootCmd is the main command.
var RootCmd = &cobra.Command{
	Use:   "dasvar",
	Short: "Inspect lazily evaluated data variables.",
	Long: `dasvar reads array and variable definitions from a TOML file and
works with the variables they describe.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Startup(configFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if ws != nil {
			ws.Release()
		}
	},
}

// Startup configures logging and builds the configured variables
func Startup(path string) error {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	das.SetLogger(l)

	if cfg, err = ReadConfigFile(path); err != nil {
		return err
	}
	ws, err = cfg.Build()
	return err
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "./dasvar.toml", "variable definition file")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug diagnostics")

	addRangeFlags(subsetCmd.Flags())
	encodeCmd.Flags().StringVar(&encodeDir, "out", "./encoded", "directory to write encoded variables to")

	RootCmd.AddCommand(inspectCmd, subsetCmd, evalCmd, encodeCmd)
}

var rangeMin, rangeMax []int

func addRangeFlags(fs *pflag.FlagSet) {
	fs.IntSliceVar(&rangeMin, "min", nil, "first index of every external dimension")
	fs.IntSliceVar(&rangeMax, "max", nil, "one past the last index of every external dimension")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [variable...]",
	Short: "Describe variables",
	Long:  "Print the expression, shape and reference count of each named variable, or of every variable when none are named.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = ws.Order
		}
		for _, name := range args {
			v, err := ws.Lookup(name)
			if err != nil {
				return err
			}
			Inspect(os.Stdout, name, v)
		}
		return nil
	},
}

// Inspect writes a description of v
func Inspect(w io.Writer, name string, v das.Variable) {
	fmt.Fprintf(w, "%s: %s\n", name, v.Expression(das.ExpUnits|das.ExpRange|das.ExpIntr|das.ExpType))
	fmt.Fprintf(w, "  kind %s, shape %s", v.Kind(), extentText(v.Shape()))
	if intr := v.IntrShape(); len(intr) > 0 {
		fmt.Fprintf(w, ", internal %s", extentText(intr))
	}
	fmt.Fprintf(w, ", refs %d\n", v.Refs())
}

func extentText(es []das.Extent) string {
	strs := make([]string, len(es))
	for i, e := range es {
		strs[i] = e.String()
	}
	return "[" + strings.Join(strs, ",") + "]"
}

var subsetCmd = &cobra.Command{
	Use:   "subset variable",
	Short: "Print the values of a variable in an index range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := ws.Lookup(args[0])
		if err != nil {
			return err
		}
		a, err := v.Subset(rangeMin, rangeMax)
		if err != nil {
			return err
		}
		defer a.Release()
		return PrintArray(os.Stdout, a)
	},
}

// PrintArray writes a's shape and values, numeric arrays as numbers and
// text arrays one string per row
func PrintArray(w io.Writer, a *das.Array) error {
	fmt.Fprintln(w, a)
	if a.Usage() == das.UsageString {
		if a.Rank() != 2 {
			return fmt.Errorf("%w: printing rank %d text", das.ErrUnsupported, a.Rank())
		}
		for i := 0; i < a.Capacity()[0]; i++ {
			run, n := a.GetIn([]int{i})
			fmt.Fprintf(w, "%q\n", strings.TrimRight(string(run[:n]), "\x00"))
		}
		return nil
	}
	d, err := a.Dense()
	if err != nil {
		return err
	}
	shape := a.Capacity()
	row := shape[len(shape)-1]
	for i, x := range d.Elements {
		sep := " "
		if (i+1)%row == 0 {
			sep = "\n"
		}
		fmt.Fprintf(w, "%g%s", x, sep)
	}
	return nil
}

var evalCmd = &cobra.Command{
	Use:   "eval variable",
	Short: "Evaluate a variable into an array and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := ws.Lookup(args[0])
		if err != nil {
			return err
		}
		ev, err := das.Evaluate(v)
		if err != nil {
			return err
		}
		defer ev.Release()
		Inspect(os.Stdout, args[0], ev)
		switch t := ev.(type) {
		case *das.GeoVectorView:
			return PrintArray(os.Stdout, t.Array())
		case *das.ArrayView:
			return PrintArray(os.Stdout, t.Array())
		}
		return nil
	},
}

var encodeDir string

var encodeCmd = &cobra.Command{
	Use:   "encode variable...",
	Short: "Write variables to a directory in zarr format",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := das.NewLocalStore(encodeDir)
		if err != nil {
			return err
		}
		enc := &das.Encoder{Sink: store, Compressor: cfg.Compressor}
		for _, name := range args {
			v, err := ws.Lookup(name)
			if err != nil {
				return err
			}
			if err := enc.Encode(v, name); err != nil {
				return err
			}
			cm, err := das.ReadConsolidated(store, name)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d metadata documents\n", name, len(cm.Metadata))
		}
		return nil
	},
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
