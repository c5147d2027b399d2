package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	das "github.com/qri-io/das-go"
	"go.uber.org/multierr"
)

// Config lists the arrays and variables to build. Variables are built in
// file order and may only refer to arrays and variables defined before
// them.
type Config struct {
	// Store is a directory holding arrays written by das.WriteArray, it is
	// only needed by arrays that set Path
	Store string
	// Compressor is used by the encode command, "zstd", "gzip" or ""
	Compressor string

	Array    []ArrayConfig    `toml:"array"`
	Variable []VariableConfig `toml:"variable"`
}

// ArrayConfig defines a backing array, either inline or stored under Path
type ArrayConfig struct {
	ID     string
	Path   string
	Type   string
	Shape  []int
	Units  string
	Fill   *float64
	Ragged []int
	// RowLengths sets the length of every row of the ragged dimension 1
	RowLengths []int `toml:"row_lengths"`
	Values     []float64
	// Text fills a byte array one string per row
	Text []string
}

// VariableConfig defines one variable. Kind selects the fields that apply.
type VariableConfig struct {
	Name string
	Kind string

	// array and vector
	Array   string
	Map     []string
	IntRank int `toml:"int_rank"`
	Frame   string
	FrameID uint8 `toml:"frame_id"`
	System  uint8
	Dirs    []uint8

	// sequence and constant
	Type     string
	Units    string
	Min      float64
	Interval float64
	Rank     int
	Dim      int
	Value    float64
	Text     *string

	// unary and binary
	Op      string
	Operand string
	Left    string
	Right   string
}

// ReadConfig decodes a TOML configuration
func ReadConfig(r io.Reader) (*Config, error) {
	cfg := &Config{Compressor: "zstd"}
	if _, err := toml.DecodeReader(r, cfg); err != nil {
		return nil, fmt.Errorf("dasvar: problem reading configuration: %v", err)
	}
	return cfg, nil
}

// ReadConfigFile decodes the TOML configuration at path
func ReadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dasvar: problem opening configuration file: %v", err)
	}
	defer f.Close()
	return ReadConfig(f)
}

// Workspace holds everything built from a Config
type Workspace struct {
	Arrays    map[string]*das.Array
	Variables map[string]das.Variable
	// Order lists variable names as they were defined
	Order []string
}

// Build creates the arrays and variables a configuration describes
func (c *Config) Build() (*Workspace, error) {
	ws := &Workspace{
		Arrays:    map[string]*das.Array{},
		Variables: map[string]das.Variable{},
	}
	var store das.Store
	for _, ac := range c.Array {
		var a *das.Array
		var err error
		if ac.Path != "" {
			if store == nil {
				if store, err = das.NewLocalStore(c.Store); err != nil {
					ws.Release()
					return nil, err
				}
			}
			a, err = das.ReadArray(store, ac.Path)
		} else {
			a, err = ac.build()
		}
		if err != nil {
			ws.Release()
			return nil, fmt.Errorf("array %q: %w", ac.ID, err)
		}
		if prev, ok := ws.Arrays[a.ID()]; ok {
			prev.Release()
		}
		ws.Arrays[a.ID()] = a
	}
	for _, vc := range c.Variable {
		v, err := vc.build(ws)
		if err != nil {
			ws.Release()
			return nil, fmt.Errorf("variable %q: %w", vc.Name, err)
		}
		if _, ok := ws.Variables[vc.Name]; ok {
			v.Release()
			ws.Release()
			return nil, fmt.Errorf("variable %q is defined twice", vc.Name)
		}
		ws.Variables[vc.Name] = v
		ws.Order = append(ws.Order, vc.Name)
	}
	return ws, nil
}

// Release drops the workspace's references. Variables keep their arrays
// alive until they are released too.
func (ws *Workspace) Release() {
	for _, v := range ws.Variables {
		v.Release()
	}
	for _, a := range ws.Arrays {
		a.Release()
	}
	ws.Variables = map[string]das.Variable{}
	ws.Arrays = map[string]*das.Array{}
	ws.Order = nil
}

// Lookup finds a variable by name
func (ws *Workspace) Lookup(name string) (das.Variable, error) {
	v, ok := ws.Variables[name]
	if !ok {
		return nil, fmt.Errorf("%w: variable %q", das.ErrNotfound, name)
	}
	return v, nil
}

func (ac ArrayConfig) build() (*das.Array, error) {
	vt, err := das.ParseValType(ac.Type)
	if err != nil {
		return nil, err
	}
	opts := []das.ArrayOption{das.WithUnits(das.Units(ac.Units))}
	if ac.Fill != nil {
		opts = append(opts, das.WithFillValue(*ac.Fill))
	}
	if len(ac.Ragged) > 0 {
		opts = append(opts, das.WithRagged(ac.Ragged...))
	}
	if len(ac.Text) > 0 {
		opts = append(opts, das.WithUsage(das.UsageString))
	}
	a, err := das.NewArrayFloat64(ac.ID, vt, ac.Shape, ac.Values, opts...)
	if err != nil {
		return nil, err
	}

	for i, s := range ac.Text {
		if err := a.SetText([]int{i}, s); err != nil {
			a.Release()
			return nil, err
		}
	}
	for i, n := range ac.RowLengths {
		if err := a.SetLengthIn([]int{i}, n); err != nil {
			a.Release()
			return nil, err
		}
	}
	return a, nil
}

// parseMap reads index map entries: an array dimension number, "-" for an
// unused dimension
func parseMap(entries []string) (das.IndexMap, error) {
	dims := make([]das.DimMap, len(entries))
	var err error
	for i, e := range entries {
		if e == "-" {
			dims[i] = das.Unused
			continue
		}
		n, perr := strconv.Atoi(e)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("map entry %d: %q is not a dimension or \"-\"", i, e))
			continue
		}
		dims[i] = das.MapTo(n)
	}
	if err != nil {
		return das.IndexMap{}, err
	}
	return das.NewIndexMap(dims...)
}

func (vc VariableConfig) build(ws *Workspace) (das.Variable, error) {
	switch vc.Kind {
	case "array", "vector":
		a, ok := ws.Arrays[vc.Array]
		if !ok {
			return nil, fmt.Errorf("%w: array %q", das.ErrNotfound, vc.Array)
		}
		imap, err := parseMap(vc.Map)
		if err != nil {
			return nil, err
		}
		if vc.Kind == "vector" {
			v, err := das.NewGeoVectorView(a, imap, vc.Frame, vc.FrameID, vc.System, vc.Dirs)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
		v, err := das.NewArrayView(a, imap, vc.IntRank)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "sequence":
		vt, err := das.ParseValType(vc.Type)
		if err != nil {
			return nil, err
		}
		v, err := das.NewSequence(vc.Name, vt, vc.Min, vc.Interval, das.Units(vc.Units), vc.Rank, vc.Dim)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "constant":
		if err := das.Units(vc.Units).Valid(); err != nil {
			return nil, err
		}
		if vc.Text != nil {
			return das.NewConstant(vc.Name, das.TextDatum(*vc.Text, das.Units(vc.Units))), nil
		}
		return das.NewConstant(vc.Name, das.Float64Datum(vc.Value, das.Units(vc.Units))), nil
	case "unary":
		sub, err := ws.Lookup(vc.Operand)
		if err != nil {
			return nil, err
		}
		v, err := das.NewUnary(vc.Op, sub)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "binary":
		left, err := ws.Lookup(vc.Left)
		if err != nil {
			return nil, err
		}
		right, err := ws.Lookup(vc.Right)
		if err != nil {
			return nil, err
		}
		v, err := das.NewBinary(vc.Name, left, vc.Op, right)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: variable kind %q", das.ErrUnsupported, vc.Kind)
}
