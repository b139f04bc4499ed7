package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"classpath-index/internal/classname"
	"classpath-index/internal/classpath"
	"classpath-index/internal/config"
	"classpath-index/internal/diff"
	"classpath-index/internal/export"
	"classpath-index/internal/searcher"
	"classpath-index/internal/source"
)

const defaultClassPathEnv = "CLASSPATH"

// globalOptions backs the persistent flags.
type globalOptions struct {
	classpath   []string
	configPath  string
	logLevel    string
	logJSON     bool
	noInner     bool
	metricsFile string

	stdout, stderr io.Writer
}

// env is everything a command needs after flags are parsed.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *classpath.Metrics
}

func (o *globalOptions) load() (*env, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logJSON {
		cfg.LogJSON = true
	}
	cfg.Entries = append(cfg.Entries, o.classpath...)
	if len(cfg.Entries) == 0 && len(cfg.Children) == 0 && cfg.ClassPathEnv == "" {
		cfg.ClassPathEnv = defaultClassPathEnv
	}
	if err := cfg.Validate(); err != nil {
		return nil, &usageError{err}
	}
	reg := prometheus.NewRegistry()
	return &env{
		cfg:     cfg,
		logger:  cfg.Logger(o.stderr),
		reg:     reg,
		metrics: classpath.NewMetrics(reg),
	}, nil
}

func (o *globalOptions) index(e *env) (*classpath.Index, error) {
	return e.cfg.Build(e.logger, e.metrics)
}

func (o *globalOptions) searcher(e *env) (*searcher.Searcher, error) {
	idx, err := o.index(e)
	if err != nil {
		return nil, err
	}
	var opts []searcher.Option
	if o.noInner {
		opts = append(opts, searcher.WithoutInnerClasses())
	}
	s := searcher.FromIndex(idx, opts...)
	s.Init()
	return s, nil
}

// finish writes collected metrics when --metrics-file is set.
func (o *globalOptions) finish(e *env) error {
	if o.metricsFile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(o.metricsFile, e.reg)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &globalOptions{stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:           "classpath-index",
		Short:         "Index the classes reachable from a classpath",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringArrayVarP(&o.classpath, "classpath", "c", nil, "classpath entry: directory, .jar/.zip, file:// or http(s) URL (repeatable)")
	pf.StringVar(&o.configPath, "config", "", "YAML or TOML classpath description")
	pf.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&o.logJSON, "log-json", false, "log as JSON")
	pf.BoolVar(&o.noInner, "no-inner", false, "hide nested classes (names containing '$')")
	pf.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus text metrics here on exit")

	root.AddCommand(
		newPackagesCmd(o),
		newClassesCmd(o),
		newSourceCmd(o),
		newDiffCmd(o),
		newExportCmd(o),
	)
	return root
}

// args wraps a cobra validator so failures exit with status 2.
func args(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := v(cmd, a); err != nil {
			return &usageError{err}
		}
		return nil
	}
}

func newPackagesCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List every package on the classpath",
		Args:  args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := o.load()
			if err != nil {
				return err
			}
			s, err := o.searcher(e)
			if err != nil {
				return err
			}
			pkgs, err := s.Packages()
			if err != nil {
				return err
			}
			for _, p := range pkgs {
				fmt.Fprintln(o.stdout, p)
			}
			return o.finish(e)
		},
	}
}

func newClassesCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classes <package>",
		Short: "List the classes of a package",
		Long:  "List the classes of a package. Use " + classname.Unpackaged + " for the unnamed package.",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			e, err := o.load()
			if err != nil {
				return err
			}
			s, err := o.searcher(e)
			if err != nil {
				return err
			}
			classes, err := s.Search(a[0])
			if err != nil {
				return err
			}
			for _, c := range classes {
				fmt.Fprintln(o.stdout, c)
			}
			return o.finish(e)
		},
	}
}

func newSourceCmd(o *globalOptions) *cobra.Command {
	var size bool
	cmd := &cobra.Command{
		Use:   "source <class>",
		Short: "Show where a class is defined",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			e, err := o.load()
			if err != nil {
				return err
			}
			idx, err := o.index(e)
			if err != nil {
				return err
			}
			name := classname.Canonicalize(a[0])
			src, ok := idx.ClassSource(name)
			if !ok {
				return fmt.Errorf("%s: %w", name, source.ErrClassNotFound)
			}
			if !size {
				fmt.Fprintln(o.stdout, src)
				return o.finish(e)
			}
			code, err := source.NewCachingReader(e.cfg.CacheSize).Code(src, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(o.stdout, "%s\t%d bytes\n", src, len(code))
			return o.finish(e)
		},
	}
	cmd.Flags().BoolVar(&size, "size", false, "read the class file and print its size")
	return cmd
}

func newDiffCmd(o *globalOptions) *cobra.Command {
	var (
		left, right []string
		context     int
		summary     bool
	)
	cmd := &cobra.Command{
		Use:   "diff [package]",
		Short: "Compare two classpaths, by package list or by the classes of one package",
		Args:  args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			if len(left) == 0 || len(right) == 0 {
				return &usageError{fmt.Errorf("diff needs --left and --right")}
			}
			e, err := o.load()
			if err != nil {
				return err
			}
			opts := []classpath.Option{classpath.WithLogger(e.logger), classpath.WithMetrics(e.metrics)}
			l := classpath.New("left", left, opts...)
			r := classpath.New("right", right, opts...)

			list := func(idx *classpath.Index) []string {
				if len(a) == 0 {
					return idx.Packages()
				}
				classes := idx.ClassesForPackage(a[0])
				if o.noInner {
					classes = classname.RemoveInnerClassNames(classes)
				}
				return classes
			}
			la, lb := list(l), list(r)

			if summary {
				ch := diff.Compare(la, lb)
				for _, n := range ch.Removed {
					fmt.Fprintln(o.stdout, "-"+n)
				}
				for _, n := range ch.Added {
					fmt.Fprintln(o.stdout, "+"+n)
				}
				return o.finish(e)
			}
			body, _ := diff.Unified("left", "right", la, lb, diff.Options{Context: context})
			fmt.Fprint(o.stdout, body)
			return o.finish(e)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&left, "left", nil, "left classpath entry (repeatable)")
	f.StringArrayVar(&right, "right", nil, "right classpath entry (repeatable)")
	f.IntVar(&context, "context", 3, "unified diff context lines")
	f.BoolVar(&summary, "summary", false, "print only added (+) and removed (-) names")
	return cmd
}

func newExportCmd(o *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <out.zip>",
		Short: "Write a reproducible zip listing of the classpath",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			e, err := o.load()
			if err != nil {
				return err
			}
			idx, err := o.index(e)
			if err != nil {
				return err
			}
			if err := export.WriteFile(a[0], idx, export.Options{NoInner: o.noInner}); err != nil {
				return err
			}
			e.logger.Info("export written", "path", a[0])
			return o.finish(e)
		},
	}
}
