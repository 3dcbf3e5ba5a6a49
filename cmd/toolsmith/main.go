package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"toolsmith/internal/adapter"
	"toolsmith/internal/capability"
	"toolsmith/internal/config"
	"toolsmith/internal/discovery"
	"toolsmith/internal/fetch"
	"toolsmith/internal/loader"
	"toolsmith/internal/playground"
	"toolsmith/internal/registry"
	"toolsmith/internal/sandbox"
	"toolsmith/internal/sdk"
	"toolsmith/internal/watcher"
)

var (
	// Global flags
	verbose   bool
	workspace string
	toolsDir  string

	// Logger
	logger *zap.Logger
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

var rootCmd = &cobra.Command{
	Use:   "toolsmith",
	Short: "toolsmith - sandboxed custom tool host",
	Long: `toolsmith discovers, compiles, and runs user-authored tools.

Tool files end in -tool.go and live under .toolsmith/tools in the workspace
or the home directory. Each file is compiled in a sandbox with a restricted
import set and exposes a tool definition the host adapts and registers.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover and list custom tools",
	RunE:  runList,
}

var runCmd = &cobra.Command{
	Use:   "run [tool]",
	Short: "Invoke a custom tool by name",
	Long: `Loads all discovered tools, then invokes the named one.

Input is passed as a JSON object:
  toolsmith run weather --input '{"city":"Berlin"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runTool,
}

var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "Inspect and edit tool capability grants",
}

var grantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all recorded grants",
	RunE:  runGrantsList,
}

var grantsGrantCmd = &cobra.Command{
	Use:   "grant [tool] [capability...]",
	Short: "Record a tool's capability set (replaces any previous set)",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runGrantsGrant,
}

var grantsRevokeCmd = &cobra.Command{
	Use:   "revoke [tool]",
	Short: "Delete a tool's grant record",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrantsRevoke,
}

var playgroundCmd = &cobra.Command{
	Use:   "playground [specifier] [arg]",
	Short: "Resolve and call a module inside an isolated playground",
	Long: `Opens a fresh playground and resolves the given module specifier.

Permission-sensitive modules (host/fetch) require the matching capability
via --cap. With --mock, sensitive calls return deterministic responses.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPlayground,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch tool directories and reload on change",
	RunE:  runWatch,
}

var (
	runInput        string
	playgroundMock  bool
	playgroundCaps  []string
	grantsOverwrite bool
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&toolsDir, "tools-dir", "", "Override the tool directory")

	runCmd.Flags().StringVar(&runInput, "input", "{}", "Tool input as a JSON object")

	playgroundCmd.Flags().BoolVar(&playgroundMock, "mock", false, "Substitute deterministic responses for sensitive modules")
	playgroundCmd.Flags().StringSliceVar(&playgroundCaps, "cap", nil, "Capabilities to grant the playground (filesystem, network, command)")

	grantsGrantCmd.Flags().BoolVar(&grantsOverwrite, "force", false, "Replace an existing grant without confirmation")

	grantsCmd.AddCommand(grantsListCmd)
	grantsCmd.AddCommand(grantsGrantCmd)
	grantsCmd.AddCommand(grantsRevokeCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(grantsCmd)
	rootCmd.AddCommand(playgroundCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveWorkspace returns the effective workspace directory.
func resolveWorkspace() (string, error) {
	if workspace != "" {
		return workspace, nil
	}
	return os.Getwd()
}

// buildResolver wires the host modules every tool may require.
func buildResolver() *sandbox.Resolver {
	resolver := sandbox.NewResolver(sandbox.Shared(), logger)
	resolver.RegisterModule("host/fetch", fetch.NewClient().Module())
	return resolver
}

// loadAll runs one full discovery and load pass.
func loadAll(ctx context.Context, ws string, cfg *config.Config) (map[string]*sdk.Tool, []loader.Result) {
	custom := toolsDir
	if custom == "" {
		custom = cfg.ToolsDir
	}

	ld := loader.New(discovery.NewScanner(logger), buildResolver(), logger)
	return ld.Load(ctx, custom, ws)
}

func runList(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}

	defs, results := loadAll(cmd.Context(), ws, cfg)

	fmt.Println(headerStyle.Render(fmt.Sprintf("Tools (%d loaded)", len(defs))))
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := defs[name]
		badge := ""
		if def.IsBeta {
			badge = " [beta]"
		}
		if def.BadgeLabel != "" {
			badge = " [" + def.BadgeLabel + "]"
		}
		perms := ""
		if len(def.Permissions) > 0 {
			parts := make([]string, len(def.Permissions))
			for i, p := range def.Permissions {
				parts[i] = string(p)
			}
			perms = faintStyle.Render("  (" + strings.Join(parts, ", ") + ")")
		}
		fmt.Printf("  %s%s  %s%s\n", okStyle.Render(name), badge, def.LocalizedDescription(), perms)
	}

	for _, res := range results {
		if res.Status == loader.StatusError {
			fmt.Printf("  %s  %s: %s\n", errorStyle.Render("error"), res.Path, res.Error)
		}
	}
	return nil
}

func runTool(cmd *cobra.Command, args []string) error {
	name := args[0]

	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(runInput), &input); err != nil {
		return fmt.Errorf("invalid --input: %w", err)
	}

	defs, _ := loadAll(cmd.Context(), ws, cfg)
	gate := capability.Default()
	if err := applyGrants(ws, gate); err != nil {
		return err
	}

	reg := registry.New(logger)
	reg.ReplaceAll(adapter.AdaptAll(defs, gate))

	tool := reg.Get(name)
	if tool == nil {
		return fmt.Errorf("tool %q not found; run 'toolsmith list' to see available tools", name)
	}

	if missing := defs[name].Args.Validate(input); len(missing) > 0 {
		return fmt.Errorf("missing required input: %s", strings.Join(missing, ", "))
	}

	fmt.Println(tool.RenderDoing(input))

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout())
	defer cancel()

	res, err := reg.Invoke(ctx, name, input)
	if err != nil {
		fmt.Println(tool.RenderResult(nil, err))
		return err
	}

	fmt.Println(tool.RenderResult(res.Result, nil))
	fmt.Println(faintStyle.Render(fmt.Sprintf("done in %dms", res.DurationMs)))
	return nil
}

// grantsFile is the persisted grant store under the workspace.
type grantsFile struct {
	Grants map[string][]string `yaml:"grants"`
}

func grantsPath(ws string) string {
	return filepath.Join(ws, ".toolsmith", "grants.yaml")
}

func loadGrants(ws string) (*grantsFile, error) {
	gf := &grantsFile{Grants: make(map[string][]string)}
	data, err := os.ReadFile(grantsPath(ws))
	if err != nil {
		if os.IsNotExist(err) {
			return gf, nil
		}
		return nil, fmt.Errorf("failed to read grants: %w", err)
	}
	if err := yaml.Unmarshal(data, gf); err != nil {
		return nil, fmt.Errorf("failed to parse grants: %w", err)
	}
	if gf.Grants == nil {
		gf.Grants = make(map[string][]string)
	}
	return gf, nil
}

func saveGrants(ws string, gf *grantsFile) error {
	path := grantsPath(ws)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(gf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyGrants seeds the gate with the persisted grant records so the CLI
// ledger and the in-memory gate agree.
func applyGrants(ws string, gate *capability.Gate) error {
	gf, err := loadGrants(ws)
	if err != nil {
		return err
	}
	for tool, raw := range gf.Grants {
		caps := make([]capability.Capability, 0, len(raw))
		for _, s := range raw {
			c, err := capability.Parse(s)
			if err != nil {
				return fmt.Errorf("grant for %s: %w", tool, err)
			}
			caps = append(caps, c)
		}
		gate.Grant(tool, caps)
	}
	return nil
}

func runGrantsList(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	gf, err := loadGrants(ws)
	if err != nil {
		return err
	}

	if len(gf.Grants) == 0 {
		fmt.Println(faintStyle.Render("no grants recorded"))
		return nil
	}

	names := make([]string, 0, len(gf.Grants))
	for name := range gf.Grants {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(headerStyle.Render("Grants"))
	for _, name := range names {
		fmt.Printf("  %s: %s\n", okStyle.Render(name), strings.Join(gf.Grants[name], ", "))
	}
	return nil
}

func runGrantsGrant(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	tool := args[0]
	caps := make([]string, 0, len(args)-1)
	for _, raw := range args[1:] {
		c, err := capability.Parse(raw)
		if err != nil {
			return err
		}
		caps = append(caps, string(c))
	}

	gf, err := loadGrants(ws)
	if err != nil {
		return err
	}
	if _, exists := gf.Grants[tool]; exists && !grantsOverwrite {
		return fmt.Errorf("tool %q already has a grant; pass --force to replace it", tool)
	}

	// A grant replaces the previous set wholesale.
	gf.Grants[tool] = caps
	if err := saveGrants(ws, gf); err != nil {
		return err
	}

	fmt.Printf("granted %s: %s\n", tool, strings.Join(caps, ", "))
	return nil
}

func runGrantsRevoke(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	gf, err := loadGrants(ws)
	if err != nil {
		return err
	}
	if _, exists := gf.Grants[args[0]]; !exists {
		return fmt.Errorf("tool %q has no grant record", args[0])
	}
	delete(gf.Grants, args[0])
	if err := saveGrants(ws, gf); err != nil {
		return err
	}

	fmt.Printf("revoked %s\n", args[0])
	return nil
}

func runPlayground(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}

	caps := make([]capability.Capability, 0, len(playgroundCaps))
	for _, raw := range playgroundCaps {
		c, err := capability.Parse(raw)
		if err != nil {
			return err
		}
		caps = append(caps, c)
	}

	mgr := playground.NewManager(buildResolver(), logger)
	pg := mgr.Open(playground.Options{
		Capabilities: caps,
		Mock:         playgroundMock || cfg.Mock,
		Timeout:      cfg.Timeout(),
	})
	defer mgr.Close(pg.ID)

	v, err := pg.Resolve(args[0], ws)
	if err != nil {
		return err
	}

	call, ok := v.(fetch.Callable)
	if !ok {
		fmt.Printf("resolved %s (%T)\n", args[0], v)
		return nil
	}
	if len(args) < 2 {
		return fmt.Errorf("module %q is callable; pass an argument to invoke it", args[0])
	}

	res, err := call(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ws, err := resolveWorkspace()
	if err != nil {
		return err
	}
	cfg, err := config.Load(ws)
	if err != nil {
		return err
	}

	custom := toolsDir
	if custom == "" {
		custom = cfg.ToolsDir
	}

	scanner := discovery.NewScanner(logger)
	ld := loader.New(scanner, buildResolver(), logger)
	gate := capability.Default()
	if err := applyGrants(ws, gate); err != nil {
		return err
	}
	reg := registry.New(logger)

	reload := func(ctx context.Context, paths []string) {
		defs, results := ld.Load(ctx, custom, ws)
		reg.ReplaceAll(adapter.AdaptAll(defs, gate))
		for _, res := range results {
			if res.Status == loader.StatusError {
				fmt.Printf("%s %s: %s\n", errorStyle.Render("error"), res.Path, res.Error)
			}
		}
		fmt.Printf("%s %d tools registered\n", okStyle.Render("reloaded"), reg.Count())
	}

	// Initial load before watching.
	reload(cmd.Context(), nil)

	var dirs []string
	for _, d := range scanner.Directories(custom, ws) {
		dirs = append(dirs, d.Path)
	}

	w, err := watcher.New(dirs, reload, logger)
	if err != nil {
		return err
	}
	if err := w.Start(cmd.Context()); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Println(faintStyle.Render("watching for tool changes, Ctrl+C to stop"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-cmd.Context().Done():
	}
	return nil
}
