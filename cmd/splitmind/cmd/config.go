package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/splitmind/internal/adapters/store"
	"github.com/hugo-lorenzo-mato/splitmind/internal/config"
	"github.com/hugo-lorenzo-mato/splitmind/internal/core"
	"github.com/hugo-lorenzo-mato/splitmind/internal/provider"
	"github.com/hugo-lorenzo-mato/splitmind/internal/settings"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the orchestrator settings",
	}
	cmd.AddCommand(
		newConfigShowCmd(opts),
		newConfigSetCmd(opts),
		newConfigValidateCmd(opts),
		newConfigInitCmd(opts),
	)
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	var (
		reveal bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the persisted settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.openStore(false)
			if err != nil {
				return err
			}
			snap, err := s.Read(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading settings: %w", err)
			}
			cfg := snap.Config
			if !reveal {
				cfg.APIKey = settings.MaskCredential(cfg.APIKey)
			}

			out := cmd.OutOrStdout()
			switch output {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			case "yaml", "":
				return opts.printSnapshot(out, cfg, snap)
			default:
				return fmt.Errorf("unknown output format %q (want yaml or json)", output)
			}
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the api key in clear text")
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format (yaml, json)")
	return cmd
}

func (o *rootOptions) printSnapshot(out io.Writer, cfg settings.OrchestratorConfig, snap settings.Snapshot) error {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	fmt.Fprint(out, string(body))

	draft := settings.Decode(snap.Config)
	fmt.Fprintln(out, o.styles.muted.Render("---"))
	if snap.ETag != "" {
		fmt.Fprintln(out, o.styles.muted.Render("# etag: "+snap.ETag))
	}
	if id := draft.AppID(); id != "" {
		fmt.Fprintln(out, o.styles.muted.Render("# app id: "+id))
	}
	if ep, err := provider.ResolveEndpoint(snap.Config, o.catalog); err == nil {
		fmt.Fprintln(out, o.styles.muted.Render("# endpoint: "+ep.URL()))
	} else {
		fmt.Fprintln(out, o.styles.warn.Render("# endpoint: "+err.Error()))
	}
	return nil
}

func newConfigSetCmd(opts *rootOptions) *cobra.Command {
	var (
		appID   string
		dryRun  bool
		ifMatch string
	)
	cmd := &cobra.Command{
		Use:   "set key=value [key=value...]",
		Short: "Change settings and save them",
		Long: `Apply changes the same way the dashboard does: switching provider fills an
empty base URL with the provider default and carries the API version across,
and the Aliyun app id is stored in the api_version column.

Keys: max_concurrent_agents, auto_merge, merge_strategy, auto_spawn_interval,
enabled, api_provider, api_key, api_model, api_base_url, api_version, app_id.
Use api_key=- to be prompted for the key.`,
		Example: `  splitmind config set api_provider=aliyun --app-id my-app api_key=-
  splitmind config set max_concurrent_agents=8 auto_merge=true --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && appID == "" {
				return errors.New("nothing to set")
			}
			assignments, err := parseAssignments(args)
			if err != nil {
				return err
			}
			if appID != "" {
				assignments = append(assignments, assignment{key: "app_id", value: appID})
			}
			return opts.runSet(cmd, assignments, dryRun, ifMatch)
		},
	}
	cmd.Flags().StringVar(&appID, "app-id", "", "Aliyun application id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the changes without saving")
	cmd.Flags().StringVar(&ifMatch, "if-match", "", "only save if the stored settings still have this etag")
	return cmd
}

type assignment struct {
	key   string
	value string
}

// parseAssignments splits key=value pairs. api_provider is moved first so
// that provider defaults apply before the other fields.
func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid assignment %q (want key=value)", arg)
		}
		out = append(out, assignment{key: strings.TrimSpace(k), value: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].key == "api_provider" && out[j].key != "api_provider"
	})
	return out, nil
}

func (o *rootOptions) runSet(cmd *cobra.Command, assignments []assignment, dryRun bool, ifMatch string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := o.openStore(false)
	if err != nil {
		return err
	}
	r := o.newReconciler(s, ifMatch != "")
	if err := r.Load(ctx); err != nil {
		return err
	}
	if snap, _ := r.Snapshot(); ifMatch != "" && snap.ETag != ifMatch {
		return core.ErrConflict("settings changed since "+ifMatch).WithDetail("current_etag", snap.ETag)
	}

	for _, a := range assignments {
		if a.key == "api_key" && a.value == "-" {
			key, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "API key: ")
			if err != nil {
				return err
			}
			a.value = key
		}
		if err := applyAssignment(r, a); err != nil {
			return err
		}
	}

	changes := r.Changes()
	if len(changes) == 0 {
		fmt.Fprintln(out, o.styles.muted.Render("no changes"))
		return nil
	}
	for _, c := range changes {
		fmt.Fprintf(out, "%s: %s -> %s\n", o.styles.key.Render(c.Field), c.Old, c.New)
	}
	o.printIssues(out, r.Issues())

	if dryRun {
		fmt.Fprintln(out, o.styles.muted.Render("dry run: nothing saved"))
		return nil
	}
	if err := r.Save(ctx); err != nil {
		return err
	}
	snap, _ := r.Snapshot()
	msg := "saved"
	if snap.ETag != "" {
		msg += " (etag " + snap.ETag + ")"
	}
	fmt.Fprintln(out, o.styles.ok.Render(msg))
	return nil
}

func applyAssignment(r *settings.Reconciler, a assignment) error {
	switch a.key {
	case "max_concurrent_agents":
		n, err := strconv.Atoi(a.value)
		if err != nil {
			return fmt.Errorf("%s: %w", a.key, err)
		}
		return r.SetMaxConcurrentAgents(n)
	case "auto_spawn_interval":
		n, err := strconv.Atoi(a.value)
		if err != nil {
			return fmt.Errorf("%s: %w", a.key, err)
		}
		return r.SetAutoSpawnInterval(n)
	case "auto_merge":
		b, err := strconv.ParseBool(a.value)
		if err != nil {
			return fmt.Errorf("%s: %w", a.key, err)
		}
		return r.SetAutoMerge(b)
	case "enabled":
		b, err := strconv.ParseBool(a.value)
		if err != nil {
			return fmt.Errorf("%s: %w", a.key, err)
		}
		return r.SetEnabled(b)
	case "merge_strategy":
		return r.SetMergeStrategy(a.value)
	case "api_provider":
		return r.SetProvider(a.value)
	case "api_key":
		return r.SetAPIKey(a.value)
	case "api_model":
		return r.SetModel(a.value)
	case "api_base_url":
		if a.value == "default" {
			return r.ApplyProviderDefaultURL()
		}
		return r.SetBaseURL(a.value)
	case "api_version":
		if a.value == "default" {
			return r.ApplyDefaultAPIVersion()
		}
		return r.SetAPIVersion(a.value)
	case "app_id":
		return r.SetAppID(a.value)
	default:
		return fmt.Errorf("unknown setting %q", a.key)
	}
}

func (o *rootOptions) printIssues(out io.Writer, issues []settings.Issue) {
	for _, is := range issues {
		style := o.styles.warn
		if is.Severity == settings.SeverityError {
			style = o.styles.err
		}
		fmt.Fprintf(out, "%s %s: %s\n", style.Render(string(is.Severity)), is.Field, is.Message)
	}
}

func newConfigValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the persisted settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.openStore(false)
			if err != nil {
				return err
			}
			snap, err := s.Read(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading settings: %w", err)
			}

			out := cmd.OutOrStdout()
			issues := settings.Inspect(snap.Config, opts.catalog)
			opts.printIssues(out, issues)
			if settings.HasErrors(issues) {
				return errors.New("settings are invalid")
			}
			fmt.Fprintln(out, opts.styles.ok.Render("settings are valid"))
			return nil
		},
	}
}

func newConfigInitCmd(opts *rootOptions) *cobra.Command {
	var (
		appConfig string
		userScope bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Store the default settings if none exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if userScope {
				path, err := config.UserConfigPath()
				if err != nil {
					return err
				}
				appConfig = path
			}
			if appConfig != "" {
				created, err := config.EnsureConfigFile(appConfig)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(out, "wrote %s\n", appConfig)
				} else {
					fmt.Fprintf(out, "%s already exists\n", appConfig)
				}
			}

			created, err := opts.initStore(cmd.Context())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintln(out, opts.styles.ok.Render("default settings stored"))
			} else {
				fmt.Fprintln(out, opts.styles.muted.Render("settings already initialised"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&appConfig, "app-config", "", "also write a default application config file at this path")
	cmd.Flags().BoolVar(&userScope, "user", false, "write the application config to the per-user location")
	return cmd
}

// initStore writes settings.DefaultConfig when the store holds nothing yet.
// Defaults are not synthesised here, so an empty store reads as not found.
func (o *rootOptions) initStore(ctx context.Context) (bool, error) {
	sopts := o.storeOptions()
	sopts.CreateDefaults = false
	s, err := o.open(sopts)
	if err != nil {
		return false, err
	}

	if _, err := s.Read(ctx); err == nil {
		return false, nil
	} else if !store.IsNotFound(err) {
		return false, fmt.Errorf("reading settings: %w", err)
	}
	if _, err := s.Replace(ctx, settings.DefaultConfig(), ""); err != nil {
		return false, fmt.Errorf("storing defaults: %w", err)
	}
	o.logger.Info("default settings stored", "backend", sopts.Backend)
	return true, nil
}
