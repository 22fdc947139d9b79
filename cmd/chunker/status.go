package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/alqutdigital/doc-chunker/internal/app"
	"github.com/alqutdigital/doc-chunker/internal/config"
	"github.com/alqutdigital/doc-chunker/internal/storage"
)

// StatusOptions holds options for the status command.
type StatusOptions struct {
	Limit      int
	PurgeCache bool
	JSON       bool
}

// StatusReport is the machine-readable form of the status command output.
type StatusReport struct {
	Mode      string                `json:"mode"`
	Profile   string                `json:"profile"`
	ChunkSize int                   `json:"chunk_size"`
	Provider  string                `json:"provider"`
	Model     string                `json:"model"`
	Services  map[string]string     `json:"services"`
	Cache     *storage.CacheMetrics `json:"cache,omitempty"`
	Purged    int                   `json:"purged,omitempty"`
	Outputs   []storage.ObjectInfo  `json:"outputs"`
}

func newStatusCmd() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, backing services and recent outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			log := newLogger(cfg)
			components, err := app.Open(ctx, cfg, log.Logger, app.Options{Cache: true, Storage: true, Events: true})
			if err != nil {
				return err
			}
			defer components.Close()

			report, err := buildStatus(ctx, cfg, components, opts)
			if err != nil {
				return err
			}

			if opts.JSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 10, "Number of recent outputs to list")
	cmd.Flags().BoolVar(&opts.PurgeCache, "purge-cache", false, "Remove every cached LLM segmentation")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the report as JSON")

	return cmd
}

func buildStatus(ctx context.Context, cfg *config.Config, components *app.Components, opts *StatusOptions) (*StatusReport, error) {
	report := &StatusReport{
		Mode:      cfg.Chunking.Mode,
		Profile:   cfg.Chunking.Profile,
		ChunkSize: cfg.Chunking.ChunkSize,
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		Services:  map[string]string{},
		Outputs:   []storage.ObjectInfo{},
	}

	for name, checker := range components.HealthCheckers() {
		if err := checker.Health(ctx); err != nil {
			report.Services[name] = "unhealthy: " + err.Error()
		} else {
			report.Services[name] = "healthy"
		}
	}

	if components.Cache != nil {
		if opts.PurgeCache {
			n, err := components.Cache.InvalidateAll(ctx)
			if err != nil {
				return nil, err
			}
			report.Purged = n
		}
		metrics := components.Cache.Metrics()
		report.Cache = &metrics
	}

	if components.Store != nil {
		objects, err := components.Store.List(ctx, storage.PathChunks+"/")
		if err != nil {
			return nil, fmt.Errorf("list outputs: %w", err)
		}
		sort.Slice(objects, func(i, j int) bool {
			return objects[i].LastModified.After(objects[j].LastModified)
		})
		if opts.Limit > 0 && len(objects) > opts.Limit {
			objects = objects[:opts.Limit]
		}
		report.Outputs = objects
	}

	return report, nil
}

func printStatus(w io.Writer, r *StatusReport) {
	fmt.Fprintln(w, "=== Chunker Status ===")
	fmt.Fprintf(w, "Mode:        %s\n", r.Mode)
	fmt.Fprintf(w, "Profile:     %s\n", r.Profile)
	fmt.Fprintf(w, "Chunk Size:  %d\n", r.ChunkSize)
	fmt.Fprintf(w, "LLM:         %s (%s)\n", r.Provider, r.Model)

	fmt.Fprintln(w, "\nServices:")
	if len(r.Services) == 0 {
		fmt.Fprintln(w, "  none configured")
	}
	names := make([]string, 0, len(r.Services))
	for name := range r.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, r.Services[name])
	}

	if r.Cache != nil {
		fmt.Fprintf(w, "\nSegment cache: %d hits, %d misses, %d errors\n", r.Cache.Hits, r.Cache.Misses, r.Cache.Errors)
		if r.Purged > 0 {
			fmt.Fprintf(w, "Purged %d cached segmentations\n", r.Purged)
		}
	}

	if len(r.Outputs) > 0 {
		fmt.Fprintln(w, "\nRecent outputs:")
		for _, o := range r.Outputs {
			fmt.Fprintf(w, "  %s  %8d bytes  %s\n", o.LastModified.Format(time.RFC3339), o.Size, o.Key)
		}
	}
}
