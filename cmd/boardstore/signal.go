package main

import (
	"fmt"

	"github.com/conduit-lang/boardstore/internal/config"
	"github.com/conduit-lang/boardstore/internal/logging"
	"github.com/conduit-lang/boardstore/internal/metadata"
	"github.com/conduit-lang/boardstore/internal/signal"
	"github.com/spf13/cobra"
)

func newSignalCmd(configFile *string) *cobra.Command {
	var collection, domain string
	var servers []string

	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Ask every peer to reload a metadata collection",
		Long: `signal sends update.cache to the configured signal servers. Without
--collection every metadata collection is reloaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if collection != "" && !metadata.IsCollection(collection) {
				return fmt.Errorf("unknown collection %q, expected one of %v", collection, metadata.Collections)
			}
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
			if err != nil {
				return err
			}
			defer log.Sync()

			if len(servers) == 0 {
				servers = cfg.Signal.Servers
			}
			if len(servers) == 0 {
				return fmt.Errorf("no signal servers configured")
			}

			env := signal.Envelope{Key: signal.KeyUpdateCache, Domain: domain, Server: servers}
			if collection != "" {
				env = signal.CacheEnvelope(domain, collection, servers)
			}

			bus := signal.NewBus(signal.Config{Timeout: cfg.Signal.Timeout, Concurrency: cfg.Signal.Concurrency}, log)
			failed := 0
			out := cmd.OutOrStdout()
			for _, d := range bus.Send(cmd.Context(), env) {
				if d.Err != nil {
					failed++
					fmt.Fprintf(out, "%s\tfailed: %v\n", d.Server, d.Err)
					continue
				}
				fmt.Fprintf(out, "%s\tok\n", d.Server)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d peers failed", failed, len(servers))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "metadata collection to reload")
	cmd.Flags().StringVar(&domain, "domain", "", "domain sent with the signal")
	cmd.Flags().StringSliceVar(&servers, "server", nil, "peers to signal (default signal.servers)")
	return cmd
}
